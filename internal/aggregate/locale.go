package aggregate

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Locale supplies the weekday names used as labels.
type Locale struct {
	Tag      language.Tag
	weekdays [7]string // Monday first
}

var (
	PortugueseBR = Locale{
		Tag: language.BrazilianPortuguese,
		weekdays: [7]string{
			"segunda-feira", "terça-feira", "quarta-feira",
			"quinta-feira", "sexta-feira", "sábado", "domingo",
		},
	}
	English = Locale{
		Tag: language.English,
		weekdays: [7]string{
			"Monday", "Tuesday", "Wednesday",
			"Thursday", "Friday", "Saturday", "Sunday",
		},
	}
)

var (
	supportedLocales = []Locale{PortugueseBR, English}
	localeMatcher    = language.NewMatcher([]language.Tag{language.BrazilianPortuguese, language.English})
)

// LocaleFor resolves a BCP 47 tag to the closest supported locale.
// Unsupported languages fall back to Brazilian Portuguese.
func LocaleFor(tag string) (Locale, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return Locale{}, fmt.Errorf("parse locale %q: %w", tag, err)
	}
	_, idx, _ := localeMatcher.Match(t)
	return supportedLocales[idx], nil
}

func (l Locale) WeekdayName(wd time.Weekday) string {
	return l.orDefault().weekdays[weekdayIndex(wd)]
}

// WeekdayOrder returns the seven names Monday through Sunday.
func (l Locale) WeekdayOrder() []string {
	w := l.orDefault().weekdays
	return w[:]
}

func (l Locale) orDefault() Locale {
	if l.weekdays[0] == "" {
		return PortugueseBR
	}
	return l
}
