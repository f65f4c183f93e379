// Package aggregate groups sales transactions by time period, product and
// customer. Every function here is a pure function of its Request.
package aggregate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

type Dimension int

const (
	Year Dimension = iota + 1
	Semester
	Quarter
	Month
	Week
	Weekday
	Day
)

// Dimensions lists every dimension in display order.
var Dimensions = []Dimension{Year, Semester, Quarter, Month, Week, Weekday, Day}

var dimensionNames = map[Dimension]struct {
	name, label, column string
}{
	Year:     {"Year", "Ano", models.ColYear},
	Semester: {"Semester", "Semestre", models.ColSemester},
	Quarter:  {"Quarter", "Trimestre", models.ColQuarter},
	Month:    {"Month", "Mês", models.ColMonth},
	Week:     {"Week", "Semana", models.ColWeekStart},
	Weekday:  {"Weekday", "Dia da Semana", models.ColWeekday},
	Day:      {"Day", "Data", models.ColDay},
}

// ParseDimension accepts the English name or the Portuguese label, ignoring case.
func ParseDimension(s string) (Dimension, error) {
	s = strings.TrimSpace(s)
	for _, d := range Dimensions {
		n := dimensionNames[d]
		if strings.EqualFold(s, n.name) || strings.EqualFold(s, n.label) {
			return d, nil
		}
	}
	return 0, &UnknownDimensionError{Name: s}
}

func (d Dimension) String() string {
	if n, ok := dimensionNames[d]; ok {
		return n.name
	}
	return "Dimension(" + strconv.Itoa(int(d)) + ")"
}

// Label is the Portuguese caption shown in the dashboard.
func (d Dimension) Label() string {
	return dimensionNames[d].label
}

// Column is the derived date-part column backing the dimension.
func (d Dimension) Column() string {
	return dimensionNames[d].column
}

func (d Dimension) valid() error {
	if _, ok := dimensionNames[d]; !ok {
		return &UnknownDimensionError{Name: d.String()}
	}
	return nil
}

func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dimension) UnmarshalText(b []byte) error {
	parsed, err := ParseDimension(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// bucket identifies a period. key orders buckets chronologically
// (Monday..Sunday for weekdays); label is what gets displayed.
type bucket struct {
	key   int64
	label string
}

// periodBucket mirrors the pre-derived date-part columns: semesters and
// quarters are bare ordinals and weeks are keyed by their Monday.
func (d Dimension) periodBucket(t time.Time, loc Locale) bucket {
	y, m, _ := t.Date()
	switch d {
	case Year:
		return bucket{int64(y), strconv.Itoa(y)}
	case Semester:
		s := semesterOf(m)
		return bucket{int64(s), strconv.Itoa(s)}
	case Quarter:
		q := quarterOf(m)
		return bucket{int64(q), strconv.Itoa(q)}
	case Month:
		return bucket{int64(y)*12 + int64(m) - 1, fmt.Sprintf("%04d-%02d", y, int(m))}
	case Week:
		start := dateOnly(t).AddDate(0, 0, -weekdayIndex(t.Weekday()))
		return bucket{civilDays(start), start.Format(time.DateOnly)}
	case Weekday:
		return bucket{int64(weekdayIndex(t.Weekday())), loc.WeekdayName(t.Weekday())}
	default:
		return bucket{civilDays(t), t.Format(time.DateOnly)}
	}
}

// turnoverBucket computes the year-qualified labels used as period selectors.
func (d Dimension) turnoverBucket(t time.Time, loc Locale) bucket {
	y, m, _ := t.Date()
	switch d {
	case Semester:
		s := semesterOf(m)
		return bucket{int64(y)*2 + int64(s) - 1, fmt.Sprintf("%d - S%d", y, s)}
	case Quarter:
		q := quarterOf(m)
		return bucket{int64(y)*4 + int64(q) - 1, fmt.Sprintf("%d - T%d", y, q)}
	case Week:
		w := sundayWeekOfYear(t)
		return bucket{int64(y)*100 + int64(w), fmt.Sprintf("%d - Semana %02d", y, w)}
	default:
		return d.periodBucket(t, loc)
	}
}

func semesterOf(m time.Month) int {
	return (int(m)-1)/6 + 1
}

func quarterOf(m time.Month) int {
	return (int(m)-1)/3 + 1
}

// weekdayIndex numbers Monday as 0 and Sunday as 6.
func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// sundayWeekOfYear counts Sundays so far in the year; days before the first
// Sunday are week 0.
func sundayWeekOfYear(t time.Time) int {
	return (t.YearDay() - 1 + 7 - int(t.Weekday())) / 7
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func civilDays(t time.Time) int64 {
	return dateOnly(t).Unix() / 86400
}
