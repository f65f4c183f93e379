package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

func TestFormatter(t *testing.T) {
	pt := New(language.BrazilianPortuguese)
	en := New(language.English)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pt currency", pt.Currency(decimal.RequireFromString("1234.5")), "R$ 1.234,50"},
		{"pt currency rounds", pt.Currency(decimal.RequireFromString("0.005")), "R$ 0,01"},
		{"en currency", en.Currency(decimal.RequireFromString("1234.5")), "R$ 1,234.50"},
		{"pt integer quantity", pt.Number(decimal.NewFromInt(12000)), "12.000"},
		{"pt fractional quantity", pt.Number(decimal.RequireFromString("2.5")), "2,50"},
		{"pt int", pt.Int(1500), "1.500"},
		{"pt percent", pt.Percent(33.333), "33,3%"},
		{"default locale", New(language.Und).Currency(decimal.NewFromInt(10)), "R$ 10,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
