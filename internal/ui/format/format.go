// Package format renders amounts for display in the dashboard locale.
package format

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter prints numbers with the grouping and decimal separators of its
// locale. Amounts are always shown in reais.
type Formatter struct {
	printer *message.Printer
}

func New(tag language.Tag) *Formatter {
	if tag == language.Und {
		tag = language.BrazilianPortuguese
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Currency formats a value as "R$ 1.234,56" (pt-BR) or "R$ 1,234.56" (en).
func (f *Formatter) Currency(d decimal.Decimal) string {
	return f.printer.Sprintf("R$ %.2f", d.Round(2).InexactFloat64())
}

// Number formats a quantity, keeping decimals only when it has them.
func (f *Formatter) Number(d decimal.Decimal) string {
	if d.IsInteger() {
		return f.printer.Sprintf("%d", d.IntPart())
	}
	return f.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

func (f *Formatter) Int(n int) string {
	return f.printer.Sprintf("%d", n)
}

func (f *Formatter) Percent(p float64) string {
	return f.printer.Sprintf("%.1f%%", p)
}
