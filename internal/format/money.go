// Package format renders values for display. Nothing formatted here is ever
// stored or used for arithmetic.
package format

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Money struct {
	printer *message.Printer
	symbol  string
}

// NewMoney falls back to English grouping when locale does not parse.
func NewMoney(locale, symbol string) *Money {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Money{printer: message.NewPrinter(tag), symbol: symbol}
}

func (m *Money) Format(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return m.symbol + m.printer.Sprintf("%.2f", f)
}
