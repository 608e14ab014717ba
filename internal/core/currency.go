package core

import (
	"fmt"
	"strconv"
	"strings"
)

// CurrencyFormat describes how amounts are shown to people.
type CurrencyFormat struct {
	Symbol    string
	Thousands string
	Decimal   string
}

var (
	// FormatPtBR renders "R$ 1.234,56".
	FormatPtBR = CurrencyFormat{Symbol: "R$", Thousands: ".", Decimal: ","}
	// FormatEnUS renders "R$ 1,234.56".
	FormatEnUS = CurrencyFormat{Symbol: "R$", Thousands: ",", Decimal: "."}
)

// CurrencyFormatFor maps a locale name to a format. Unknown locales fall back to pt-BR.
func CurrencyFormatFor(locale string) (CurrencyFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "", "pt-br", "pt_br":
		return FormatPtBR, true
	case "en-us", "en_us":
		return FormatEnUS, true
	default:
		return FormatPtBR, false
	}
}

// Format renders m with a thousands separator and exactly two decimal digits.
// Negative amounts carry the sign before the symbol ("-R$ 10,00").
func (f CurrencyFormat) Format(m Money) string {
	if m.IsNegative() {
		return "-" + f.Symbol + " " + f.Number(Money{Cents: -m.Cents})
	}
	return f.Symbol + " " + f.Number(m)
}

// Number renders m without the currency symbol.
func (f CurrencyFormat) Number(m Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteString(f.Thousands)
		}
		b.WriteRune(r)
	}
	b.WriteString(f.Decimal)
	b.WriteString(fmt.Sprintf("%02d", cents%100))
	return b.String()
}
