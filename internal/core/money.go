// Package core holds the domain model shared by every component: entries,
// the category taxonomy, monetary formatting and local time windows.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount in Brazilian convention: "R$ 1.234,56".
// Negative values keep their sign: "R$ -50,00".
func FormatBRL(v decimal.Decimal) string {
	s := v.StringFixed(2) // e.g. "-1234.56"

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	return "R$ " + sign + b.String() + "," + fracPart
}

// Cents converts an amount to integer cents with half-up rounding on the
// third decimal place. Used by stores that persist integer cents.
func Cents(v decimal.Decimal) int64 {
	return v.Round(2).Shift(2).IntPart()
}

// FromCents converts integer cents back into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
