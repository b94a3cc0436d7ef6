// Package core provides the plain records of the application along with
// date and money helpers shared by the engine and the outer layers.
//
// This file contains rounding and formatting of monetary amounts.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyPrefix is prepended to formatted amounts.
const CurrencyPrefix = "Rs. "

// Round rounds v to the given number of decimal places using banker's
// rounding on the shortest decimal representation of v.
//
// Examples:
//
//	Round(2.675, 2) -> 2.68 (decimal 2.675 is a tie, 8 is even)
//	Round(0.125, 2) -> 0.12
//	Round(12.25, 1) -> 12.2
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).RoundBank(places).InexactFloat64()
}

// Round2 rounds to two decimals; every currency output goes through it.
func Round2(v float64) float64 {
	return Round(v, 2)
}

// Round1 rounds to one decimal; used for percentages shown as progress.
func Round1(v float64) float64 {
	return Round(v, 1)
}

// RoundToInt rounds half to even and converts to a whole amount.
func RoundToInt(v float64) int64 {
	return int64(math.RoundToEven(v))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FormatAmount renders v without decimals and with thousands separators.
//
// Examples:
//
//	FormatAmount(1234567.4) -> "1,234,567"
//	FormatAmount(-950)      -> "-950"
func FormatAmount(v float64) string {
	n := RoundToInt(v)
	negative := n < 0
	if negative {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatCurrency is FormatAmount with the currency prefix.
func FormatCurrency(v float64) string {
	return CurrencyPrefix + FormatAmount(v)
}

// FormatPercent renders a ratio the way it is shown in reports: the
// shortest representation, keeping one decimal for whole numbers.
//
// Examples:
//
//	FormatPercent(37.5) -> "37.5"
//	FormatPercent(100)  -> "100.0"
func FormatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
