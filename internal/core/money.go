// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and formatting cents back into decimal text.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// MaxCents is the largest single amount accepted for an expense or budget
// (100 billion units). Sums of many such amounts stay far inside int64.
const MaxCents int64 = 1e13

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Zero is accepted; negative
// values, values above MaxCents and malformed input return a ValidationError
// for the amount field.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	invalid := &ValidationError{Field: "amount", Reason: "must be a non-negative decimal number"}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, invalid
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, invalid
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return 0, invalid
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, invalid
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, invalid
	}
	if iv > MaxCents/100 {
		return 0, tooLarge()
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents > MaxCents {
		return 0, tooLarge()
	}
	return cents, nil
}

func tooLarge() error {
	return &ValidationError{Field: "amount", Reason: "must not exceed " + FormatCents(MaxCents)}
}

// addCents saturates at the int64 bounds instead of wrapping.
func addCents(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}

// ParseMoney is ParseDecimalToCents wrapped into Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// FormatCents renders cents as a plain decimal string, e.g. -550 -> "-5.50".
func FormatCents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	s := strconv.FormatInt(cents/100, 10) + "." + frac
	if neg {
		return "-" + s
	}
	return s
}

func (m Money) String() string {
	return FormatCents(m.Cents)
}
