// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and for moving between decimal amounts and the integer cents used at rest.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Cent is the smallest tracked unit. Net positions and remainders whose
// magnitude is below one cent are treated as settled noise.
var Cent = decimal.New(1, -2)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsNegligible reports whether |d| < 0.01.
func IsNegligible(d decimal.Decimal) bool {
	return d.Abs().LessThan(Cent)
}

// MaxAmount bounds the magnitude of any single amount. Stored cent totals of
// amounts this size stay far inside int64.
var MaxAmount = decimal.New(1, 12)

// CheckAmount rejects amounts whose magnitude exceeds MaxAmount.
func CheckAmount(field string, d decimal.Decimal) error {
	if d.Abs().GreaterThan(MaxAmount) {
		return &ValidationError{Field: field, Value: d.String(), Reason: "too large"}
	}
	return nil
}

// ToCents converts an amount to integer cents after rounding. Cents that do
// not fit in an int64 are an error, never a wrapped value.
func ToCents(d decimal.Decimal) (int64, error) {
	cents := Round2(d).Shift(2)
	if !cents.BigInt().IsInt64() {
		return 0, &ValidationError{Field: "amount", Value: d.String(), Reason: "too large"}
	}
	return cents.IntPart(), nil
}

// FromCents converts integer cents back to a two-place decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ParseAmount converts user input to a strictly positive amount with half-up
// rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When both
// appear, commas are taken as thousands separators (1,234.50).
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34
//	ParseAmount("12,34")    -> 12.34
//	ParseAmount("1,234.5")  -> 1234.50
//	ParseAmount("12.345")   -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s, false)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Value: s, Reason: "must be greater than zero"}
	}
	return d, nil
}

// ParseSignedAmount is ParseAmount for relative adjustments such as "+500"
// or "-200". Zero is rejected.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal(s, true)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsZero() {
		return decimal.Zero, &ValidationError{Field: "amount", Value: s, Reason: "must not be zero"}
	}
	return d, nil
}

// ParseBalance accepts any finite amount including zero and negatives, as
// used when setting or correcting the cash balance.
func ParseBalance(s string) (decimal.Decimal, error) {
	return parseDecimal(s, true)
}

func parseDecimal(s string, signed bool) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "empty"}
	}

	neg := false
	switch s[0] {
	case '+', '-':
		if !signed {
			return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "sign not allowed"}
		}
		neg = s[0] == '-'
		s = s[1:]
	}

	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}

	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case !unicode.IsDigit(r) || r > unicode.MaxASCII:
			return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "not a number"}
		}
	}
	if dots > 1 || s == "" || s == "." {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "not a number"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "not a number"}
	}
	if neg {
		d = d.Neg()
	}
	d = Round2(d)
	if d.Abs().GreaterThan(MaxAmount) {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "too large"}
	}
	return d, nil
}

// FormatAmount renders an amount the way every surface displays money,
// e.g. "AED 1,234.50" or "AED -12.00".
func FormatAmount(currency string, d decimal.Decimal) string {
	d = Round2(d)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole := d.Truncate(0).String()
	frac := d.Sub(d.Truncate(0)).Shift(2).IntPart()

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := fmt.Sprintf("%s%s.%02d", sign, b.String(), frac)
	if currency == "" {
		return out
	}
	return currency + " " + out
}
