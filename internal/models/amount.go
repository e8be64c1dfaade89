package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerance is the absolute rounding drift the SAT accepts between a
// recomputed total and the declared one.
var Tolerance = decimal.New(1, -2)

// ParseAmount parses a CFDI amount attribute. Empty input is zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount string '%s': %w", raw, err)
	}
	return d, nil
}

// ParseOptionalAmount parses raw and reports absence as an invalid NullDecimal.
func ParseOptionalAmount(raw string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// OrZero returns the value of n, or zero when n is absent.
func OrZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// FormatPesos renders an amount as "$1234.56".
func FormatPesos(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// WithinTolerance reports whether |a - b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
