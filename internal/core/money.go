package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are bounded so a short literal such as 1e999999999 cannot expand
// into millions of digits when formatted.
const (
	maxAmountExponent = 20
	maxAmountDigits   = 15
)

var maxAmount = decimal.New(1, maxAmountDigits)

// ParseAmount parses a decimal amount as it arrives from a JSON number, a
// JSON string, or a form field. A decimal comma is accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("-5")     -> -5
//	ParseAmount("1e3")    -> 1000
//	ParseAmount("1e20")   -> error, more than 15 integer digits
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "is required")
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "must be a number")
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, NewValidationError("amount", "is out of range")
	}
	if d.Abs().Cmp(maxAmount) >= 0 {
		return decimal.Zero, NewValidationError("amount", "is out of range")
	}
	return d, nil
}
