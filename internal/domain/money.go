package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on typed amounts. Exponents outside [-maxAmountScale, maxAmountExp]
// are rejected before any rescaling.
const (
	maxAmountLen   = 64
	maxAmountScale = 20
	maxAmountExp   = 15
)

// MaxAmount is the exclusive upper bound on a typed amount's magnitude.
var MaxAmount = decimal.New(1, maxAmountExp)

// ParseAmount parses a monetary amount typed by a user. It accepts any
// decimal notation with at most 2 decimal places and a magnitude below
// MaxAmount. The sign is not checked:
// non-positive amounts are a ledger rejection, not a parse failure.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Message: "amount is required"}
	}
	if len(s) > maxAmountLen {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("amount must be at most %d characters", maxAmountLen)}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("amount must be a number, got %q", s)}
	}
	if exp := d.Exponent(); exp < -maxAmountScale || exp > maxAmountExp || d.Abs().GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("amount must be less than %s in magnitude, got %q", MaxAmount, s)}
	}
	// Trailing zeros beyond the second place are fine ("1.100").
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, &ValidationError{Message: "monetary values must have at most 2 decimal places"}
	}
	return d, nil
}

// ParseQuantity parses a share count typed by a user.
func ParseQuantity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ValidationError{Message: fmt.Sprintf("quantity must be a whole number, got %q", s)}
	}
	return q, nil
}

// FormatMoney renders an amount with exactly 2 decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
