package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "amount must be a number"}
	if err.Error() != "amount must be a number" {
		t.Errorf("Error() = %q, want %q", err.Error(), "amount must be a number")
	}
}

func TestValidationError_ImplementsError(t *testing.T) {
	var err error = &ValidationError{Message: "test"}
	if err == nil {
		t.Error("ValidationError should implement error interface")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrAccountAlreadyExists,
		ErrAccountNotFound,
		ErrWebhookNotFound,
		ErrNonPositiveAmount,
		ErrInsufficientFunds,
		ErrNonPositiveQuantity,
		ErrSymbolNotHeld,
		ErrInsufficientShares,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}

func TestIsRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"non positive amount", ErrNonPositiveAmount, true},
		{"insufficient funds", ErrInsufficientFunds, true},
		{"non positive quantity", ErrNonPositiveQuantity, true},
		{"symbol not held", ErrSymbolNotHeld, true},
		{"insufficient shares", ErrInsufficientShares, true},
		{"wrapped", fmt.Errorf("sell: %w", ErrInsufficientShares), true},
		{"account not found", ErrAccountNotFound, false},
		{"validation", &ValidationError{Message: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRejection(tt.err); got != tt.want {
				t.Errorf("IsRejection(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
