package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes and uses the message
// text as the machine-readable error code.
var (
	ErrAccountAlreadyExists = errors.New("account_already_exists")
	ErrAccountNotFound      = errors.New("account_not_found")
	ErrWebhookNotFound      = errors.New("webhook_not_found")
)

// Rejection reasons reported by the ledger's Check methods. A rejected
// mutation leaves the ledger untouched.
var (
	ErrNonPositiveAmount   = errors.New("non_positive_amount")
	ErrInsufficientFunds   = errors.New("insufficient_funds")
	ErrNonPositiveQuantity = errors.New("non_positive_quantity")
	ErrSymbolNotHeld       = errors.New("symbol_not_held")
	ErrInsufficientShares  = errors.New("insufficient_shares")
)

// IsRejection reports whether err is one of the ledger rejection reasons.
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, ErrNonPositiveAmount),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrNonPositiveQuantity),
		errors.Is(err, ErrSymbolNotHeld),
		errors.Is(err, ErrInsufficientShares):
		return true
	}
	return false
}

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
