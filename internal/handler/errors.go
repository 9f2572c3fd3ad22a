package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/tradeledger/internal/domain"
)

var rejectionMessages = map[error]string{
	domain.ErrNonPositiveAmount:   "amount must be greater than zero",
	domain.ErrInsufficientFunds:   "balance does not cover the operation",
	domain.ErrNonPositiveQuantity: "quantity must be greater than zero",
	domain.ErrSymbolNotHeld:       "the account holds no shares of this symbol",
	domain.ErrInsufficientShares:  "the account holds fewer shares than requested",
}

// writeServiceError maps service errors to HTTP responses. Ledger
// rejections become 422 with the reason as the error code.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	for reason, message := range rejectionMessages {
		if errors.Is(err, reason) {
			WriteError(w, http.StatusUnprocessableEntity, reason.Error(), message)
			return
		}
	}

	switch {
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		WriteError(w, http.StatusConflict, err.Error(), "an account with this id is already open")
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "no open account with this id")
	case errors.Is(err, domain.ErrWebhookNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "no webhook with this id")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
