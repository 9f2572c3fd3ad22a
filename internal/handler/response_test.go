package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, balanceResponse{AccountID: "alice", Balance: decimal.RequireFromString("8300.50")})

	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("status code = %d, want 201", w.Code)
	}

	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	// Money is encoded as a JSON string so no precision is lost.
	if raw["balance"] != "8300.5" {
		t.Errorf("balance = %#v, want \"8300.5\"", raw["balance"])
	}
}

func TestWriteJSON_OmitsInapplicableTransactionFields(t *testing.T) {
	w := httptest.NewRecorder()
	amount := decimal.NewFromInt(100)
	WriteJSON(w, http.StatusOK, transactionResponse{TransactionID: "tx", Type: "deposit", Amount: &amount})

	body := w.Body.String()
	for _, field := range []string{`"symbol"`, `"quantity"`, `"price"`} {
		if strings.Contains(body, field) {
			t.Errorf("deposit encoding contains %s: %s", field, body)
		}
	}
	if !strings.Contains(body, `"amount":"100"`) {
		t.Errorf("deposit encoding lacks amount: %s", body)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "account_not_found", "no open account with this id")

	if w.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", w.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Error != "account_not_found" || resp.Message != "no open account with this id" {
		t.Errorf("got %+v", resp)
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     bool
	}{
		{"valid", "application/json", `{"symbol":"AAPL","quantity":3}`, false},
		{"charset suffix", "application/json; charset=utf-8", `{"symbol":"AAPL"}`, false},
		{"missing content type", "", `{"symbol":"AAPL"}`, true},
		{"wrong content type", "text/plain", `{"symbol":"AAPL"}`, true},
		{"malformed", "application/json", `{symbol}`, true},
		{"unknown field", "application/json", `{"symbol":"AAPL","side":"buy"}`, true},
		{"empty body", "application/json", ``, true},
		{"fractional quantity", "application/json", `{"quantity":1.5}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var req tradeRequest
			err := ParseJSON(r, &req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseJSON err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "Content-Type") {
				t.Errorf("error %q should mention Content-Type", err)
			}
		})
	}
}

func TestMoneyParam(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr bool
	}{
		{`{"amount":"100"}`, "100", false},
		{`{"amount":100}`, "100", false},
		{`{"amount":"12.50"}`, "12.5", false},
		{`{"amount":12.5}`, "12.5", false},
		{`{"amount":"-5"}`, "-5", false},
		{`{"amount":"1.999"}`, "", true},
		{`{"amount":"ten"}`, "", true},
		{`{"amount":null}`, "", true},
		{`{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req cashRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := req.Amount.decimal("amount")
			if tt.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("got %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{&domain.ValidationError{Message: "bad"}, http.StatusBadRequest, "validation_error"},
		{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
		{domain.ErrNonPositiveAmount, http.StatusUnprocessableEntity, "non_positive_amount"},
		{domain.ErrNonPositiveQuantity, http.StatusUnprocessableEntity, "non_positive_quantity"},
		{domain.ErrSymbolNotHeld, http.StatusUnprocessableEntity, "symbol_not_held"},
		{fmt.Errorf("sell: %w", domain.ErrInsufficientShares), http.StatusUnprocessableEntity, "insufficient_shares"},
		{domain.ErrAccountAlreadyExists, http.StatusConflict, "account_already_exists"},
		{domain.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
		{domain.ErrWebhookNotFound, http.StatusNotFound, "webhook_not_found"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeServiceError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tt.wantCode {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantCode)
			}
		})
	}
}
