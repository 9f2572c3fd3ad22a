package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
)

// moneyParam is a money value in a request body. Clients may send it as a
// JSON string ("12.50") or a JSON number (12.5); both go through
// domain.ParseAmount so precision rules are the same for each.
type moneyParam struct {
	raw string
	set bool
}

func (m *moneyParam) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		m.raw = s
	} else {
		m.raw = string(b)
	}
	m.set = true
	return nil
}

// decimal parses the value. field names it in validation messages.
func (m moneyParam) decimal(field string) (decimal.Decimal, error) {
	if !m.set {
		return decimal.Zero, &domain.ValidationError{Message: field + " is required"}
	}
	d, err := domain.ParseAmount(m.raw)
	if err != nil {
		return decimal.Zero, &domain.ValidationError{
			Message: fmt.Sprintf("%s must be a number below %s with at most 2 decimal places, got %s", field, domain.MaxAmount, m.raw),
		}
	}
	return d, nil
}
