package domain

import "github.com/shopspring/decimal"

// Position represents the quantity of a single symbol held by an account.
type Position struct {
	Symbol   string
	Quantity int64
}

// Valuation is a Position priced at a point in time.
type Valuation struct {
	Position
	Price decimal.Decimal
}

// MarketValue returns price × quantity.
func (v Valuation) MarketValue() decimal.Decimal {
	return v.Price.Mul(decimal.NewFromInt(v.Quantity))
}
