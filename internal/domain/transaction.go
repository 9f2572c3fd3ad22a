package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the ledger mutation a transaction records.
type TransactionType string

const (
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdraw, TransactionBuy, TransactionSell:
		return true
	}
	return false
}

// Transaction is an immutable record of one successful ledger mutation.
//
// Deposits and withdrawals carry Amount only. Buys and sells carry Symbol,
// Quantity and Price only. Fields that do not apply to the type are left
// empty (Valid=false for the decimals) and are never encoded.
type Transaction struct {
	ID        string
	Type      TransactionType
	Timestamp time.Time
	Symbol    string
	Quantity  int64
	Price     decimal.NullDecimal
	Amount    decimal.NullDecimal
}

// NewCashTransaction builds a deposit or withdraw record.
func NewCashTransaction(id string, typ TransactionType, at time.Time, amount decimal.Decimal) Transaction {
	return Transaction{
		ID:        id,
		Type:      typ,
		Timestamp: at,
		Amount:    decimal.NewNullDecimal(amount),
	}
}

// NewTradeTransaction builds a buy or sell record.
func NewTradeTransaction(id string, typ TransactionType, at time.Time, symbol string, quantity int64, price decimal.Decimal) Transaction {
	return Transaction{
		ID:        id,
		Type:      typ,
		Timestamp: at,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     decimal.NewNullDecimal(price),
	}
}

// IsTrade reports whether the transaction moved shares.
func (t Transaction) IsTrade() bool {
	return t.Type == TransactionBuy || t.Type == TransactionSell
}

// Total returns the cash moved by the transaction: the amount for cash
// transactions and price × quantity for trades.
func (t Transaction) Total() decimal.Decimal {
	if t.IsTrade() {
		return t.Price.Decimal.Mul(decimal.NewFromInt(t.Quantity))
	}
	return t.Amount.Decimal
}
