package pricing

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
)

// Board is a mutable, thread-safe price source. It starts from a Table and
// lets an operator move individual prices; valuations pick up the change on
// their next call.
type Board struct {
	mu       sync.RWMutex
	prices   map[string]decimal.Decimal
	fallback decimal.Decimal
}

// NewBoard creates a Board seeded with the prices and fallback of seed.
func NewBoard(seed *Table) *Board {
	prices := make(map[string]decimal.Decimal, len(seed.prices))
	for s, p := range seed.prices {
		prices[s] = p
	}
	return &Board{prices: prices, fallback: seed.fallback}
}

// Price returns the current price of symbol, or the fallback.
func (b *Board) Price(symbol string) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if p, ok := b.prices[symbol]; ok {
		return p
	}
	return b.fallback
}

// Listed reports whether symbol has its own price rather than the fallback.
func (b *Board) Listed(symbol string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.prices[symbol]
	return ok
}

// Set moves the price of symbol. Prices must be positive.
func (b *Board) Set(symbol string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return &domain.ValidationError{Message: "price must be > 0"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
	return nil
}

// Default returns the fallback price.
func (b *Board) Default() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fallback
}

// Quotes returns the listed prices ordered by symbol.
func (b *Board) Quotes() []Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedQuotes(b.prices)
}
