// Package pricing provides share price sources for the ledger.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Quote is a symbol and its current price.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
}

// Table is an immutable price table with a fallback price for any symbol
// it does not list.
type Table struct {
	prices   map[string]decimal.Decimal
	fallback decimal.Decimal
}

// NewTable copies prices into a new Table.
func NewTable(prices map[string]decimal.Decimal, fallback decimal.Decimal) *Table {
	cp := make(map[string]decimal.Decimal, len(prices))
	for s, p := range prices {
		cp[s] = p
	}
	return &Table{prices: cp, fallback: fallback}
}

// Reference returns the fixed reference table:
// AAPL 170, TSLA 800, GOOGL 2600, anything else 100.
func Reference() *Table {
	return NewTable(map[string]decimal.Decimal{
		"AAPL":  decimal.NewFromInt(170),
		"TSLA":  decimal.NewFromInt(800),
		"GOOGL": decimal.NewFromInt(2600),
	}, decimal.NewFromInt(100))
}

// Price returns the listed price of symbol, or the fallback.
func (t *Table) Price(symbol string) decimal.Decimal {
	if p, ok := t.prices[symbol]; ok {
		return p
	}
	return t.fallback
}

// Default returns the fallback price.
func (t *Table) Default() decimal.Decimal { return t.fallback }

// Quotes returns the listed prices ordered by symbol.
func (t *Table) Quotes() []Quote {
	return sortedQuotes(t.prices)
}

func sortedQuotes(prices map[string]decimal.Decimal) []Quote {
	out := make([]Quote, 0, len(prices))
	for s, p := range prices {
		out = append(out, Quote{Symbol: s, Price: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
