package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestReference(t *testing.T) {
	tests := []struct {
		symbol string
		want   int64
	}{
		{"AAPL", 170},
		{"TSLA", 800},
		{"GOOGL", 2600},
		{"MSFT", 100},
		{"", 100},
		{"aapl", 100},
	}

	ref := Reference()
	for _, tt := range tests {
		if got := ref.Price(tt.symbol); !got.Equal(decimal.NewFromInt(tt.want)) {
			t.Errorf("Price(%q) = %s, want %d", tt.symbol, got, tt.want)
		}
	}
}

func TestTable_CopiesInput(t *testing.T) {
	prices := map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(1)}
	tbl := NewTable(prices, decimal.NewFromInt(5))
	prices["AAPL"] = decimal.NewFromInt(2)

	if got := tbl.Price("AAPL"); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Price(AAPL) = %s, want 1 (table must copy its input)", got)
	}
}

func TestTable_Quotes_Sorted(t *testing.T) {
	quotes := Reference().Quotes()
	want := []string{"AAPL", "GOOGL", "TSLA"}
	if len(quotes) != len(want) {
		t.Fatalf("got %d quotes, want %d", len(quotes), len(want))
	}
	for i, q := range quotes {
		if q.Symbol != want[i] {
			t.Errorf("quotes[%d] = %s, want %s", i, q.Symbol, want[i])
		}
	}
}
