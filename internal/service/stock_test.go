package service

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/pricing"
)

func newTestStockService() (*StockService, *domain.SymbolRegistry) {
	symbols := domain.NewSymbolRegistry()
	board := pricing.NewBoard(pricing.Reference())
	return NewStockService(board, symbols, slog.New(slog.DiscardHandler)), symbols
}

func TestStockList(t *testing.T) {
	svc, symbols := newTestStockService()
	symbols.Register("AAPL")
	symbols.Register("ZZZ")

	quotes := svc.List()
	want := []struct {
		symbol string
		price  string
		listed bool
		traded bool
	}{
		{"AAPL", "170", true, true},
		{"GOOGL", "2600", true, false},
		{"TSLA", "800", true, false},
		{"ZZZ", "100", false, true},
	}
	if len(quotes) != len(want) {
		t.Fatalf("got %d quotes, want %d: %+v", len(quotes), len(want), quotes)
	}
	for i, w := range want {
		q := quotes[i]
		if q.Symbol != w.symbol || !q.Price.Equal(dec(w.price)) || q.Listed != w.listed || q.Traded != w.traded {
			t.Errorf("quotes[%d] = %+v, want %+v", i, q, w)
		}
	}
}

func TestStockGetPrice(t *testing.T) {
	svc, _ := newTestStockService()

	q, err := svc.GetPrice("aapl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Symbol != "AAPL" || !q.Price.Equal(dec("170")) || !q.Listed {
		t.Errorf("GetPrice(aapl) = %+v", q)
	}

	q, err = svc.GetPrice("NEWCO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Price.Equal(dec("100")) || q.Listed {
		t.Errorf("GetPrice(NEWCO) = %+v, want unlisted at the default 100", q)
	}

	var ve *domain.ValidationError
	if _, err := svc.GetPrice("not a symbol"); !errors.As(err, &ve) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestStockSetPrice(t *testing.T) {
	svc, _ := newTestStockService()

	q, err := svc.SetPrice("newco", dec("12.5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Symbol != "NEWCO" || !q.Price.Equal(dec("12.5")) || !q.Listed {
		t.Errorf("SetPrice = %+v", q)
	}

	var ve *domain.ValidationError
	if _, err := svc.SetPrice("AAPL", dec("0")); !errors.As(err, &ve) {
		t.Errorf("zero price: got %v, want ValidationError", err)
	}
	if _, err := svc.SetPrice("??", dec("1")); !errors.As(err, &ve) {
		t.Errorf("bad symbol: got %v, want ValidationError", err)
	}

	q, _ = svc.GetPrice("AAPL")
	if !q.Price.Equal(dec("170")) {
		t.Errorf("rejected update moved AAPL to %s", q.Price)
	}
}
