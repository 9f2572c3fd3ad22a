package service

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/pricing"
)

// StockQuote is the current price of one symbol.
type StockQuote struct {
	Symbol string
	Price  decimal.Decimal
	// Listed is false when Price is the board's default.
	Listed bool
	// Traded is true once any account has bought the symbol.
	Traded bool
}

// StockService exposes the price board.
type StockService struct {
	board   *pricing.Board
	symbols *domain.SymbolRegistry
	logger  *slog.Logger
}

// NewStockService creates a new StockService.
func NewStockService(board *pricing.Board, symbols *domain.SymbolRegistry, logger *slog.Logger) *StockService {
	return &StockService{board: board, symbols: symbols, logger: logger}
}

// List returns every listed or traded symbol, ordered by symbol.
func (s *StockService) List() []StockQuote {
	seen := make(map[string]bool)
	var out []StockQuote
	for _, q := range s.board.Quotes() {
		seen[q.Symbol] = true
		out = append(out, s.quote(q.Symbol))
	}
	for _, sym := range s.symbols.List() {
		if !seen[sym] {
			out = append(out, s.quote(sym))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	if out == nil {
		out = []StockQuote{}
	}
	return out
}

// GetPrice returns the current price of symbol. Unknown symbols are priced
// at the default.
func (s *StockService) GetPrice(symbol string) (*StockQuote, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	q := s.quote(sym)
	return &q, nil
}

// SetPrice moves the price of symbol on the board.
func (s *StockService) SetPrice(symbol string, price decimal.Decimal) (*StockQuote, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	previous := s.board.Price(sym)
	if err := s.board.Set(sym, price); err != nil {
		return nil, err
	}
	s.logger.Info("price updated", "symbol", sym, "from", previous.String(), "to", price.String())

	q := s.quote(sym)
	return &q, nil
}

func (s *StockService) quote(sym string) StockQuote {
	return StockQuote{
		Symbol: sym,
		Price:  s.board.Price(sym),
		Listed: s.board.Listed(sym),
		Traded: s.symbols.Exists(sym),
	}
}

// DefaultPrice returns the price given to symbols without their own.
func (s *StockService) DefaultPrice() decimal.Decimal {
	return s.board.Default()
}
