// Package ledger implements a single-account trading ledger: a cash
// balance, share holdings and an append-only transaction log.
//
// A Ledger is not safe for concurrent use. Callers that share one across
// goroutines must serialise every call on it (see store.Session).
package ledger

import (
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/ids"
)

// PriceSource values shares. Price must be total: symbols it does not know
// get a fallback price rather than an error.
type PriceSource interface {
	Price(symbol string) decimal.Decimal
}

// Option configures a Ledger at construction.
type Option func(*Ledger)

// WithClock overrides the time source used for the creation timestamp and
// transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDs overrides the transaction id generator.
func WithIDs(next func() string) Option {
	return func(l *Ledger) { l.nextID = next }
}

func positionLess(a, b domain.Position) bool {
	return a.Symbol < b.Symbol
}

// Ledger is one trading account.
type Ledger struct {
	accountID string
	createdAt time.Time
	prices    PriceSource
	now       func() time.Time
	nextID    func() string

	balance        decimal.Decimal
	initialDeposit decimal.Decimal
	holdings       *btree.BTreeG[domain.Position] // ordered by symbol, quantities > 0
	transactions   []domain.Transaction
}

// New creates an empty ledger for accountID valued against prices.
func New(accountID string, prices PriceSource, opts ...Option) *Ledger {
	const degree = 8
	l := &Ledger{
		accountID:    accountID,
		prices:       prices,
		now:          time.Now,
		nextID:       ids.New,
		holdings:     btree.NewG[domain.Position](degree, positionLess),
		transactions: make([]domain.Transaction, 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.createdAt = l.now()
	return l
}

// ID returns the account identifier.
func (l *Ledger) ID() string { return l.accountID }

// CreatedAt returns the time the ledger was constructed.
func (l *Ledger) CreatedAt() time.Time { return l.createdAt }

// InitialDeposit returns the amount of the first successful deposit, or
// zero if there has been none. It is the profit/loss cost basis.
func (l *Ledger) InitialDeposit() decimal.Decimal { return l.initialDeposit }

// CheckDeposit reports why Deposit(amount) would be rejected, or nil.
func (l *Ledger) CheckDeposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrNonPositiveAmount
	}
	return nil
}

// Deposit adds amount to the balance. The first successful deposit also
// fixes the cost basis; later deposits never move it.
func (l *Ledger) Deposit(amount decimal.Decimal) bool {
	if l.CheckDeposit(amount) != nil {
		return false
	}
	l.balance = l.balance.Add(amount)
	l.record(domain.NewCashTransaction(l.nextID(), domain.TransactionDeposit, l.now(), amount))
	if l.initialDeposit.IsZero() {
		l.initialDeposit = amount
	}
	return true
}

// CheckWithdraw reports why Withdraw(amount) would be rejected, or nil.
func (l *Ledger) CheckWithdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrNonPositiveAmount
	}
	if amount.GreaterThan(l.balance) {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// Withdraw removes amount from the balance when 0 < amount <= balance.
func (l *Ledger) Withdraw(amount decimal.Decimal) bool {
	if l.CheckWithdraw(amount) != nil {
		return false
	}
	l.balance = l.balance.Sub(amount)
	l.record(domain.NewCashTransaction(l.nextID(), domain.TransactionWithdraw, l.now(), amount))
	return true
}

// CheckBuy reports why Buy(symbol, quantity) would be rejected at the
// current price, or nil.
func (l *Ledger) CheckBuy(symbol string, quantity int64) error {
	return l.checkBuy(quantity, l.prices.Price(symbol))
}

func (l *Ledger) checkBuy(quantity int64, price decimal.Decimal) error {
	if quantity <= 0 {
		return domain.ErrNonPositiveQuantity
	}
	if cost(price, quantity).GreaterThan(l.balance) {
		return domain.ErrInsufficientFunds
	}
	return nil
}

// Buy purchases quantity shares of symbol at the price source's current
// price, provided the balance covers the full cost.
func (l *Ledger) Buy(symbol string, quantity int64) bool {
	price := l.prices.Price(symbol)
	if l.checkBuy(quantity, price) != nil {
		return false
	}
	l.balance = l.balance.Sub(cost(price, quantity))
	l.holdings.ReplaceOrInsert(domain.Position{
		Symbol:   symbol,
		Quantity: l.Quantity(symbol) + quantity,
	})
	l.record(domain.NewTradeTransaction(l.nextID(), domain.TransactionBuy, l.now(), symbol, quantity, price))
	return true
}

// CheckSell reports why Sell(symbol, quantity) would be rejected, or nil.
func (l *Ledger) CheckSell(symbol string, quantity int64) error {
	if quantity <= 0 {
		return domain.ErrNonPositiveQuantity
	}
	held, ok := l.holdings.Get(domain.Position{Symbol: symbol})
	if !ok {
		return domain.ErrSymbolNotHeld
	}
	if held.Quantity < quantity {
		return domain.ErrInsufficientShares
	}
	return nil
}

// Sell disposes of quantity shares of symbol at the current price. A
// position sold down to zero is removed from the holdings.
func (l *Ledger) Sell(symbol string, quantity int64) bool {
	if l.CheckSell(symbol, quantity) != nil {
		return false
	}
	price := l.prices.Price(symbol)
	l.balance = l.balance.Add(cost(price, quantity))

	remaining := l.Quantity(symbol) - quantity
	if remaining == 0 {
		l.holdings.Delete(domain.Position{Symbol: symbol})
	} else {
		l.holdings.ReplaceOrInsert(domain.Position{Symbol: symbol, Quantity: remaining})
	}
	l.record(domain.NewTradeTransaction(l.nextID(), domain.TransactionSell, l.now(), symbol, quantity, price))
	return true
}

// Balance returns the available cash.
func (l *Ledger) Balance() decimal.Decimal { return l.balance }

// Quantity returns the number of shares of symbol held, 0 when none.
func (l *Ledger) Quantity(symbol string) int64 {
	p, ok := l.holdings.Get(domain.Position{Symbol: symbol})
	if !ok {
		return 0
	}
	return p.Quantity
}

// Holdings returns a copy of the symbol → quantity mapping. Mutating the
// result does not affect the ledger.
func (l *Ledger) Holdings() map[string]int64 {
	out := make(map[string]int64, l.holdings.Len())
	l.holdings.Ascend(func(p domain.Position) bool {
		out[p.Symbol] = p.Quantity
		return true
	})
	return out
}

// Positions returns the holdings ordered by symbol.
func (l *Ledger) Positions() []domain.Position {
	out := make([]domain.Position, 0, l.holdings.Len())
	l.holdings.Ascend(func(p domain.Position) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Valuations prices every position at the source's current price.
func (l *Ledger) Valuations() []domain.Valuation {
	out := make([]domain.Valuation, 0, l.holdings.Len())
	l.holdings.Ascend(func(p domain.Position) bool {
		out = append(out, domain.Valuation{Position: p, Price: l.prices.Price(p.Symbol)})
		return true
	})
	return out
}

// PortfolioValue returns balance plus the market value of every position,
// priced fresh on each call.
func (l *Ledger) PortfolioValue() decimal.Decimal {
	total := l.balance
	l.holdings.Ascend(func(p domain.Position) bool {
		total = total.Add(cost(l.prices.Price(p.Symbol), p.Quantity))
		return true
	})
	return total
}

// ProfitLoss returns PortfolioValue minus the first deposit. An untouched
// account reports zero. Later deposits and withdrawals are deliberately not
// folded into the basis.
func (l *Ledger) ProfitLoss() decimal.Decimal {
	if l.initialDeposit.IsZero() && len(l.transactions) == 0 {
		return decimal.Zero
	}
	return l.PortfolioValue().Sub(l.initialDeposit)
}

// Transactions returns a copy of the log in chronological order.
func (l *Ledger) Transactions() []domain.Transaction {
	out := make([]domain.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// LastTransaction returns the most recent transaction, if any.
func (l *Ledger) LastTransaction() (domain.Transaction, bool) {
	if len(l.transactions) == 0 {
		return domain.Transaction{}, false
	}
	return l.transactions[len(l.transactions)-1], true
}

// TransactionCount returns the length of the log.
func (l *Ledger) TransactionCount() int { return len(l.transactions) }

func (l *Ledger) record(tx domain.Transaction) {
	l.transactions = append(l.transactions, tx)
}

func cost(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}
