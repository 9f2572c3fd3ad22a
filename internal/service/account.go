package service

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/ledger"
	"github.com/efreitasn/tradeledger/internal/obs"
	"github.com/efreitasn/tradeledger/internal/store"
)

var accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Operation names used for metrics and logs.
const (
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpBuy      = "buy"
	OpSell     = "sell"
)

// Close reasons carried by account.closed notifications.
const (
	CloseReasonRequested = "requested"
	CloseReasonIdle      = "idle"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Notifier receives account events after the session lock is released.
type Notifier interface {
	DispatchTransactionRecorded(accountID string, receipt *Receipt)
	DispatchAccountClosed(closure *Closure)
}

// AccountSummary is a point-in-time view of one account.
type AccountSummary struct {
	AccountID        string
	Balance          decimal.Decimal
	InitialDeposit   decimal.Decimal
	PortfolioValue   decimal.Decimal
	ProfitLoss       decimal.Decimal
	Holdings         []domain.Valuation
	TransactionCount int
	CreatedAt        time.Time
}

// Receipt describes a successful mutation.
type Receipt struct {
	Transaction domain.Transaction
	Balance     decimal.Decimal
}

// ProfitLossReport breaks profit/loss into its inputs.
type ProfitLossReport struct {
	InitialDeposit decimal.Decimal
	PortfolioValue decimal.Decimal
	ProfitLoss     decimal.Decimal
}

// Closure is the final state of a closed account.
type Closure struct {
	AccountID        string
	Reason           string
	ClosedAt         time.Time
	Balance          decimal.Decimal
	PortfolioValue   decimal.Decimal
	ProfitLoss       decimal.Decimal
	TransactionCount int
}

// TransactionQuery filters and pages an account's transaction log.
// Zero values select every type, page 1 and the default limit.
type TransactionQuery struct {
	Type  domain.TransactionType
	Page  int
	Limit int
}

// TransactionPage is one page of the log, oldest first.
type TransactionPage struct {
	Items []domain.Transaction
	Page  int
	Limit int
	Total int
}

// AccountService opens and closes account sessions and runs ledger
// operations against them.
type AccountService struct {
	accounts *store.AccountStore
	prices   ledger.PriceSource
	symbols  *domain.SymbolRegistry
	notifier Notifier
	metrics  *obs.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccountService creates a new AccountService. notifier and metrics may
// be nil.
func NewAccountService(
	accounts *store.AccountStore,
	prices ledger.PriceSource,
	symbols *domain.SymbolRegistry,
	notifier Notifier,
	metrics *obs.Metrics,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		prices:   prices,
		symbols:  symbols,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Open starts a new session with an empty ledger. An empty accountID gets
// a generated uuid.
func (s *AccountService) Open(accountID string) (*AccountSummary, error) {
	if accountID == "" {
		accountID = uuid.NewString()
	}
	if !accountIDRegex.MatchString(accountID) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}

	l := ledger.New(accountID, s.prices, ledger.WithClock(s.now))
	sess := store.NewSession(l, l.CreatedAt())
	if err := s.accounts.Create(sess); err != nil {
		return nil, err
	}
	s.metrics.SessionOpened()
	s.logger.Info("account opened", "account_id", accountID)

	var summary *AccountSummary
	sess.View(func(l *ledger.Ledger) { summary = summarize(l) })
	return summary, nil
}

// Close ends a session at the caller's request.
func (s *AccountService) Close(accountID string) (*Closure, error) {
	sess, err := s.accounts.Get(accountID)
	if err != nil {
		return nil, err
	}
	return s.close(sess, CloseReasonRequested)
}

// CloseIdle closes the session if it has not been used since cutoff. It
// reports whether the session was closed.
func (s *AccountService) CloseIdle(accountID string, cutoff time.Time) bool {
	sess, err := s.accounts.Get(accountID)
	if err != nil || !sess.LastActive().Before(cutoff) {
		return false
	}
	_, err = s.close(sess, CloseReasonIdle)
	return err == nil
}

func (s *AccountService) close(sess *store.Session, reason string) (*Closure, error) {
	if err := s.accounts.Delete(sess.ID()); err != nil {
		return nil, err
	}

	closure := &Closure{AccountID: sess.ID(), Reason: reason, ClosedAt: s.now()}
	sess.View(func(l *ledger.Ledger) {
		closure.Balance = l.Balance()
		closure.PortfolioValue = l.PortfolioValue()
		closure.ProfitLoss = l.ProfitLoss()
		closure.TransactionCount = l.TransactionCount()
	})

	s.metrics.SessionClosed()
	s.logger.Info("account closed", "account_id", closure.AccountID, "reason", reason)
	if s.notifier != nil {
		s.notifier.DispatchAccountClosed(closure)
	}
	return closure, nil
}

// Summary returns the account's balance, valuation and holdings.
func (s *AccountService) Summary(accountID string) (*AccountSummary, error) {
	var summary *AccountSummary
	err := s.read(accountID, func(l *ledger.Ledger) { summary = summarize(l) })
	return summary, err
}

// Deposit adds amount to the account's cash.
func (s *AccountService) Deposit(accountID string, amount decimal.Decimal) (*Receipt, error) {
	return s.mutate(accountID, OpDeposit,
		func(l *ledger.Ledger) error { return l.CheckDeposit(amount) },
		func(l *ledger.Ledger) bool { return l.Deposit(amount) },
	)
}

// Withdraw removes amount from the account's cash.
func (s *AccountService) Withdraw(accountID string, amount decimal.Decimal) (*Receipt, error) {
	return s.mutate(accountID, OpWithdraw,
		func(l *ledger.Ledger) error { return l.CheckWithdraw(amount) },
		func(l *ledger.Ledger) bool { return l.Withdraw(amount) },
	)
}

// Buy purchases quantity shares of symbol at the current price.
func (s *AccountService) Buy(accountID, symbol string, quantity int64) (*Receipt, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	receipt, err := s.mutate(accountID, OpBuy,
		func(l *ledger.Ledger) error { return l.CheckBuy(sym, quantity) },
		func(l *ledger.Ledger) bool { return l.Buy(sym, quantity) },
	)
	if err == nil && s.symbols != nil {
		s.symbols.Register(sym)
	}
	return receipt, err
}

// Sell disposes of quantity shares of symbol at the current price.
func (s *AccountService) Sell(accountID, symbol string, quantity int64) (*Receipt, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.mutate(accountID, OpSell,
		func(l *ledger.Ledger) error { return l.CheckSell(sym, quantity) },
		func(l *ledger.Ledger) bool { return l.Sell(sym, quantity) },
	)
}

// mutate applies one ledger mutation under the session lock. A rejected
// mutation is explained by its Check counterpart.
func (s *AccountService) mutate(
	accountID, op string,
	check func(*ledger.Ledger) error,
	apply func(*ledger.Ledger) bool,
) (*Receipt, error) {
	sess, err := s.accounts.Get(accountID)
	if err != nil {
		return nil, err
	}

	var (
		receipt *Receipt
		reason  error
	)
	sess.Do(s.now(), func(l *ledger.Ledger) {
		if !apply(l) {
			reason = check(l)
			if reason == nil {
				// The price moved after Buy rejected the cost.
				reason = domain.ErrInsufficientFunds
			}
			return
		}
		tx, _ := l.LastTransaction()
		receipt = &Receipt{Transaction: tx, Balance: l.Balance()}
	})

	s.metrics.ObserveOperation(op, reason == nil)
	if reason != nil {
		s.logger.Debug("operation rejected", "account_id", accountID, "operation", op, "reason", reason.Error())
		return nil, reason
	}
	if s.notifier != nil {
		s.notifier.DispatchTransactionRecorded(accountID, receipt)
	}
	return receipt, nil
}

// Balance returns the account's cash.
func (s *AccountService) Balance(accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.read(accountID, func(l *ledger.Ledger) { balance = l.Balance() })
	return balance, err
}

// Holdings returns the account's positions ordered by symbol, each priced
// at the current price.
func (s *AccountService) Holdings(accountID string) ([]domain.Valuation, error) {
	var holdings []domain.Valuation
	err := s.read(accountID, func(l *ledger.Ledger) { holdings = l.Valuations() })
	return holdings, err
}

// PortfolioValue returns cash plus the market value of every position.
func (s *AccountService) PortfolioValue(accountID string) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := s.read(accountID, func(l *ledger.Ledger) { value = l.PortfolioValue() })
	return value, err
}

// ProfitLoss returns the account's profit or loss against its first
// deposit.
func (s *AccountService) ProfitLoss(accountID string) (*ProfitLossReport, error) {
	var report *ProfitLossReport
	err := s.read(accountID, func(l *ledger.Ledger) {
		report = &ProfitLossReport{
			InitialDeposit: l.InitialDeposit(),
			PortfolioValue: l.PortfolioValue(),
			ProfitLoss:     l.ProfitLoss(),
		}
	})
	return report, err
}

// Transactions returns one page of the account's log, oldest first.
func (s *AccountService) Transactions(accountID string, q TransactionQuery) (*TransactionPage, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("type must be one of deposit, withdraw, buy, sell, got %q", q.Type),
		}
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return nil, &domain.ValidationError{Message: "page must be >= 1"}
	}
	if q.Limit == 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit < 1 || q.Limit > maxPageLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", maxPageLimit),
		}
	}

	var all []domain.Transaction
	if err := s.read(accountID, func(l *ledger.Ledger) { all = l.Transactions() }); err != nil {
		return nil, err
	}

	matched := all
	if q.Type != "" {
		matched = make([]domain.Transaction, 0, len(all))
		for _, tx := range all {
			if tx.Type == q.Type {
				matched = append(matched, tx)
			}
		}
	}

	page := &TransactionPage{Items: []domain.Transaction{}, Page: q.Page, Limit: q.Limit, Total: len(matched)}
	// Compare against the page count first; (Page-1)*Limit can overflow.
	if pages := (len(matched) + q.Limit - 1) / q.Limit; q.Page <= pages {
		start := (q.Page - 1) * q.Limit
		end := min(start+q.Limit, len(matched))
		page.Items = matched[start:end]
	}
	return page, nil
}

// read runs fn under the session lock. Reads count as activity.
func (s *AccountService) read(accountID string, fn func(*ledger.Ledger)) error {
	sess, err := s.accounts.Get(accountID)
	if err != nil {
		return err
	}
	sess.Do(s.now(), fn)
	return nil
}

func summarize(l *ledger.Ledger) *AccountSummary {
	return &AccountSummary{
		AccountID:        l.ID(),
		Balance:          l.Balance(),
		InitialDeposit:   l.InitialDeposit(),
		PortfolioValue:   l.PortfolioValue(),
		ProfitLoss:       l.ProfitLoss(),
		Holdings:         l.Valuations(),
		TransactionCount: l.TransactionCount(),
		CreatedAt:        l.CreatedAt(),
	}
}
