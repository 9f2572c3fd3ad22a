package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/efreitasn/tradeledger/internal/store"
)

// Reaper periodically closes sessions that have been idle for longer than
// the configured TTL.
type Reaper struct {
	interval time.Duration
	ttl      time.Duration
	accounts *store.AccountStore
	svc      *AccountService
	logger   *slog.Logger
}

// NewReaper creates a Reaper. A zero ttl disables reaping.
func NewReaper(
	interval, ttl time.Duration,
	accounts *store.AccountStore,
	svc *AccountService,
	logger *slog.Logger,
) *Reaper {
	return &Reaper{
		interval: interval,
		ttl:      ttl,
		accounts: accounts,
		svc:      svc,
		logger:   logger,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and closes idle sessions. It stops when ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	if r.ttl <= 0 {
		r.logger.Info("session reaper disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				r.tick(t)
			}
		}
	}()
}

// tick closes every session last used before now - ttl and returns how
// many were closed.
func (r *Reaper) tick(now time.Time) int {
	cutoff := now.Add(-r.ttl)
	closed := 0
	// A session can be touched between IdleSince and CloseIdle; CloseIdle
	// re-checks the activity timestamp.
	for _, id := range r.accounts.IdleSince(cutoff) {
		if r.svc.CloseIdle(id, cutoff) {
			closed++
		}
	}
	if closed > 0 {
		r.logger.Info("idle sessions reaped", "count", closed)
	}
	return closed
}
