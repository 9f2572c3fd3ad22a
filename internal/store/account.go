package store

import (
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/ledger"
)

// Session owns one account's ledger. The ledger itself is not safe for
// concurrent use, so every access goes through the session lock.
type Session struct {
	mu         sync.Mutex
	ledger     *ledger.Ledger
	lastActive time.Time
}

// NewSession wraps l. The session counts as active from openedAt.
func NewSession(l *ledger.Ledger, openedAt time.Time) *Session {
	return &Session{ledger: l, lastActive: openedAt}
}

// ID returns the account id of the wrapped ledger.
func (s *Session) ID() string {
	return s.ledger.ID()
}

// Do runs fn with exclusive access to the ledger and marks the session
// active at now.
func (s *Session) Do(now time.Time, fn func(l *ledger.Ledger)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now
	fn(s.ledger)
}

// View runs fn with exclusive access to the ledger without touching the
// activity timestamp.
func (s *Session) View(fn func(l *ledger.Ledger)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ledger)
}

// LastActive returns when the session was last used through Do.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// AccountStore is a thread-safe in-memory store of sessions keyed by
// account id.
type AccountStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		sessions: make(map[string]*Session),
	}
}

// Create adds a session. It returns domain.ErrAccountAlreadyExists if the
// account id is taken.
func (s *AccountStore) Create(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID()]; exists {
		return domain.ErrAccountAlreadyExists
	}
	s.sessions[sess.ID()] = sess
	return nil
}

// Get retrieves a session by account id. It returns
// domain.ErrAccountNotFound if there is none.
func (s *AccountStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return sess, nil
}

// Exists returns true if a session with the given account id exists.
func (s *AccountStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[id]
	return ok
}

// Delete removes a session. It returns domain.ErrAccountNotFound if there
// is none.
func (s *AccountStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(s.sessions, id)
	return nil
}

// IDs returns every account id in ascending order.
func (s *AccountStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IdleSince returns the ids of sessions not used since cutoff, in
// ascending order.
func (s *AccountStore) IdleSince(cutoff time.Time) []string {
	s.mu.RLock()
	candidates := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		candidates = append(candidates, sess)
	}
	s.mu.RUnlock()

	var idle []string
	for _, sess := range candidates {
		if sess.LastActive().Before(cutoff) {
			idle = append(idle, sess.ID())
		}
	}
	sort.Strings(idle)
	return idle
}
