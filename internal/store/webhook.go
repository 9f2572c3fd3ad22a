package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/tradeledger/internal/domain"
)

// WebhookStore keeps webhook subscriptions in memory. Subscriptions are
// unique per (account, event); the webhook id of the first registration is
// kept when the URL is later replaced.
type WebhookStore struct {
	mu        sync.RWMutex
	webhooks  map[string]*domain.Webhook            // webhook_id → webhook
	byAccount map[string]map[string]*domain.Webhook // account_id → event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks:  make(map[string]*domain.Webhook),
		byAccount: make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert registers w, or points the existing (account, event) subscription
// at w.URL. Returns true only when a new subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byAccount[w.AccountID][w.Event]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		return false
	}

	s.webhooks[w.WebhookID] = w
	events := s.byAccount[w.AccountID]
	if events == nil {
		events = make(map[string]*domain.Webhook)
		s.byAccount[w.AccountID] = events
	}
	events[w.Event] = w
	return true
}

// Get returns the webhook with the given id or domain.ErrWebhookNotFound.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// ListByAccount returns the account's subscriptions ordered by event name.
// The result is never nil.
func (s *WebhookStore) ListByAccount(accountID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byAccount[accountID]
	out := make([]*domain.Webhook, 0, len(events))
	for _, w := range events {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out
}

// GetByAccountEvent returns a copy of the subscription for
// (accountID, event), or nil. The copy is safe to read after later upserts.
func (s *WebhookStore) GetByAccountEvent(accountID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byAccount[accountID][event]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}

// Delete removes a webhook from both indexes.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	s.unindex(w)
	return nil
}

// DeleteByAccount drops every subscription of an account and returns how
// many were removed.
func (s *WebhookStore) DeleteByAccount(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.byAccount[accountID]
	for _, w := range events {
		s.unindex(w)
	}
	return len(events)
}

// unindex must be called with mu held.
func (s *WebhookStore) unindex(w *domain.Webhook) {
	delete(s.webhooks, w.WebhookID)
	if events, ok := s.byAccount[w.AccountID]; ok {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.byAccount, w.AccountID)
		}
	}
}
