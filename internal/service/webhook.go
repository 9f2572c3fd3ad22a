package service

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/store"
)

var validWebhookEvents = map[string]bool{
	domain.EventTransactionRecorded: true,
	domain.EventAccountClosed:       true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	AccountID string
	URL       string
	Events    []string
}

// WebhookService handles webhook subscriptions and event delivery.
type WebhookService struct {
	store    *store.WebhookStore
	accounts *store.AccountStore
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// NewWebhookService creates a new WebhookService. Deliveries are bounded by
// timeout.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	accounts *store.AccountStore,
	timeout time.Duration,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		store:    webhookStore,
		accounts: accounts,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Upsert validates the request and creates or updates one subscription per
// event. It also reports whether any subscription was new.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	sess, err := s.accounts.Get(req.AccountID)
	if err != nil {
		return nil, false, err
	}
	if err := validateWebhookURL(req.URL); err != nil {
		return nil, false, err
	}
	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	seen := make(map[string]bool, len(req.Events))
	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "unknown event type " + event + ", must be one of: " +
					domain.EventTransactionRecorded + ", " + domain.EventAccountClosed,
			}
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}

	now := s.now().Truncate(time.Second)
	var created []string
	webhooks := make([]*domain.Webhook, 0, len(events))
	for _, event := range events {
		w := &domain.Webhook{
			WebhookID: uuid.NewString(),
			AccountID: req.AccountID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if s.store.Upsert(w) {
			created = append(created, w.WebhookID)
		} else {
			w = s.store.GetByAccountEvent(req.AccountID, event)
		}
		if w != nil {
			webhooks = append(webhooks, w)
		}
	}

	// A close that ran since the lookup has already dropped the account's
	// subscriptions, so the ones created here would outlive the session.
	if cur, err := s.accounts.Get(req.AccountID); err != nil || cur != sess {
		for _, id := range created {
			s.store.Delete(id)
		}
		return nil, false, domain.ErrAccountNotFound
	}
	return webhooks, len(created) > 0, nil
}

func validateWebhookURL(raw string) error {
	switch {
	case raw == "":
		return &domain.ValidationError{Message: "url is required"}
	case len(raw) > 2048:
		return &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if !strings.EqualFold(parsed.Scheme, "https") {
		return &domain.ValidationError{Message: "url must use https scheme"}
	}
	return nil
}

// List returns the account's subscriptions ordered by event.
func (s *WebhookService) List(accountID string) ([]*domain.Webhook, error) {
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	return s.store.ListByAccount(accountID), nil
}

// Delete removes a subscription by id.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

type eventEnvelope struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type transactionRecordedData struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	Type          string `json:"type"`
	Symbol        string `json:"symbol,omitempty"`
	Quantity      int64  `json:"quantity,omitempty"`
	Price         string `json:"price,omitempty"`
	Amount        string `json:"amount,omitempty"`
	Balance       string `json:"balance"`
}

type accountClosedData struct {
	AccountID        string `json:"account_id"`
	Reason           string `json:"reason"`
	Balance          string `json:"balance"`
	PortfolioValue   string `json:"portfolio_value"`
	ProfitLoss       string `json:"profit_loss"`
	TransactionCount int    `json:"transaction_count"`
}

// DispatchTransactionRecorded notifies the account's transaction.recorded
// subscriber, if any. Delivery is fire-and-forget.
func (s *WebhookService) DispatchTransactionRecorded(accountID string, receipt *Receipt) {
	wh := s.store.GetByAccountEvent(accountID, domain.EventTransactionRecorded)
	if wh == nil {
		return
	}

	tx := receipt.Transaction
	data := transactionRecordedData{
		AccountID:     accountID,
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Symbol:        tx.Symbol,
		Quantity:      tx.Quantity,
		Price:         nullString(tx.Price),
		Amount:        nullString(tx.Amount),
		Balance:       receipt.Balance.String(),
	}
	go s.deliver(wh, eventEnvelope{
		Event:     domain.EventTransactionRecorded,
		Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// DispatchAccountClosed notifies the account's account.closed subscriber,
// if any, and drops every subscription of the account.
func (s *WebhookService) DispatchAccountClosed(c *Closure) {
	wh := s.store.GetByAccountEvent(c.AccountID, domain.EventAccountClosed)
	s.store.DeleteByAccount(c.AccountID)
	if wh == nil {
		return
	}

	go s.deliver(wh, eventEnvelope{
		Event:     domain.EventAccountClosed,
		Timestamp: c.ClosedAt.UTC().Format(time.RFC3339),
		Data: accountClosedData{
			AccountID:        c.AccountID,
			Reason:           c.Reason,
			Balance:          c.Balance.String(),
			PortfolioValue:   c.PortfolioValue.String(),
			ProfitLoss:       c.ProfitLoss.String(),
			TransactionCount: c.TransactionCount,
		},
	})
}

// deliver POSTs the envelope to the subscriber. Failures are logged and
// dropped.
func (s *WebhookService) deliver(wh *domain.Webhook, env eventEnvelope) {
	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("webhook payload encoding failed", "webhook_id", wh.WebhookID, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("webhook request build failed", "webhook_id", wh.WebhookID, "error", err)
		return
	}
	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", env.Event)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			"webhook_id", wh.WebhookID, "delivery_id", deliveryID, "error", err)
		return
	}
	resp.Body.Close()
	s.logger.Debug("webhook delivered",
		"webhook_id", wh.WebhookID, "delivery_id", deliveryID, "status", resp.StatusCode)
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
