package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/store"
)

func newTestWebhookService(t *testing.T, accountIDs ...string) (*WebhookService, *store.WebhookStore) {
	t.Helper()
	f := newAccountFixture()
	for _, id := range accountIDs {
		f.open(t, id)
	}
	ws := store.NewWebhookStore()
	svc := NewWebhookService(ws, f.accounts, 5*time.Second, slog.New(slog.DiscardHandler))
	svc.now = func() time.Time { return testEpoch }
	return svc, ws
}

type capturedDelivery struct {
	header http.Header
	body   map[string]any
}

// newCaptureServer starts a TLS server that forwards every request it
// receives on the returned channel.
func newCaptureServer(t *testing.T, status int) (*httptest.Server, <-chan capturedDelivery) {
	t.Helper()
	ch := make(chan capturedDelivery, 8)
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		json.Unmarshal(raw, &body)
		ch <- capturedDelivery{header: r.Header.Clone(), body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, ch
}

func waitDelivery(t *testing.T, ch <-chan capturedDelivery) capturedDelivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
		return capturedDelivery{}
	}
}

// --- Upsert ---

func TestWebhookUpsert_Created(t *testing.T) {
	svc, _ := newTestWebhookService(t, "alice")

	webhooks, created, err := svc.Upsert(UpsertWebhookRequest{
		AccountID: "alice",
		URL:       "https://example.com/hooks",
		Events:    []string{domain.EventTransactionRecorded, domain.EventAccountClosed, domain.EventTransactionRecorded},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("created = false for fresh subscriptions")
	}
	if len(webhooks) != 2 {
		t.Fatalf("got %d webhooks, want 2 after dedupe", len(webhooks))
	}
	if webhooks[0].Event != domain.EventTransactionRecorded || webhooks[1].Event != domain.EventAccountClosed {
		t.Errorf("events = %s, %s; want request order", webhooks[0].Event, webhooks[1].Event)
	}
	if !webhooks[0].CreatedAt.Equal(testEpoch) {
		t.Errorf("CreatedAt = %v, want %v", webhooks[0].CreatedAt, testEpoch)
	}
}

func TestWebhookUpsert_ReplaceURLKeepsID(t *testing.T) {
	svc, _ := newTestWebhookService(t, "alice")

	first, _, _ := svc.Upsert(UpsertWebhookRequest{
		AccountID: "alice", URL: "https://example.com/old", Events: []string{domain.EventAccountClosed},
	})
	second, created, err := svc.Upsert(UpsertWebhookRequest{
		AccountID: "alice", URL: "https://example.com/new", Events: []string{domain.EventAccountClosed},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("created = true when only the URL changed")
	}
	if second[0].WebhookID != first[0].WebhookID {
		t.Errorf("webhook id changed from %s to %s", first[0].WebhookID, second[0].WebhookID)
	}
	if second[0].URL != "https://example.com/new" {
		t.Errorf("URL = %q, want the new one", second[0].URL)
	}
}

func TestWebhookUpsert_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  UpsertWebhookRequest
	}{
		{"empty url", UpsertWebhookRequest{URL: "", Events: []string{domain.EventAccountClosed}}},
		{"http scheme", UpsertWebhookRequest{URL: "http://example.com", Events: []string{domain.EventAccountClosed}}},
		{"relative url", UpsertWebhookRequest{URL: "/hooks", Events: []string{domain.EventAccountClosed}}},
		{"url too long", UpsertWebhookRequest{URL: "https://example.com/" + strings.Repeat("a", 2048), Events: []string{domain.EventAccountClosed}}},
		{"no events", UpsertWebhookRequest{URL: "https://example.com", Events: nil}},
		{"unknown event", UpsertWebhookRequest{URL: "https://example.com", Events: []string{"trade.executed"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ws := newTestWebhookService(t, "alice")
			tt.req.AccountID = "alice"

			_, _, err := svc.Upsert(tt.req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if n := len(ws.ListByAccount("alice")); n != 0 {
				t.Errorf("invalid request stored %d webhooks", n)
			}
		})
	}
}

func TestWebhookUpsert_AccountNotFound(t *testing.T) {
	svc, _ := newTestWebhookService(t)

	_, _, err := svc.Upsert(UpsertWebhookRequest{
		AccountID: "ghost", URL: "https://example.com", Events: []string{domain.EventAccountClosed},
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}

func TestWebhookUpsert_ConcurrentCloseLeavesNoSubscription(t *testing.T) {
	f := newAccountFixture()
	webhookStore := store.NewWebhookStore()
	ws := NewWebhookService(webhookStore, f.accounts, time.Second, slog.New(slog.DiscardHandler))
	f.svc.notifier = ws

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("acct-%d", i)
		f.open(t, id)

		var wg sync.WaitGroup
		var upsertErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, upsertErr = ws.Upsert(UpsertWebhookRequest{
				AccountID: id,
				URL:       "https://example.com/hook",
				Events:    []string{domain.EventTransactionRecorded},
			})
		}()
		go func() {
			defer wg.Done()
			f.svc.Close(id)
		}()
		wg.Wait()

		if upsertErr != nil && !errors.Is(upsertErr, domain.ErrAccountNotFound) {
			t.Fatalf("Upsert(%s): unexpected error: %v", id, upsertErr)
		}
		if n := len(webhookStore.ListByAccount(id)); n != 0 {
			t.Fatalf("%s: %d subscriptions outlived the closed account", id, n)
		}
	}
}

func TestWebhookUpsert_ReopenedAccountStartsClean(t *testing.T) {
	f := newAccountFixture()
	webhookStore := store.NewWebhookStore()
	ws := NewWebhookService(webhookStore, f.accounts, time.Second, slog.New(slog.DiscardHandler))
	f.svc.notifier = ws

	f.open(t, "alice")
	if _, _, err := ws.Upsert(UpsertWebhookRequest{
		AccountID: "alice", URL: "https://example.com/old", Events: []string{domain.EventTransactionRecorded},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	f.svc.Close("alice")
	f.open(t, "alice")

	if n := len(webhookStore.ListByAccount("alice")); n != 0 {
		t.Errorf("reopened account inherited %d subscriptions", n)
	}
}

func TestWebhookListAndDelete(t *testing.T) {
	svc, _ := newTestWebhookService(t, "alice")

	if list, err := svc.List("alice"); err != nil || len(list) != 0 {
		t.Fatalf("List on fresh account = %v, %v", list, err)
	}
	if _, err := svc.List("ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("List(ghost) = %v, want ErrAccountNotFound", err)
	}

	hooks, _, _ := svc.Upsert(UpsertWebhookRequest{
		AccountID: "alice", URL: "https://example.com", Events: []string{domain.EventTransactionRecorded},
	})
	if err := svc.Delete(hooks[0].WebhookID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(hooks[0].WebhookID); !errors.Is(err, domain.ErrWebhookNotFound) {
		t.Errorf("second Delete = %v, want ErrWebhookNotFound", err)
	}
	if list, _ := svc.List("alice"); len(list) != 0 {
		t.Errorf("List after delete = %v", list)
	}
}

// --- Delivery ---

func TestDispatchTransactionRecorded_EndToEnd(t *testing.T) {
	server, deliveries := newCaptureServer(t, http.StatusOK)

	f := newAccountFixture()
	ws := NewWebhookService(store.NewWebhookStore(), f.accounts, time.Second, slog.New(slog.DiscardHandler))
	ws.client = server.Client()
	f.svc.notifier = ws
	f.open(t, "alice")

	hooks, _, err := ws.Upsert(UpsertWebhookRequest{
		AccountID: "alice", URL: server.URL + "/hook", Events: []string{domain.EventTransactionRecorded},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	f.svc.Deposit("alice", dec("1000"))
	d := waitDelivery(t, deliveries)
	if d.header.Get("X-Event-Type") != domain.EventTransactionRecorded {
		t.Errorf("X-Event-Type = %q", d.header.Get("X-Event-Type"))
	}
	if d.header.Get("X-Webhook-Id") != hooks[0].WebhookID {
		t.Errorf("X-Webhook-Id = %q, want %q", d.header.Get("X-Webhook-Id"), hooks[0].WebhookID)
	}
	if d.header.Get("X-Delivery-Id") == "" {
		t.Error("missing X-Delivery-Id")
	}
	data := d.body["data"].(map[string]any)
	if data["type"] != "deposit" || data["amount"] != "1000" || data["balance"] != "1000" {
		t.Errorf("deposit payload data = %v", data)
	}
	if _, ok := data["symbol"]; ok {
		t.Error("deposit payload carries a symbol")
	}

	f.svc.Buy("alice", "AAPL", 2)
	d = waitDelivery(t, deliveries)
	data = d.body["data"].(map[string]any)
	if data["type"] != "buy" || data["symbol"] != "AAPL" || data["quantity"] != float64(2) || data["price"] != "170" {
		t.Errorf("buy payload data = %v", data)
	}
	if _, ok := data["amount"]; ok {
		t.Error("buy payload carries an amount")
	}
	if data["balance"] != "660" {
		t.Errorf("balance = %v, want 660", data["balance"])
	}
}

func TestDispatchAccountClosed_DeliversAndForgetsSubscriptions(t *testing.T) {
	server, deliveries := newCaptureServer(t, http.StatusOK)

	f := newAccountFixture()
	webhookStore := store.NewWebhookStore()
	ws := NewWebhookService(webhookStore, f.accounts, time.Second, slog.New(slog.DiscardHandler))
	ws.client = server.Client()
	f.svc.notifier = ws
	f.open(t, "alice")

	ws.Upsert(UpsertWebhookRequest{
		AccountID: "alice",
		URL:       server.URL,
		Events:    []string{domain.EventAccountClosed, domain.EventTransactionRecorded},
	})
	if _, err := f.svc.Close("alice"); err != nil {
		t.Fatalf("close: %v", err)
	}

	d := waitDelivery(t, deliveries)
	if d.body["event"] != domain.EventAccountClosed {
		t.Errorf("event = %v", d.body["event"])
	}
	data := d.body["data"].(map[string]any)
	if data["account_id"] != "alice" || data["reason"] != CloseReasonRequested || data["balance"] != "0" {
		t.Errorf("closed payload data = %v", data)
	}
	if n := len(webhookStore.ListByAccount("alice")); n != 0 {
		t.Errorf("%d subscriptions survived account close", n)
	}
}

func TestDispatch_NoSubscription_NoRequest(t *testing.T) {
	server, deliveries := newCaptureServer(t, http.StatusOK)

	f := newAccountFixture()
	ws := NewWebhookService(store.NewWebhookStore(), f.accounts, time.Second, slog.New(slog.DiscardHandler))
	ws.client = server.Client()
	f.svc.notifier = ws
	f.open(t, "alice")

	f.svc.Deposit("alice", dec("5"))
	f.svc.Close("alice")

	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery: %v", d.body)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatch_ServerErrorIgnored(t *testing.T) {
	server, deliveries := newCaptureServer(t, http.StatusInternalServerError)

	f := newAccountFixture()
	ws := NewWebhookService(store.NewWebhookStore(), f.accounts, time.Second, slog.New(slog.DiscardHandler))
	ws.client = server.Client()
	f.svc.notifier = ws
	f.open(t, "alice")
	ws.Upsert(UpsertWebhookRequest{AccountID: "alice", URL: server.URL, Events: []string{domain.EventTransactionRecorded}})

	if _, err := f.svc.Deposit("alice", dec("5")); err != nil {
		t.Fatalf("deposit failed because of the subscriber: %v", err)
	}
	waitDelivery(t, deliveries)
}
