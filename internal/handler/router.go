package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradeledger/internal/obs"
	"github.com/efreitasn/tradeledger/internal/service"
)

// Services groups the services the router dispatches to.
type Services struct {
	Accounts *service.AccountService
	Stocks   *service.StockService
	Webhooks *service.WebhookService
}

// Options configures router middleware. A zero RateLimitRPS disables rate
// limiting; a nil Metrics disables instrumentation and /metrics.
type Options struct {
	Metrics        *obs.Metrics
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter creates a chi router with all routes registered, request logging,
// metrics, rate limiting and Content-Type validation middleware.
func NewRouter(svcs Services, opts Options, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))
	r.Use(opts.Metrics.Instrument)
	r.Use(rateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	r.Use(contentTypeJSON)

	accountH := NewAccountHandler(svcs.Accounts)
	stockH := NewStockHandler(svcs.Stocks)
	webhookH := NewWebhookHandler(svcs.Webhooks)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", opts.Metrics.Handler())

	r.Post("/accounts", accountH.Open)
	r.Route("/accounts/{account_id}", func(r chi.Router) {
		r.Get("/", accountH.Get)
		r.Delete("/", accountH.Close)

		r.Post("/deposit", accountH.Deposit)
		r.Post("/withdraw", accountH.Withdraw)
		r.Post("/buy", accountH.Buy)
		r.Post("/sell", accountH.Sell)

		r.Get("/balance", accountH.GetBalance)
		r.Get("/holdings", accountH.GetHoldings)
		r.Get("/portfolio", accountH.GetPortfolio)
		r.Get("/profit-loss", accountH.GetProfitLoss)
		r.Get("/transactions", accountH.ListTransactions)

		r.Post("/webhooks", webhookH.Upsert)
		r.Get("/webhooks", webhookH.List)
	})

	r.Get("/stocks", stockH.List)
	r.Get("/stocks/{symbol}/price", stockH.GetPrice)
	r.Put("/stocks/{symbol}/price", stockH.SetPrice)

	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH requests whose Content-Type
// is not application/json before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
