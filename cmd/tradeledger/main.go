package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/efreitasn/tradeledger/internal/config"
	"github.com/efreitasn/tradeledger/internal/domain"
	"github.com/efreitasn/tradeledger/internal/handler"
	"github.com/efreitasn/tradeledger/internal/obs"
	"github.com/efreitasn/tradeledger/internal/pricing"
	"github.com/efreitasn/tradeledger/internal/service"
	"github.com/efreitasn/tradeledger/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// -healthcheck: GET localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		if err := checkHealth(fmt.Sprintf("http://localhost:%s/healthz", port)); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := obs.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	// Prices: the reference table unless a price file is configured.
	seed := pricing.Reference()
	if cfg.PricesFile != "" {
		seed, err = pricing.LoadFile(cfg.PricesFile)
		if err != nil {
			logger.Error("failed to load prices", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("prices loaded", slog.String("file", cfg.PricesFile), slog.Int("symbols", len(seed.Quotes())))
	}
	board := pricing.NewBoard(seed)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := obs.NewMetrics(reg)

	// Stores.
	accountStore := store.NewAccountStore()
	webhookStore := store.NewWebhookStore()
	symbols := domain.NewSymbolRegistry()

	// Services (webhook first, it is the account service's notifier).
	webhookSvc := service.NewWebhookService(webhookStore, accountStore, cfg.WebhookTimeout, logger)
	accountSvc := service.NewAccountService(accountStore, board, symbols, webhookSvc, metrics, logger)
	stockSvc := service.NewStockService(board, symbols, logger)

	router := handler.NewRouter(
		handler.Services{Accounts: accountSvc, Stocks: stockSvc, Webhooks: webhookSvc},
		handler.Options{Metrics: metrics, RateLimitRPS: cfg.RateLimitRPS, RateLimitBurst: cfg.RateLimitBurst},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.NewReaper(cfg.ReapInterval, cfg.SessionTTL, accountStore, accountSvc, logger).Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}

// checkHealth reports whether url answers 200 within a few seconds.
func checkHealth(url string) error {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned %d", resp.StatusCode)
	}
	return nil
}
