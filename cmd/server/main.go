package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adpipe/internal/delivery"
	"adpipe/internal/infrastructure"
	"adpipe/internal/usecase"
	"adpipe/pkg/config"
	"adpipe/pkg/logger"
	"adpipe/pkg/metrics"

	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting ad click pipeline")

	m := metrics.New()

	// Core: one broker per process, passed to every stage at wiring time.
	broker := infrastructure.NewEventBroker(log, m)
	budgets := infrastructure.NewBudgetStore(cfg.Billing.DefaultInitialBudget, log)
	for advertiserID, initial := range cfg.Billing.InitialBudgets {
		budgets.Provision(advertiserID, initial)
	}

	fraud := usecase.NewFraudService(broker, infrastructure.NewRandJitter(), log, m)
	billing := usecase.NewBillingService(broker, budgets, infrastructure.NewSystemClock(), cfg.Billing, log, m)
	analytics := usecase.NewAnalyticsService(broker, log)
	pipeline := usecase.NewPipeline(broker, budgets, fraud, billing, analytics, log)

	// Subscribers attach before ingestion can publish anything.
	pipeline.Start()
	defer pipeline.Stop()

	ingest := usecase.NewIngestService(broker, cfg.Ingest, log, m)

	limiter := rate.NewLimiter(rate.Limit(cfg.Ingest.RateLimitPerSecond), cfg.Ingest.RateLimitBurst)
	handlers := delivery.NewHTTPHandlers(ingest, pipeline, broker, log, m)
	router := delivery.NewHTTPRouter(handlers, limiter, log, m)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.SetupRoutes(),
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	stats := pipeline.Stats()
	log.WithFields(map[string]any{
		"total_messages":  stats.Broker.TotalMessages,
		"clicks_billed":   stats.Billing.ClicksBilled,
		"budget_exceeded": stats.Billing.BudgetExceeded,
		"total_revenue":   stats.Billing.TotalRevenue.StringFixed(2),
	}).Info("Final statistics")
}
