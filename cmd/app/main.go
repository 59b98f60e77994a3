// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-journal/internal/config"
	"trading-journal/internal/domain/ports/adapter"
	billAdapters "trading-journal/internal/infra/adapters/billing"
	mailAdapters "trading-journal/internal/infra/adapters/mail"
	pg "trading-journal/internal/infra/db/postgres"
	"trading-journal/internal/infra/logging"
	"trading-journal/internal/infra/metrics"
	red "trading-journal/internal/infra/redis"
	"trading-journal/internal/infra/sched"
	"trading-journal/internal/infra/web"
	"trading-journal/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop billing/mail, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Repositories ----
	accountRepo := pg.NewAccountRepo(pool)
	positionRepo := pg.NewPositionRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)

	// ---- Price lookup (Redis) ----
	var prices adapter.PriceLookup
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		prices = red.NewPriceStore(redisClient, cfg.Redis.Timeout)
	} else {
		logger.Warn().Msg("redis.url not set; dashboard current prices disabled")
		prices = noPrices{}
	}

	// ---- Billing gateway ----
	var gateway adapter.BillingGateway
	if cfg.Runtime.Dev || cfg.Billing.Stripe.SecretKey == "" {
		if !cfg.Runtime.Dev {
			logger.Warn().Msg("billing.stripe.secret_key not set; using noop gateway")
		}
		gateway = billAdapters.NewNoopBillingGateway()
	} else {
		gateway, err = billAdapters.NewStripeGateway(cfg.Billing.Stripe.SecretKey, cfg.Billing.Stripe.PriceID)
		if err != nil {
			log.Fatalf("stripe gateway: %v", err)
		}
	}

	// ---- Mailer ----
	var mailer adapter.NotificationSender
	if cfg.Runtime.Dev || cfg.SMTP.Host == "" {
		mailer = mailAdapters.NewNoopSender()
	} else {
		mailer, err = mailAdapters.NewSMTPSender(&cfg.SMTP)
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
	}

	// ---- Use cases ----
	entitlementUC := usecase.NewEntitlementUseCase(accountRepo, paymentRepo, gateway, tm, logger)
	reconcilerUC := usecase.NewReconcilerUseCase(accountRepo, paymentRepo, gateway, mailer, tm, logger)
	portfolioUC := usecase.NewPortfolioUseCase(accountRepo, positionRepo, prices, cfg.Redis.Timeout, logger)
	notifUC := usecase.NewNotificationUseCase(accountRepo, mailer, tm, cfg.Trial.ReminderDays, logger)

	// ---- HTTP server ----
	srv := web.NewServer(entitlementUC, portfolioUC, reconcilerUC,
		cfg.Auth.JWTSecret, cfg.Billing.Stripe.WebhookSecret, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Trial reminder worker ----
	worker := sched.NewTrialReminderWorker(cfg.Trial.ReminderInterval, notifUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}

// noPrices satisfies PriceLookup when no price source is configured.
type noPrices struct{}

func (noPrices) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	return 0, fmt.Errorf("no price source configured")
}
