package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rahulnegi20/recolora-backend/api/controllers"
	"github.com/rahulnegi20/recolora-backend/api/routes"
	"github.com/rahulnegi20/recolora-backend/internal/admin"
	"github.com/rahulnegi20/recolora-backend/internal/jobs"
	"github.com/rahulnegi20/recolora-backend/internal/payments"
	"github.com/rahulnegi20/recolora-backend/internal/webhooks"
	cashfreewebhook "github.com/rahulnegi20/recolora-backend/internal/webhooks/cashfree"
	phonepewebhook "github.com/rahulnegi20/recolora-backend/internal/webhooks/phonepe"
	"github.com/rahulnegi20/recolora-backend/pkg/cashfree"
	"github.com/rahulnegi20/recolora-backend/pkg/config"
	"github.com/rahulnegi20/recolora-backend/pkg/db"
	"github.com/rahulnegi20/recolora-backend/pkg/logger"
	"github.com/rahulnegi20/recolora-backend/pkg/metrics"
	"github.com/rahulnegi20/recolora-backend/pkg/migrate"
	"github.com/rahulnegi20/recolora-backend/pkg/outbox"
	"github.com/rahulnegi20/recolora-backend/pkg/phonepe"
	"github.com/rahulnegi20/recolora-backend/pkg/redis"
	"github.com/rahulnegi20/recolora-backend/pkg/storage/gcs"
)

// Webhook claims outlive the longest gateway retry window.
const webhookIdempotencyTTL = 48 * time.Hour

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	phonePeClient, err := phonepe.NewClient(context.Background(), cfg.PhonePe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap phonepe client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	jobsRepo := jobs.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	jobsService, err := jobs.NewService(jobsRepo, gcsClient, cfg.GCS, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create jobs service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:    paymentsRepo,
		Jobs:    jobsRepo,
		Tx:      dbClient,
		Gateway: phonePeClient,
		Outbox:  outboxService,
		Metrics: paymentMetrics,
		Logger:  logg,
		PhonePe: cfg.PhonePe,
		Pricing: cfg.Pricing,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Payments: paymentsRepo,
		Jobs:     jobsRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	phonePeWebhookService, err := phonepewebhook.NewService(phonepewebhook.ServiceParams{
		Payments: paymentsService,
		Metrics:  paymentMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create phonepe webhook service", err)
		os.Exit(1)
	}
	phonePeGuard, err := webhooks.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "phonepe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create phonepe webhook guard", err)
		os.Exit(1)
	}

	var cashfreeVerifier *cashfree.Verifier
	var cashfreeWebhookService *cashfreewebhook.Service
	var cashfreeGuard *webhooks.IdempotencyGuard
	if cfg.Cashfree.WebhookSecret != "" {
		cashfreeVerifier, err = cashfree.NewVerifier(cfg.Cashfree.WebhookSecret)
		if err != nil {
			logg.Error(context.Background(), "failed to create cashfree verifier", err)
			os.Exit(1)
		}
		cashfreeWebhookService, err = cashfreewebhook.NewService(cashfreewebhook.ServiceParams{
			Payments: paymentsService,
			Metrics:  paymentMetrics,
			Logger:   logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create cashfree webhook service", err)
			os.Exit(1)
		}
		cashfreeGuard, err = webhooks.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "cashfree-webhook")
		if err != nil {
			logg.Error(context.Background(), "failed to create cashfree webhook guard", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "cashfree webhook secret not set, legacy webhook disabled")
	}

	router := routes.NewRouter(routes.Params{
		Config:   cfg,
		Logger:   logg,
		Registry: registry,
		ReadinessDeps: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
			"gcs":      gcsClient,
		},
		JobsService:            jobsService,
		PaymentsService:        paymentsService,
		AdminService:           adminService,
		PhonePeClient:          phonePeClient,
		PhonePeWebhookService:  phonePeWebhookService,
		PhonePeWebhookGuard:    phonePeGuard,
		CashfreeVerifier:       cashfreeVerifier,
		CashfreeWebhookService: cashfreeWebhookService,
		CashfreeWebhookGuard:   cashfreeGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
