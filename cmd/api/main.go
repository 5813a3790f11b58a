package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/kidsvax/clinic-platform/cmd/mainconfig"
	"github.com/kidsvax/clinic-platform/internal/api/router"
	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/internal/catalog"
	"github.com/kidsvax/clinic-platform/internal/children"
	appconfig "github.com/kidsvax/clinic-platform/internal/config"
	"github.com/kidsvax/clinic-platform/internal/notify"
	"github.com/kidsvax/clinic-platform/internal/observability/metrics"
	"github.com/kidsvax/clinic-platform/internal/payments"
	"github.com/kidsvax/clinic-platform/internal/records"
	"github.com/kidsvax/clinic-platform/internal/scheduling"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Repositories: Postgres when configured, in-memory for local development.
	var (
		catalogRepo  catalog.Repository
		childrenRepo children.Repository
		apptsRepo    appointments.Repository
		recordsRepo  records.Repository
		paymentsRepo payments.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		catalogRepo = catalog.NewPostgresRepository(pool)
		childrenRepo = children.NewPostgresRepository(pool)
		apptsRepo = appointments.NewPostgresRepository(pool)
		recordsRepo = records.NewPostgresRepository(pool)
		paymentsRepo = payments.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		catalogRepo = catalog.NewInMemoryRepository()
		childrenRepo = children.NewInMemoryRepository()
		apptsRepo = appointments.NewInMemoryRepository()
		recordsRepo = records.NewInMemoryRepository()
		paymentsRepo = payments.NewInMemoryRepository()
	}

	// Redis backs the per-child scheduling lock and the attempt damper. The
	// engine degrades to in-process locking without it.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to in-process locking", "error", err)
			redisClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	schedMetrics := metrics.NewSchedulingMetrics(registry)

	// Email
	var emailSender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		emailSender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		emailSender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}
	if emailSender == nil {
		logger.Warn("email provider not configured, using stub sender", "provider", cfg.EmailProvider)
		emailSender = notify.NewStubEmailSender(logger)
	}
	notifier := notify.NewService(emailSender, childrenRepo, logger)

	// Push queue: SQS in deployment, in-memory with an inline worker locally.
	var dispatcher *notify.Dispatcher
	if cfg.UseMemoryQueue || cfg.PushQueueURL == "" {
		queue := notify.NewMemoryQueue(0)
		dispatcher = notify.NewDispatcher(queue, catalogRepo, logger)
		worker := notify.NewPushWorker(queue, notify.NewStubPushSender(logger), cfg.WorkerCount, logger)
		go func() {
			if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("inline push worker stopped", "error", err)
			}
		}()
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		queue := notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.PushQueueURL)
		dispatcher = notify.NewDispatcher(queue, catalogRepo, logger)
	}

	locker := scheduling.NewChildLocker(redisClient, logger)
	damper := scheduling.NewAttemptDamper(redisClient, 0, 0, logger)
	schedService := scheduling.NewService(
		catalogRepo, childrenRepo, apptsRepo, recordsRepo,
		locker, damper, notifier, dispatcher, schedMetrics, logger,
	)
	schedHandler := scheduling.NewHandler(schedService, logger)

	// Payments
	var provider payments.Provider
	vnpay := payments.NewVNPayService(payments.VNPayConfig{
		TerminalCode: cfg.VNPayTerminalCode,
		HashSecret:   cfg.VNPayHashSecret,
		BaseURL:      cfg.VNPayBaseURL,
		ReturnURL:    cfg.VNPayReturnURL,
	}, logger)
	switch {
	case cfg.PaymentProvider == "vnpay" && vnpay != nil:
		provider = vnpay
	case cfg.AllowFakePayments:
		logger.Warn("using fake payment provider, do not enable in production")
		provider = payments.NewFakeCheckoutService(cfg.PublicBaseURL, logger)
	}
	var paymentsHandler *payments.Handler
	if provider != nil {
		paymentsService := payments.NewService(provider, paymentsRepo, cfg.DepositPercent, cfg.CheckoutExpiry, logger)
		paymentsHandler = payments.NewHandler(paymentsService, vnpay, apptsRepo, logger)
	} else {
		logger.Warn("no payment provider configured, checkout routes disabled")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		SchedulingHandler:  schedHandler,
		PaymentsHandler:    paymentsHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthJWTSecret:      cfg.AuthJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
