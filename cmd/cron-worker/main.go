package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/aquaflow-backend/internal/cron"
	"github.com/angelmondragon/aquaflow-backend/internal/notifications"
	"github.com/angelmondragon/aquaflow-backend/internal/orders"
	"github.com/angelmondragon/aquaflow-backend/internal/payments"
	"github.com/angelmondragon/aquaflow-backend/internal/shops"
	"github.com/angelmondragon/aquaflow-backend/internal/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/internal/users"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/db"
	"github.com/angelmondragon/aquaflow-backend/pkg/instance"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/metrics"
	"github.com/angelmondragon/aquaflow-backend/pkg/migrate"
	"github.com/angelmondragon/aquaflow-backend/pkg/redis"
	"github.com/angelmondragon/aquaflow-backend/pkg/refs"
)

const serviceKind = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single locked cycle and exit")
	only := flag.String("job", "", "comma-separated job names to run with -once (default: all)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
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

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx, splitJobs(*only)...); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	shopRepo := shops.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	generator := refs.New()

	dispatcher, err := notifications.NewDispatcher(
		notificationRepo,
		notifications.NewWhatsAppChannel(logg),
		notifications.NewSMSChannel(logg),
		logg,
	)
	if err != nil {
		return nil, err
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Repository:     payments.NewRepository(dbClient.DB()),
		Gateway:        payments.NewMockGateway(cfg.Payments.OrderSuccessRate, cfg.Payments.MonthlySuccessRate, nil),
		Refs:           generator,
		Logger:         logg,
		InvoiceBaseURL: cfg.Payments.InvoiceBaseURL,
	})
	if err != nil {
		return nil, err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repository:        orders.NewRepository(dbClient.DB()),
		Shops:             shopRepo,
		Payments:          paymentsSvc,
		Profiles:          users.NewRepository(dbClient.DB()),
		Notifier:          dispatcher,
		TransactionRunner: dbClient,
		Refs:              generator,
		Logger:            logg,
		Location:          cfg.Delivery.Location(),
	})
	if err != nil {
		return nil, err
	}

	subscriptionsSvc, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repository:        subscriptions.NewRepository(dbClient.DB()),
		Shops:             shopRepo,
		Orders:            ordersSvc,
		Payments:          paymentsSvc,
		Notifier:          dispatcher,
		TransactionRunner: dbClient,
		Refs:              generator,
		Logger:            logg,
	})
	if err != nil {
		return nil, err
	}

	paymentDue, err := cron.NewPaymentDueJob(cron.PaymentDueJobParams{
		Logger:        logg,
		Subscriptions: subscriptionsSvc,
		Notifier:      dispatcher,
		Marker:        redisClient,
	})
	if err != nil {
		return nil, err
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationRepo,
		Retention:  cfg.Cron.NotificationRetention,
		BatchSize:  cfg.Cron.CleanupBatchSize,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(paymentDue, cleanup)
}

func splitJobs(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
