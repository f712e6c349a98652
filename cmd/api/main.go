package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/aquaflow-backend/api/routes"
	"github.com/angelmondragon/aquaflow-backend/internal/address"
	"github.com/angelmondragon/aquaflow-backend/internal/auth"
	"github.com/angelmondragon/aquaflow-backend/internal/complaints"
	"github.com/angelmondragon/aquaflow-backend/internal/notifications"
	"github.com/angelmondragon/aquaflow-backend/internal/orders"
	"github.com/angelmondragon/aquaflow-backend/internal/payments"
	"github.com/angelmondragon/aquaflow-backend/internal/shops"
	"github.com/angelmondragon/aquaflow-backend/internal/subscriptions"
	"github.com/angelmondragon/aquaflow-backend/internal/users"
	"github.com/angelmondragon/aquaflow-backend/pkg/auth/session"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/db"
	"github.com/angelmondragon/aquaflow-backend/pkg/instance"
	"github.com/angelmondragon/aquaflow-backend/pkg/logger"
	"github.com/angelmondragon/aquaflow-backend/pkg/metrics"
	"github.com/angelmondragon/aquaflow-backend/pkg/migrate"
	"github.com/angelmondragon/aquaflow-backend/pkg/redis"
	"github.com/angelmondragon/aquaflow-backend/pkg/refs"
)

const shutdownTimeout = 15 * time.Second

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, services),
		ReadHeaderTimeout: cfg.App.ReadHeaderTimeout,
		ReadTimeout:       cfg.App.ReadTimeout,
		WriteTimeout:      cfg.App.WriteTimeout,
		IdleTimeout:       cfg.App.IdleTimeout,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
) (routes.Services, error) {
	var out routes.Services

	userRepo := users.NewRepository(dbClient.DB())
	shopRepo := shops.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	generator := refs.New()
	accrual := metrics.NewAccrualMetrics(prometheus.DefaultRegisterer)

	otp, err := auth.NewOTPService(redisClient, cfg.OTP, logg)
	if err != nil {
		return out, err
	}
	out.Auth, err = auth.NewService(auth.ServiceParams{
		Users:          userRepo,
		Shopkeepers:    shopRepo,
		OTP:            otp,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		OTPConfig:      cfg.OTP,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return out, err
	}
	out.Register, err = auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return out, err
	}
	out.Profiles = userRepo

	out.Addresses, err = address.NewService(userRepo)
	if err != nil {
		return out, err
	}

	out.Shops, err = shops.NewService(shops.ServiceParams{
		Repository:     shopRepo,
		Logger:         logg,
		Location:       cfg.Delivery.Location(),
		SearchRadiusKM: cfg.Delivery.SearchRadiusKM,
		SearchLimit:    cfg.Delivery.SearchLimit,
	})
	if err != nil {
		return out, err
	}

	dispatcher, err := notifications.NewDispatcher(
		notificationRepo,
		notifications.NewWhatsAppChannel(logg),
		notifications.NewSMSChannel(logg),
		logg,
	)
	if err != nil {
		return out, err
	}
	out.Notifications, err = notifications.NewService(notificationRepo)
	if err != nil {
		return out, err
	}

	out.Payments, err = payments.NewService(payments.ServiceParams{
		Repository:     payments.NewRepository(dbClient.DB()),
		Gateway:        payments.NewMockGateway(cfg.Payments.OrderSuccessRate, cfg.Payments.MonthlySuccessRate, nil),
		Refs:           generator,
		Metrics:        accrual,
		Logger:         logg,
		InvoiceBaseURL: cfg.Payments.InvoiceBaseURL,
	})
	if err != nil {
		return out, err
	}

	out.Orders, err = orders.NewService(orders.ServiceParams{
		Repository:        orderRepo,
		Shops:             shopRepo,
		Payments:          out.Payments,
		Addresses:         out.Addresses,
		Profiles:          userRepo,
		Notifier:          dispatcher,
		TransactionRunner: dbClient,
		Refs:              generator,
		Logger:            logg,
		Location:          cfg.Delivery.Location(),
	})
	if err != nil {
		return out, err
	}

	out.Subscriptions, err = subscriptions.NewService(subscriptions.ServiceParams{
		Repository:        subscriptions.NewRepository(dbClient.DB()),
		Shops:             shopRepo,
		Orders:            out.Orders,
		Payments:          out.Payments,
		Notifier:          dispatcher,
		TransactionRunner: dbClient,
		Refs:              generator,
		Metrics:           accrual,
		Logger:            logg,
	})
	if err != nil {
		return out, err
	}

	out.Complaints, err = complaints.NewService(complaints.ServiceParams{
		Repository: complaints.NewRepository(dbClient.DB()),
		Orders:     orderRepo,
		Shops:      shopRepo,
		Logger:     logg,
	})
	if err != nil {
		return out, err
	}

	return out, nil
}
