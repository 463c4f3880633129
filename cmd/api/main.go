package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/saas-billing-webhooks/internal/config"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/handler"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/logging"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/middleware"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/repository"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/service"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/service/billing"
	"github.com/josh-kwaku/saas-billing-webhooks/internal/service/dispatch"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("billing-api", cfg.LogLevel, cfg.AppEnv)

	if cfg.StripeWebhookSecret == "" {
		slog.Warn("STRIPE_WEBHOOK_SECRET is not set, webhook deliveries will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		PingAttempts:     30,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	customers := repository.NewBillingCustomerRepository(db)
	subscriptions := repository.NewSubscriptionRepository(db)
	guestSessions := repository.NewGuestSessionRepository(db)
	webhookEvents := repository.NewWebhookEventRepository(db)

	gateway := billing.NewStripeGateway(cfg.StripeSecretKey)
	syncer := billing.NewSyncer(gateway, subscriptions)
	guests := billing.NewGuestService(customers, guestSessions, gateway, cfg.GuestSessionTTL)
	sweeper := service.NewSweeper(guests, slog.Default(), cfg.CleanupInterval)

	dispatcher := dispatch.New(dispatch.Config{
		Syncer:            syncer,
		Guests:            guests,
		Sessions:          guests,
		Customers:         guests,
		Linker:            billing.NewCustomerLinker(customers),
		Cleanup:           sweeper,
		CleanupSampleRate: cfg.CleanupSampleRate,
	})

	router := newRouter(routerDeps{
		jwtSecret:   cfg.SupabaseJWTSecret,
		syncLimiter: middleware.NewRateLimiter(cfg.SyncRatePerMinute, cfg.SyncBurst),
		health:      handler.NewHealthHandler(db, version),
		webhooks:    handler.NewWebhookHandler(dispatcher, webhookEvents, cfg.StripeWebhookSecret),
		billing:     handler.NewBillingHandler(customers, subscriptions, syncer, guests),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sweeper.Start(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
