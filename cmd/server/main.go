package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/demo_booking/internal/app"
	"github.com/Freeeeeet/demo_booking/internal/config"
	"github.com/Freeeeeet/demo_booking/internal/controller/httpapi"
	"github.com/Freeeeeet/demo_booking/internal/controller/telegram"
	"github.com/Freeeeeet/demo_booking/internal/notify"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/Freeeeeet/demo_booking/internal/repository/memory"
	"github.com/Freeeeeet/demo_booking/internal/repository/postgres"
	"github.com/Freeeeeet/demo_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, dotEnv, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if !dotEnv {
		logger.Info("No .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting demo booking service",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store),
		zap.String("addr", cfg.HTTPAddr),
	)

	otelShutdown, err := app.SetupTelemetry(ctx, app.TelemetryConfig{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "demo-booking",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  1,
	})
	if err != nil {
		logger.Error("OpenTelemetry setup failed, tracing disabled", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// ===== Store =====
	var tx repository.TxManager
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		tx = memory.NewStore()
	default:
		pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		migrator, err := app.NewMigrator(pool, logger)
		if err != nil {
			return err
		}
		if err := migrator.Run(ctx); err != nil {
			_ = migrator.Close()
			return err
		}
		_ = migrator.Close()

		tx = postgres.NewTxManager(pool)
	}

	// ===== Telegram =====
	var tg *bot.Bot
	if cfg.TelegramToken != "" {
		tg, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
	}

	// ===== Notifications =====
	channels := notify.NewMulti()
	if tg != nil {
		channels.Add("telegram", notify.NewTelegramNotifier(tg))
	}
	if cfg.SMTPHost != "" {
		channels.Add("email", notify.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom))
	}
	var notifier notify.Notifier = channels
	if channels.Len() == 0 {
		logger.Warn("No notification channel configured, notifications are only logged")
		notifier = notify.NewLogNotifier(logger)
	}

	svc := service.New(service.Deps{
		Tx:          tx,
		Notifier:    notifier,
		Logger:      logger,
		MaxAttempts: cfg.BookingMaxAttempts,
	})

	// ===== Rate limit =====
	var limiter httpapi.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, booking rate limit fails open until it recovers", zap.Error(err))
		}
		limiter = httpapi.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "demo-booking:rl")
	}

	// ===== Outbox relay =====
	if len(cfg.KafkaBrokers) > 0 {
		relay := app.NewOutboxRelay(tx, app.NewKafkaWriter(cfg.KafkaBrokers), logger, app.OutboxRelayConfig{
			PollEvery: cfg.OutboxPollInterval,
		})
		relay.Start(ctx)
		defer relay.Stop()
	} else {
		logger.Warn("Outbox relay disabled (no kafka brokers configured)")
	}

	// ===== Owner console =====
	if tg != nil {
		console := telegram.NewConsole(tg, svc, logger)
		if err := console.RegisterHandlers(ctx, tg); err != nil {
			logger.Warn("Failed to register bot commands", zap.Error(err))
		}
		go func() {
			logger.Info("Starting bot...")
			tg.Start(ctx)
		}()
	}

	// ===== HTTP =====
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.RouterDeps{
			Services:       svc,
			Logger:         logger,
			AllowedOrigins: cfg.AllowedOrigins,
			BookingLimiter: limiter,
			Ready:          tx.Ping,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	logger.Info("HTTP server stopped")
	return nil
}
