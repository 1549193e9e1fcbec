package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fixtrack/notification/internal/application"
	"github.com/fixtrack/notification/internal/config"
	"github.com/fixtrack/notification/internal/infrastructure/discord"
	"github.com/fixtrack/notification/internal/infrastructure/postgres"
	kafkaconsumer "github.com/fixtrack/notification/internal/kafka"
	"github.com/fixtrack/notification/internal/realtime"
	transporthttp "github.com/fixtrack/notification/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("env", cfg.Server.Env).Str("port", cfg.Server.Port).Msg("starting fixtrack-notification")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres ping failed")
	}
	log.Info().Msg("postgres connected")

	// ── Store, broker, external channel ──────────────────────────────────────
	store := postgres.New(pool)
	broker := realtime.NewBroker()

	if cfg.Discord.WebhookURL == "" {
		log.Warn().Msg("discord webhook URL not configured, external channel disabled")
	}
	webhook := discord.New(cfg.Discord.WebhookURL)

	// ── Application service ───────────────────────────────────────────────────
	svc := application.NewService(store, application.NewResolver(), broker, webhook)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(svc, store, broker, cfg.Feed.FetchLimit)
	router := transporthttp.NewRouter(handler, cfg.Auth.JWTSecret)

	// ── Kafka consumer ────────────────────────────────────────────────────────
	consumer, err := kafkaconsumer.New(
		cfg.Kafka.Brokers,
		cfg.Kafka.ConsumerGroupID,
		cfg.Kafka.Topics,
		svc,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}

	go consumer.Start(ctx)
	log.Info().Strs("topics", cfg.Kafka.Topics).Msg("kafka consumer started")

	// ── Retention purge (every 24h) ───────────────────────────────────────────
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				svc.PurgeTTL(context.Background(), cfg.Feed.RetentionDays)
			case <-ctx.Done():
				return
			}
		}
	}()

	// ── Start HTTP server ─────────────────────────────────────────────────────
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("fixtrack-notification stopped")
}
