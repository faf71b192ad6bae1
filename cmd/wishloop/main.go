package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wishloop/internal/campaign"
	"wishloop/internal/circuitbreaker"
	"wishloop/internal/config"
	"wishloop/internal/db"
	"wishloop/internal/engine"
	"wishloop/internal/ledger"
	"wishloop/internal/metrics"
	"wishloop/internal/observ"
	"wishloop/internal/redis"
	"wishloop/internal/render"
	"wishloop/internal/sender"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Everything below that can be malformed fails here, before any
	// connection is opened or email sent.
	stages, err := config.LoadStages(cfg.StagesFile)
	if err != nil {
		return fmt.Errorf("stage configuration: %w", err)
	}

	keyMode, err := ledger.ParseKeyMode(cfg.LedgerKeyMode)
	if err != nil {
		return fmt.Errorf("ledger configuration: %w", err)
	}

	loc, err := campaign.ParseOffset(cfg.LocalTZOffset)
	if err != nil {
		return fmt.Errorf("timezone configuration: %w", err)
	}

	renderer, err := render.New(render.Config{
		BaseURL:        cfg.WishlistURL,
		LogoURL:        cfg.LogoURL,
		PlaceholderImg: cfg.PlaceholderImg,
	}, stages)
	if err != nil {
		return fmt.Errorf("template configuration: %w", err)
	}

	logger.Info("starting wishloop run",
		zap.String("env", cfg.Env),
		zap.Int("stages", len(stages)),
		zap.Bool("dry_run", cfg.DryRun),
		zap.String("ledger_key_mode", string(keyMode)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	// Single-flight guard across overlapping cron invocations. The
	// ledger's uniqueness constraint still protects correctness if
	// redis is unavailable; the lock only avoids wasted work.
	if cfg.RedisHost != "" {
		redisClient, err := redis.New(ctx, redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			logger.Warn("redis unavailable, running without run lock", zap.Error(err))
		} else {
			defer redisClient.Close()
			release, err := redis.NewRunLock(redisClient, logger, redis.DefaultLockTTL).Acquire(ctx, "wishloop")
			if errors.Is(err, redis.ErrLockHeld) {
				logger.Info("another invocation is running, exiting")
				return nil
			}
			if err != nil {
				return fmt.Errorf("acquire run lock: %w", err)
			}
			defer release()
		}
	}

	if cfg.MetricsAddr != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", metrics.Handler())
		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			if err := database.Health(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, r); err != nil {
				logger.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	repo := db.NewRepository(database, logger)
	led := ledger.NewPostgres(database, keyMode, logger)

	snd, err := buildSender(ctx, cfg, logger)
	if err != nil {
		return err
	}

	orch, err := engine.New(stages, repo, led, snd, renderer, campaign.NewResolver(loc), engine.Config{
		DryRun:   cfg.DryRun,
		MaxBatch: cfg.MaxBatch,
	}, logger)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	report, err := orch.Run(ctx, time.Now().UTC())
	if report != nil {
		if out, jsonErr := json.MarshalIndent(report, "", "  "); jsonErr == nil {
			fmt.Println(string(out))
		}
		if report.LedgerAnomalies > 0 {
			logger.Error("run left unrecorded sends, future duplicates possible",
				zap.Int("ledger_anomalies", report.LedgerAnomalies),
			)
		}
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	return nil
}

// buildSender picks the configured transport and wraps it with a
// circuit breaker so a dead relay fails the remaining batch fast.
func buildSender(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sender.Sender, error) {
	var base sender.Sender

	switch cfg.MailProvider {
	case "smtp":
		s, err := sender.NewSMTPSender(sender.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUsername,
			Password:  cfg.SMTPPassword,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
			ReplyTo:   cfg.ReplyTo,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create smtp sender: %w", err)
		}
		base = s
	case "ses":
		s, err := sender.NewSESSender(ctx, sender.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.FromEmail,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create ses sender: %w", err)
		}
		base = s
	default:
		base = sender.NewLogSender(logger)
	}

	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig(cfg.MailProvider), logger)
	return circuitbreaker.NewProtectedSender(base, breaker, logger), nil
}
