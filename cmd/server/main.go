// Command server runs the Assistly backend: the multi-tenant chatbot API,
// the embedded widget asset, and the fine-tune scheduler, all in one binary.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cobaltline/assistly-backend/internal/ai"
	"github.com/cobaltline/assistly-backend/internal/auth"
	"github.com/cobaltline/assistly-backend/internal/config"
	httpapi "github.com/cobaltline/assistly-backend/internal/http"
	"github.com/cobaltline/assistly-backend/internal/observability"
	"github.com/cobaltline/assistly-backend/internal/paypal"
	"github.com/cobaltline/assistly-backend/internal/repo"
	"github.com/cobaltline/assistly-backend/internal/scheduler"
	"github.com/cobaltline/assistly-backend/internal/services/finetune"
	"github.com/cobaltline/assistly-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			logger.Warn().Err(err).Msg("gorm tracing not enabled")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	aiClient := ai.NewClient(ai.Config{
		APIKey:           cfg.AI.APIKey,
		OrgID:            cfg.AI.OrgID,
		BaseURL:          cfg.AI.BaseURL,
		TrainingTimeout:  cfg.AI.TrainingTimeout,
		InferenceTimeout: cfg.AI.InferenceTimeout,
	})

	payments := paypal.New(paypal.Config{
		ClientID: cfg.PayPal.ClientID,
		Secret:   cfg.PayPal.Secret,
		Mode:     cfg.PayPal.Mode,
		Timeout:  cfg.PayPal.Timeout,
	})

	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Fine-tune lifecycle: synthesizer -> dataset store -> manager, driven
	// by the cron scheduler and by description-change triggers.
	synth := finetune.NewSynthesizer(aiClient, cfg.AI.DefaultChatModel, cfg.FineTune.MinExamples, logger)
	store := finetune.NewStore(cfg.FineTune.DatasetDir)
	policy := finetune.NewRetryPolicy(cfg.FineTune.MaxAttempts, cfg.FineTune.CoolDown)
	manager := finetune.NewManager(db, aiClient, synth, store, policy, cfg.AI.BaseModel, logger)

	sched := scheduler.New(db, manager, scheduler.Config{
		CronSpec:    cfg.FineTune.CronSpec,
		Parallelism: cfg.FineTune.Parallelism,
		RunTimeout:  cfg.FineTune.RunTimeout,
	}, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.FineTune.CronSpec).Msg("scheduler start failed")
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, db, httpapi.Dependencies{
		AI:       aiClient,
		Payments: payments,
		Trigger:  sched,
		Tokens:   tokens,
		Log:      logger,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	sched.Stop(shCtx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info().Msg("server stopped")
}
