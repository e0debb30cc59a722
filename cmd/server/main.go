package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/competition"
	"github.com/stemsi/mtq-judge/internal/config"
	"github.com/stemsi/mtq-judge/internal/database"
	"github.com/stemsi/mtq-judge/internal/handler"
	"github.com/stemsi/mtq-judge/internal/logger"
	"github.com/stemsi/mtq-judge/internal/middleware"
	"github.com/stemsi/mtq-judge/internal/observability"
	"github.com/stemsi/mtq-judge/internal/repository"
	"github.com/stemsi/mtq-judge/internal/router"
	"github.com/stemsi/mtq-judge/internal/service"
	"github.com/stemsi/mtq-judge/internal/validator"
	"github.com/stemsi/mtq-judge/internal/worker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const consoleEvictionInterval = 10 * time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("competition_api", cfg.CompetitionAPIURL).
		Msg("Starting MTQ judge service")

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, version)
	if err != nil {
		log.Warn().Err(err).Msg("Sentry disabled")
	}
	defer flushSentry()

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Migrate & Connect to PostgreSQL ───────────────────────────────
	if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Competition API ───────────────────────────────────────────────
	remote := competition.New(cfg.CompetitionAPIURL, cfg.CompetitionAPITimeout, log)
	dial := func(token string) service.CompetitionAPI { return remote.Session(token) }

	// ─── Initialize Repositories ───────────────────────────────────────
	submissionRepo := repository.NewSubmissionRepository(pool)
	listingCache := repository.NewListingCache(rdb, cfg.ListingCacheTTL, log)
	auditQueue := worker.NewAuditQueue(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, remote)
	judgingService := service.NewJudgingService(dial, listingCache, auditQueue, log)
	resultService := service.NewResultService(judgingService)
	exportService := service.NewExportService(submissionRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, judgingService, log),
		Rubric:      handler.NewRubricHandler(),
		Judging:     handler.NewJudgingHandler(judgingService, resultService, log),
		Submissions: handler.NewSubmissionHandler(exportService, log),
		WS:          handler.NewWSHandler(judgingService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(rdb, pool, log),
	}
	loginLimiter := middleware.NewRateLimiter(rdb, cfg.LoginRatePerMinute, time.Minute, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	auditWorker := worker.NewAuditWorker(submissionRepo, rdb, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		auditWorker.Start(workerCtx)
	}()

	// Consoles idle past the token lifetime belong to expired logins.
	go judgingService.StartEviction(workerCtx, consoleEvictionInterval, cfg.JWTExpiry)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, loginLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the audit worker; it flushes its pending batch before returning.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Audit worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
