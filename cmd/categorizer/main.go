package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/txn_categorizer/internal/adapters/inference"
	portsrepo "github.com/SscSPs/txn_categorizer/internal/core/ports/repositories"
	"github.com/SscSPs/txn_categorizer/internal/core/services"
	"github.com/SscSPs/txn_categorizer/internal/handlers"
	"github.com/SscSPs/txn_categorizer/internal/middleware"
	"github.com/SscSPs/txn_categorizer/internal/platform/config"
	"github.com/SscSPs/txn_categorizer/internal/repositories/database/pgsql"
	"github.com/SscSPs/txn_categorizer/internal/repositories/memory"
	"github.com/SscSPs/txn_categorizer/internal/scheduler"
	"github.com/SscSPs/txn_categorizer/migrations"
	"github.com/SscSPs/txn_categorizer/pkg/database"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", slog.String("driver", cfg.StoreDriver), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	gateway, err := inference.NewGeminiGateway(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to create inference gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}

	container, err := services.NewServiceContainer(cfg, repos, gateway)
	if err != nil {
		logger.Error("Failed to build services", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Workers outlive the signal context; Shutdown cancels them after the grace period.
	pool := scheduler.NewWorkerPool(container.Worker, cfg.WorkerCount, cfg.WorkerPollInterval, logger)
	pool.Start(context.Background())

	sweeper, err := scheduler.NewSweeper(container.Worker, cfg.SweepSchedule, logger)
	if err != nil {
		logger.Error("Failed to schedule stale claim sweep", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sweeper.Start(ctx)

	rateLimiter, err := middleware.NewMemoryLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Warn("Failed to reset trusted proxies", slog.String("error", err.Error()))
	}
	handlers.RegisterRoutes(r, cfg, container, rateLimiter)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to run server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	<-sweeper.Stop().Done()
	if !pool.Shutdown(cfg.ShutdownTimeout) {
		logger.Warn("Classification workers did not stop in time; in-flight claims will be swept on next start")
	}
	logger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memory.NewStore().Provider(), func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established")

	if err := database.RunMigrations(logger, cfg.DatabaseURL, migrations.FS); err != nil {
		database.ClosePgxPool(dbPool)
		return portsrepo.RepositoryProvider{}, nil, err
	}

	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
