/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave management server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, config.yml, environment)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Connect Redis for login throttling (optional)
  5. Wire token, credential and leave services into the API handler
  6. Start server with graceful shutdown

ENVIRONMENT:
  JWT_SECRET          Token signing secret (required)
  PORT                HTTP port (default: 8080)
  DATABASE_URL        SQLite database path (default: leave.db)
                      Use ":memory:" for an in-memory database
  REDIS_URL           redis://host:6379/0; empty disables login throttling
  ALLOWED_ORIGINS     Comma-separated CORS origins
  APP_ENV             development | production
  LOG_LEVEL           debug | info | warn | error
  LOG_FORMAT          json | console
  TOKEN_TTL           Token lifetime (default: 1h)
  LOGIN_MAX_ATTEMPTS  Failed logins allowed per window (default: 5)
  LOGIN_WINDOW        Throttle window (default: 15m)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close Redis and database connections
  4. Exit

SEE ALSO:
  - config/config.go: Configuration keys and validation
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/logger"
	"github.com/warp/leave-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("failed to initialize database", zap.String("path", cfg.DatabaseURL), zap.Error(err))
	}
	defer store.Close()

	// Login throttling
	var limiter auth.AttemptLimiter = auth.NopLimiter{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			lg.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Warn("redis unreachable, login throttling fails open", zap.Error(err))
		}
		cancel()

		limiter = auth.NewRedisLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginWindow, lg)
	} else {
		lg.Info("REDIS_URL not set, login throttling disabled")
	}

	// Services
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	creds := auth.NewCredentials(store, tokens, limiter, lg)
	leaves := leave.NewService(store, lg)

	handler := api.NewHandler(leaves, creds, tokens, lg)
	handler.Health = store
	handler.ShowErrorDetails = !cfg.IsProduction()

	router := api.NewRouter(handler, cfg.Origins())

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("server starting",
			zap.String("addr", cfg.Addr()),
			zap.String("env", cfg.Env),
			zap.String("database", cfg.DatabaseURL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Error("server forced to shutdown", zap.Error(err))
		return
	}

	lg.Info("server stopped")
}
