/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave request engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, LEAVE_* environment, flags)
  2. Build the zap logger
  3. Open the SQL store (sqlite or postgres) and migrate
  4. Optionally apply a leave type catalog
  5. Load holidays and build the day-counting policy
  6. Create manager, handler and router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port    HTTP server port (LEAVE_PORT, default 8080)
  -driver  Database driver: sqlite3 or pgx (LEAVE_DB_DRIVER)
  -db      Database DSN or sqlite path (LEAVE_DB_DSN, default leave.db)
           Use ":memory:" for an in-memory sqlite database
  -seed    Path to a catalog JSON file applied at startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (LEAVE_SHUTDOWN_TIMEOUT)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  LEAVE_JWT_SECRET=dev ./server -db="./data/leave.db"

  # Run against postgres
  LEAVE_JWT_SECRET=dev ./server -driver=pgx -db="postgres://localhost/leave"

  # Seed leave types on an empty database
  LEAVE_JWT_SECRET=dev ./server -db=":memory:" -seed=catalog.json

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlstore/sqlstore.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlstore"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.HTTP.Port, "HTTP server port")
	driver := flag.String("driver", cfg.DB.Driver, "Database driver (sqlite3 or pgx)")
	dsn := flag.String("db", cfg.DB.DSN, "Database DSN or sqlite path")
	seed := flag.String("seed", "", "Catalog JSON file applied at startup")
	flag.Parse()
	cfg.HTTP.Port, cfg.DB.Driver, cfg.DB.DSN = *port, *driver, *dsn

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, *seed, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, seedPath string, logger *zap.Logger) error {
	ctx := context.Background()

	// Initialize store
	store, err := sqlstore.New(ctx, sqlstore.Options{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	if seedPath != "" {
		if err := applyCatalog(ctx, store, seedPath); err != nil {
			return err
		}
		logger.Info("catalog applied", zap.String("path", seedPath))
	}

	// Counting policy reads holidays through the cache the handler refreshes.
	holidays := calendar.NewHolidayCache()
	policy, err := cfg.CountingPolicy(holidays)
	if err != nil {
		return err
	}
	manager := leave.NewManager(store, policy, calendar.SystemClock{}, logger)

	handler := api.NewHandler(manager, store, holidays, logger)
	if err := handler.LoadHolidays(ctx); err != nil {
		logger.Warn("failed to load holidays", zap.Error(err))
	}

	refresher := api.NewHolidayRefresher(handler, cfg.Counting.HolidayRefresh, logger)
	refresher.Start()
	defer refresher.Stop()

	router := api.NewRouter(handler, api.RouterOptions{
		Auth:           api.NewAuthenticator(cfg.Auth.JWTSecret),
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("driver", cfg.DB.Driver),
			zap.String("counting_policy", policy.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func applyCatalog(ctx context.Context, store leave.ConfigStore, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	catalog, err := factory.NewLeaveTypeFactory().ParseCatalog(string(data))
	if err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	return catalog.Apply(ctx, store)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Log.Format, "console") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
