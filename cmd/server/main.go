// ============================================================================
// MAIN.GO - APPLICATION ENTRY POINT
// ============================================================================
// Startup flow:
// 1. Load configuration
// 2. Build the logger
// 3. Open the record store (memory, PostgreSQL or SQLite, optionally cached in Redis)
// 4. Seed fixtures
// 5. Wire validator -> service -> handler -> router
// 6. Serve until SIGINT/SIGTERM, then drain and close the store
// ============================================================================

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

	"fcc-shorturl/internal/config"
	httpHandler "fcc-shorturl/internal/handler/http"
	"fcc-shorturl/internal/repository"
	"fcc-shorturl/internal/repository/memory"
	"fcc-shorturl/internal/repository/postgres"
	"fcc-shorturl/internal/repository/redis"
	"fcc-shorturl/internal/repository/sqlite"
	"fcc-shorturl/internal/service"
	"fcc-shorturl/pkg/logger"
	"fcc-shorturl/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("shorturl: %v", err)
	}
}

func run() error {
	// ========================================================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================================================
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// ========================================================================
	// STEP 2: INITIALIZE STRUCTURED LOGGER
	// ========================================================================
	appLogger := logger.New(cfg.App.LogLevel)
	appLogger.Info("Starting URL Shortener",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
	)

	// ========================================================================
	// STEP 3: OPEN THE RECORD STORE
	// ========================================================================
	// The store is opened once here and closed on the way out.
	ctx := context.Background()
	repo, err := openRepository(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error("Failed to close store", "error", err)
		}
	}()

	// ========================================================================
	// STEP 4: DEPENDENCY INJECTION
	// ========================================================================
	// Store → ID generator → Validator → Shortener → Handler → Router
	urlValidator, err := validator.New(
		validator.Policy(cfg.App.ValidationPolicy),
		validator.WithTimeout(cfg.App.ResolveTimeout),
	)
	if err != nil {
		return err
	}

	ids, err := service.NewIDGenerator(cfg.App.IDStrategy, repo, cfg.App.IDRandomMax)
	if err != nil {
		return err
	}

	shortener := service.NewShortener(
		repo,
		urlValidator,
		ids,
		service.Config{
			OperationTimeout: cfg.Store.OperationTimeout,
			MaxAttempts:      cfg.App.IDMaxAttempts,
		},
		appLogger.WithFields(map[string]interface{}{"component": "shortener"}).Logger,
	)

	// ========================================================================
	// STEP 5: SEED FIXTURES
	// ========================================================================
	// Runs before the listener opens, never from a request.
	if cfg.App.SeedFixtures {
		if err := shortener.Seed(ctx, service.DefaultFixtures); err != nil {
			// The service still works without the fixture; only the reserved id is missing
			appLogger.Error("Failed to seed fixtures", "error", err)
		}
	}

	handler := httpHandler.NewHandler(shortener, appLogger)
	router := httpHandler.NewRouter(handler, appLogger, httpHandler.RouterOptions{
		EnableMetrics: cfg.App.EnableMetrics,
	})

	// ========================================================================
	// STEP 6: CREATE AND START HTTP SERVER
	// ========================================================================
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// ========================================================================
	// STEP 7: GRACEFUL SHUTDOWN
	// ========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		appLogger.Info("Shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info("Server exited gracefully")
	return nil
}

// openRepository builds the configured store and, if enabled, wraps it in the Redis cache
func openRepository(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (repository.URLRepository, error) {
	var repo repository.URLRepository

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		dsn := cfg.Database.DatabaseURL()
		if cfg.Database.Migrate {
			if err := postgres.Migrate(dsn); err != nil {
				return nil, fmt.Errorf("database migration failed: %w", err)
			}
			appLogger.Info("Database schema up to date")
		}

		pool, err := postgres.InitDB(ctx, dsn,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		repo = postgres.NewURLRepository(pool)
		appLogger.Info("Database connection established")

	case config.BackendSQLite:
		db, err := sqlite.NewSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		repo = sqlite.NewURLRepository(db)
		appLogger.Info("SQLite database opened", "path", cfg.SQLite.Path)

	default:
		repo = memory.NewURLRepository()
		appLogger.Warn("Using in-memory store; records are lost on restart")
	}

	if !cfg.Redis.Enabled {
		return repo, nil
	}

	client, err := redis.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	appLogger.Info("Redis cache enabled", "addr", cfg.Redis.RedisAddr(), "ttl", cfg.Redis.CacheTTL.String())

	return redis.NewCachedRepository(repo, client, cfg.Redis.CacheTTL, appLogger.Logger), nil
}
