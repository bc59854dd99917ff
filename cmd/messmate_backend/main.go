package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	_ "github.com/messmate/messmate_backend/cmd/docs"
	"github.com/messmate/messmate_backend/internal/core/domain"
	"github.com/messmate/messmate_backend/internal/core/services"
	"github.com/messmate/messmate_backend/internal/handlers"
	"github.com/messmate/messmate_backend/internal/middleware"
	"github.com/messmate/messmate_backend/internal/platform/cache"
	"github.com/messmate/messmate_backend/internal/repositories/database/pgsql"
	"github.com/messmate/messmate_backend/pkg/config"
	"github.com/messmate/messmate_backend/pkg/database"
)

// @title MessMate Backend API
// @version 1.0
// @description Shared-household meal, expense and balance tracking API.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	derivedCache := newDerivedCache(cfg, logger)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	registerCustomValidators(logger)

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		cors.Default(),
		newRateLimiter(cfg, logger),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	repos := pgsql.NewRepositoryProvider(dbPool)
	container := services.NewServiceContainer(&repos, derivedCache, services.WithCacheTTL(cfg.CacheTTL))

	handlers.RegisterRoutes(r, cfg, container)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations using a temporary
// database/sql connection over the pgx stdlib driver.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// newDerivedCache connects the redis-backed derived-data cache, or degrades to
// the no-op cache when redis is not configured or unreachable.
func newDerivedCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if cfg.RedisURL == "" {
		logger.Info("No REDIS_URL configured, running without derived-data cache.")
		return cache.Noop{}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, running without derived-data cache.", slog.String("error", err.Error()))
		return cache.Noop{}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("Redis unreachable, running without derived-data cache.", slog.String("error", err.Error()))
		return cache.Noop{}
	}

	logger.Info("Redis derived-data cache connected.")
	return cache.NewRedis(client, logger)
}

// newRateLimiter builds the per-IP rate limiting middleware from the
// configured "<count>-<period>" format, e.g. "100-M".
func newRateLimiter(cfg *config.Config, logger *slog.Logger) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Warn("Invalid RATE_LIMIT format, rate limiting disabled.", slog.String("error", err.Error()))
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(limiter.New(memory.NewStore(), rate))
}

// registerCustomValidators wires request-binding validators that the struct
// tags reference.
func registerCustomValidators(logger *slog.Logger) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		logger.Error("Failed to access gin's validator engine")
		os.Exit(1)
	}
	err := v.RegisterValidation("carrypolicy", func(fl validator.FieldLevel) bool {
		policy := domain.CarryPolicy(fl.Field().String())
		return policy == domain.CarryBalance || policy == domain.CarryAvailable
	})
	if err != nil {
		logger.Error("Failed to register carrypolicy validator", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
