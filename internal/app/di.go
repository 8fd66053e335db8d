// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	cartHTTP "github.com/mediaplace/payments/internal/cart/http"
	cartService "github.com/mediaplace/payments/internal/cart/service"
	"github.com/mediaplace/payments/internal/cart/storage"
	cartUsecase "github.com/mediaplace/payments/internal/cart/usecase"
	"github.com/mediaplace/payments/internal/config"
	"github.com/mediaplace/payments/internal/database"
	"github.com/mediaplace/payments/internal/http"
	"github.com/mediaplace/payments/internal/metrics"
	paymentsHTTP "github.com/mediaplace/payments/internal/payments/http"
	paymentsService "github.com/mediaplace/payments/internal/payments/service"
	paymentsUsecase "github.com/mediaplace/payments/internal/payments/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	db          *sql.DB
	redisClient *redis.Client
	kvStore     storage.KVStore

	// Managers
	txManager database.TxManager

	// Observability
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Payment event pipeline
	signatureVerifier paymentsService.SignatureVerifier
	classifier        paymentsService.Classifier
	webhookEventRepo  paymentsUsecase.WebhookEventRepository
	orderStore        paymentsUsecase.OrderStore
	retrySessionRepo  paymentsUsecase.RetrySessionRepository
	retryScheduler    paymentsUsecase.RetrySchedulerUseCase
	dispatcher        paymentsUsecase.DispatcherUseCase

	// Cart
	cartStore       cartUsecase.CartStore
	snapshotManager cartUsecase.SnapshotManager
	cartUseCase     cartUsecase.CartUseCase
	tokenSigner     cartService.TokenSigner
	recoveryUseCase cartUsecase.RecoveryUseCase

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	retryWorker   *paymentsUsecase.RetryWorker

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	kvStoreInit           sync.Once
	txManagerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	signatureVerifierInit sync.Once
	classifierInit        sync.Once
	webhookEventRepoInit  sync.Once
	orderStoreInit        sync.Once
	retrySessionRepoInit  sync.Once
	retrySchedulerInit    sync.Once
	dispatcherInit        sync.Once
	cartStoreInit         sync.Once
	snapshotManagerInit   sync.Once
	cartUseCaseInit       sync.Once
	tokenSignerInit       sync.Once
	recoveryUseCaseInit   sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	retryWorkerInit       sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// KVStore returns the key-value store backing cart snapshots and recovery
// token bookkeeping. It is redis-backed when REDIS_ADDR is set and falls back
// to an in-memory store otherwise (single-instance deployments and tests).
func (c *Container) KVStore() (storage.KVStore, error) {
	var err error
	c.kvStoreInit.Do(func() {
		c.kvStore, err = c.initKVStore()
		if err != nil {
			c.initErrors["kvStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kvStore"]; exists {
		return nil, storedErr
	}
	return c.kvStore, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider.
// It returns nil when metrics are disabled by configuration.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the domain-level metrics recorder.
// It returns nil when metrics are disabled by configuration.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(
			provider.MeterProvider(), c.config.MetricsNamespace,
		)
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP servers if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	// Flush metrics if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Close redis connection if initialized
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	// Close database connection if initialized
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initKVStore creates the key-value store backing cart snapshots.
func (c *Container) initKVStore() (storage.KVStore, error) {
	if c.config.RedisAddr == "" {
		c.Logger().Warn("REDIS_ADDR is empty, cart snapshots will use an in-memory store")
		return storage.NewMemoryStore(), nil
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:     c.config.RedisAddr,
		Password: c.config.RedisPassword,
		DB:       c.config.RedisDB,
	})

	return storage.NewRedisStore(c.redisClient, "cart"), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	webhookHandler, err := c.webhookHTTPHandler()
	if err != nil {
		return nil, err
	}

	retrySessionHandler, err := c.retrySessionHTTPHandler()
	if err != nil {
		return nil, err
	}

	cartHandler, err := c.cartHTTPHandler()
	if err != nil {
		return nil, err
	}

	middlewares := []gin.HandlerFunc{
		http.CORSMiddleware(c.config.CORSEnabled, c.config.CORSAllowOrigins, logger),
	}
	if c.config.RateLimitWebhookEnabled {
		middlewares = append(middlewares, http.IPRateLimitMiddleware(
			c.config.RateLimitWebhookRequestsPerSec,
			c.config.RateLimitWebhookBurst,
			logger,
		))
	}
	if provider, err := c.MetricsProvider(); err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	} else if provider != nil {
		middlewares = append(middlewares, metrics.HTTPMetricsMiddleware(
			provider.MeterProvider(), c.config.MetricsNamespace,
		))
	}

	server := http.NewServer(c.config.ServerHost, c.config.ServerPort, logger, http.Options{
		Middlewares: middlewares,
		RegisterRoutes: func(router *gin.Engine) {
			v1 := router.Group("/v1")
			paymentsHTTP.RegisterWebhookRoutes(v1, webhookHandler)
			paymentsHTTP.RegisterRetrySessionRoutes(v1, retrySessionHandler)
			cartHTTP.RegisterCartRoutes(v1, cartHandler)
		},
	})

	return server, nil
}
