package app

import (
	"context"
	"fmt"

	"github.com/mediaplace/payments/internal/kms"
	paymentsHTTP "github.com/mediaplace/payments/internal/payments/http"
	paymentsRepository "github.com/mediaplace/payments/internal/payments/repository"
	paymentsService "github.com/mediaplace/payments/internal/payments/service"
	paymentsUsecase "github.com/mediaplace/payments/internal/payments/usecase"
)

// defaultRetryableErrorCodes is the allow-list stamped onto new retry
// sessions. It mirrors the classifier entries whose verdict is retryable and
// does not require shopper action; codes outside it never auto-retry even
// when the provider keeps sending transient-looking failures.
var defaultRetryableErrorCodes = []string{
	"processing_error",
	"rate_limit",
	"network_error",
}

// SignatureVerifier returns the webhook signature verifier.
// The shared secret is resolved through KMS when an encrypted secret is
// configured, so the plaintext never has to live in the environment.
func (c *Container) SignatureVerifier() (paymentsService.SignatureVerifier, error) {
	var err error
	c.signatureVerifierInit.Do(func() {
		var secret []byte
		secret, err = c.resolveWebhookSecret()
		if err != nil {
			c.initErrors["signatureVerifier"] = err
			return
		}
		c.signatureVerifier = paymentsService.NewSignatureVerifier(
			secret,
			c.config.WebhookTolerance,
			c.config.WebhookInsecureSkipVerify,
			c.Logger(),
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signatureVerifier"]; exists {
		return nil, storedErr
	}
	return c.signatureVerifier, nil
}

// Classifier returns the provider error classifier.
func (c *Container) Classifier() (paymentsService.Classifier, error) {
	c.classifierInit.Do(func() {
		c.classifier = paymentsService.NewClassifier()
	})
	return c.classifier, nil
}

// WebhookEventRepository returns the webhook event repository instance.
func (c *Container) WebhookEventRepository() (paymentsUsecase.WebhookEventRepository, error) {
	var err error
	c.webhookEventRepoInit.Do(func() {
		c.webhookEventRepo, err = c.initWebhookEventRepository()
		if err != nil {
			c.initErrors["webhookEventRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["webhookEventRepo"]; exists {
		return nil, storedErr
	}
	return c.webhookEventRepo, nil
}

// OrderStore returns the order store instance.
func (c *Container) OrderStore() (paymentsUsecase.OrderStore, error) {
	var err error
	c.orderStoreInit.Do(func() {
		c.orderStore, err = c.initOrderStore()
		if err != nil {
			c.initErrors["orderStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["orderStore"]; exists {
		return nil, storedErr
	}
	return c.orderStore, nil
}

// RetrySessionRepository returns the retry session repository instance.
func (c *Container) RetrySessionRepository() (paymentsUsecase.RetrySessionRepository, error) {
	var err error
	c.retrySessionRepoInit.Do(func() {
		c.retrySessionRepo, err = c.initRetrySessionRepository()
		if err != nil {
			c.initErrors["retrySessionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["retrySessionRepo"]; exists {
		return nil, storedErr
	}
	return c.retrySessionRepo, nil
}

// RetryScheduler returns the retry scheduler use case instance.
func (c *Container) RetryScheduler() (paymentsUsecase.RetrySchedulerUseCase, error) {
	var err error
	c.retrySchedulerInit.Do(func() {
		c.retryScheduler, err = c.initRetryScheduler()
		if err != nil {
			c.initErrors["retryScheduler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["retryScheduler"]; exists {
		return nil, storedErr
	}
	return c.retryScheduler, nil
}

// Dispatcher returns the webhook dispatcher use case instance.
func (c *Container) Dispatcher() (paymentsUsecase.DispatcherUseCase, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// RetryWorker returns the background retry worker instance.
func (c *Container) RetryWorker() (*paymentsUsecase.RetryWorker, error) {
	var err error
	c.retryWorkerInit.Do(func() {
		c.retryWorker, err = c.initRetryWorker()
		if err != nil {
			c.initErrors["retryWorker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["retryWorker"]; exists {
		return nil, storedErr
	}
	return c.retryWorker, nil
}

// resolveWebhookSecret returns the webhook shared secret, decrypting it
// through KMS when the encrypted form is configured.
func (c *Container) resolveWebhookSecret() ([]byte, error) {
	if c.config.WebhookEncryptedSecret != "" && c.config.KMSKeyURI != "" {
		resolver := kms.NewSecretResolver()
		secret, err := resolver.Resolve(
			context.Background(), c.config.KMSKeyURI, c.config.WebhookEncryptedSecret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve webhook secret through kms: %w", err)
		}
		return secret, nil
	}

	if c.config.WebhookSecret == "" && !c.config.WebhookInsecureSkipVerify {
		return nil, fmt.Errorf("WEBHOOK_SECRET or WEBHOOK_ENCRYPTED_SECRET must be configured")
	}

	return []byte(c.config.WebhookSecret), nil
}

// initWebhookEventRepository creates the webhook event repository instance.
func (c *Container) initWebhookEventRepository() (paymentsUsecase.WebhookEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for webhook event repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return paymentsRepository.NewMySQLWebhookEventRepository(db), nil
	case "postgres":
		return paymentsRepository.NewPostgreSQLWebhookEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initOrderStore creates the order store instance.
func (c *Container) initOrderStore() (paymentsUsecase.OrderStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for order store: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return paymentsRepository.NewMySQLOrderStore(db), nil
	case "postgres":
		return paymentsRepository.NewPostgreSQLOrderStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRetrySessionRepository creates the retry session repository instance.
func (c *Container) initRetrySessionRepository() (paymentsUsecase.RetrySessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for retry session repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return paymentsRepository.NewMySQLRetrySessionRepository(db), nil
	case "postgres":
		return paymentsRepository.NewPostgreSQLRetrySessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRetryScheduler creates the retry scheduler with all its dependencies.
func (c *Container) initRetryScheduler() (paymentsUsecase.RetrySchedulerUseCase, error) {
	sessionRepo, err := c.RetrySessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get retry session repository for retry scheduler: %w", err)
	}

	schedulerConfig := paymentsUsecase.SchedulerConfig{
		MaxAttempts:         c.config.RetryMaxAttempts,
		BaseDelay:           c.config.RetryBaseDelay,
		RateLimitBaseDelay:  c.config.RetryRateLimitBaseDelay,
		MaxDelay:            c.config.RetryMaxDelay,
		BackoffMultiplier:   c.config.RetryBackoffMultiplier,
		RetryableErrorCodes: defaultRetryableErrorCodes,
	}

	scheduler := paymentsUsecase.NewRetrySchedulerUseCase(sessionRepo, schedulerConfig, c.Logger())

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for retry scheduler: %w", err)
	}
	if businessMetrics != nil {
		scheduler = paymentsUsecase.NewRetrySchedulerWithMetrics(scheduler, businessMetrics)
	}

	return scheduler, nil
}

// initDispatcher creates the webhook dispatcher with all its dependencies.
func (c *Container) initDispatcher() (paymentsUsecase.DispatcherUseCase, error) {
	verifier, err := c.SignatureVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get signature verifier for dispatcher: %w", err)
	}

	classifier, err := c.Classifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get classifier for dispatcher: %w", err)
	}

	eventRepo, err := c.WebhookEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event repository for dispatcher: %w", err)
	}

	orderStore, err := c.OrderStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get order store for dispatcher: %w", err)
	}

	scheduler, err := c.RetryScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to get retry scheduler for dispatcher: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for dispatcher: %w", err)
	}

	dispatcher := paymentsUsecase.NewDispatcherUseCase(
		verifier, classifier, eventRepo, orderStore, scheduler, txManager, c.Logger(),
	)

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}
	if businessMetrics != nil {
		dispatcher = paymentsUsecase.NewDispatcherWithMetrics(dispatcher, businessMetrics)
	}

	return dispatcher, nil
}

// initRetryWorker creates the retry worker with all its dependencies.
func (c *Container) initRetryWorker() (*paymentsUsecase.RetryWorker, error) {
	scheduler, err := c.RetryScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to get retry scheduler for retry worker: %w", err)
	}

	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for retry worker: %w", err)
	}

	classifier, err := c.Classifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get classifier for retry worker: %w", err)
	}

	workerConfig := paymentsUsecase.WorkerConfig{
		Interval:  c.config.RetryWorkerInterval,
		BatchSize: c.config.RetryWorkerBatchSize,
	}

	retrier := paymentsUsecase.NewDispatchRetrier(dispatcher, classifier, c.Logger())

	return paymentsUsecase.NewRetryWorker(workerConfig, scheduler, retrier, c.Logger()), nil
}

// webhookHTTPHandler creates the webhook HTTP handler.
func (c *Container) webhookHTTPHandler() (*paymentsHTTP.WebhookHandler, error) {
	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to get dispatcher for webhook handler: %w", err)
	}
	return paymentsHTTP.NewWebhookHandler(dispatcher, c.Logger()), nil
}

// retrySessionHTTPHandler creates the retry session HTTP handler.
func (c *Container) retrySessionHTTPHandler() (*paymentsHTTP.RetrySessionHandler, error) {
	scheduler, err := c.RetryScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to get retry scheduler for retry session handler: %w", err)
	}
	return paymentsHTTP.NewRetrySessionHandler(scheduler, c.Logger()), nil
}
