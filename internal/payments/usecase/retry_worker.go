package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
	paymentsService "github.com/mediaplace/payments/internal/payments/service"
)

// maxConcurrentRetries bounds in-flight attempts per scan so a large due
// batch cannot saturate the database pool.
const maxConcurrentRetries = 4

// WorkerConfig holds retry worker configuration.
type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// RetryWorker scans due retry sessions on a fixed interval and applies one
// attempt to each. Multiple instances may run concurrently: the session
// version guard ensures only one instance advances a given session per tick.
type RetryWorker struct {
	config    WorkerConfig
	scheduler RetrySchedulerUseCase
	retrier   Retrier
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetryWorker creates a new retry worker instance.
func NewRetryWorker(
	config WorkerConfig,
	scheduler RetrySchedulerUseCase,
	retrier Retrier,
	logger *slog.Logger,
) *RetryWorker {
	return &RetryWorker{
		config:    config,
		scheduler: scheduler,
		retrier:   retrier,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the processing loop until the context is cancelled.
func (w *RetryWorker) Start(ctx context.Context) error {
	w.logger.Info("starting retry worker",
		slog.Duration("interval", w.config.Interval),
		slog.Int("batch_size", w.config.BatchSize),
	)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping retry worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessDue(ctx); err != nil {
				w.logger.Error("failed to process due retry sessions", slog.Any("error", err))
			}
		}
	}
}

// ProcessDue runs one scan over due sessions. Attempts within a batch run
// concurrently, bounded by maxConcurrentRetries.
func (w *RetryWorker) ProcessDue(ctx context.Context) error {
	sessions, err := w.scheduler.DueSessions(ctx, w.now(), w.config.BatchSize)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	w.logger.Info("processing due retry sessions", slog.Int("count", len(sessions)))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentRetries)

	for _, session := range sessions {
		group.Go(func() error {
			outcome := w.retrier.Retry(groupCtx, session)

			if err := w.scheduler.Advance(groupCtx, session, outcome); err != nil {
				if apperrors.Is(err, paymentsDomain.ErrStaleSession) {
					// Another instance took this session first.
					w.logger.Info("skipping session advanced elsewhere",
						slog.String("session_id", session.SessionID.String()),
					)
					return nil
				}
				w.logger.Error("failed to advance retry session",
					slog.String("session_id", session.SessionID.String()),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	return group.Wait()
}

// dispatchRetrier executes retry attempts. Webhook-processing sessions are
// re-dispatched from the ledger. Payment-attempt sessions cannot be re-charged
// from here; each due attempt surfaces the failure again so the storefront can
// prompt the shopper, and counts against the budget.
type dispatchRetrier struct {
	dispatcher DispatcherUseCase
	classifier paymentsService.Classifier
	logger     *slog.Logger
}

// NewDispatchRetrier creates the default Retrier backed by the dispatcher.
func NewDispatchRetrier(
	dispatcher DispatcherUseCase,
	classifier paymentsService.Classifier,
	logger *slog.Logger,
) Retrier {
	return &dispatchRetrier{dispatcher: dispatcher, classifier: classifier, logger: logger}
}

// Retry applies one attempt to the session.
func (d *dispatchRetrier) Retry(
	ctx context.Context,
	session *paymentsDomain.RetrySession,
) paymentsDomain.AttemptOutcome {
	switch session.Kind {
	case paymentsDomain.SessionKindWebhookProcessing:
		if err := d.dispatcher.Redispatch(ctx, session.OwnerID); err != nil {
			details := d.classifier.Classify(&paymentsDomain.ProviderError{
				Code:    "processing_error",
				Message: err.Error(),
			})
			return paymentsDomain.AttemptOutcome{Details: &details}
		}
		return paymentsDomain.AttemptOutcome{Succeeded: true}

	case paymentsDomain.SessionKindPaymentAttempt:
		d.logger.Info("payment retry due",
			slog.String("session_id", session.SessionID.String()),
			slog.String("payment_reference", session.OwnerID),
			slog.Int("attempt", session.CurrentAttempt),
		)
		return paymentsDomain.AttemptOutcome{Details: session.ErrorContext}

	default:
		d.logger.Warn("unknown retry session kind",
			slog.String("session_id", session.SessionID.String()),
			slog.String("kind", string(session.Kind)),
		)
		return paymentsDomain.AttemptOutcome{Details: session.ErrorContext}
	}
}
