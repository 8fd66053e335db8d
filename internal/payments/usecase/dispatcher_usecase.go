package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mediaplace/payments/internal/database"
	apperrors "github.com/mediaplace/payments/internal/errors"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
	paymentsService "github.com/mediaplace/payments/internal/payments/service"
)

// dispatcherUseCase implements the DispatcherUseCase interface.
type dispatcherUseCase struct {
	verifier   paymentsService.SignatureVerifier
	classifier paymentsService.Classifier
	eventRepo  WebhookEventRepository
	orderStore OrderStore
	scheduler  RetrySchedulerUseCase
	txManager  database.TxManager
	logger     *slog.Logger
	now        func() time.Time
}

// Dispatch verifies, records and processes one provider delivery.
func (d *dispatcherUseCase) Dispatch(
	ctx context.Context,
	rawBody []byte,
	signatureHeader string,
) (*paymentsDomain.DispatchResult, error) {
	envelope, err := d.verifier.Verify(rawBody, signatureHeader, d.now())
	if err != nil {
		return nil, err
	}

	event := paymentsDomain.NewWebhookEvent(envelope, rawBody, d.now())

	// The ledger insert is the atomic idempotency claim: exactly one delivery
	// of a provider event ID crosses this line.
	inserted, err := d.eventRepo.RecordIfNew(ctx, event)
	if err != nil {
		return nil, err
	}
	if !inserted {
		d.logger.Info("duplicate webhook delivery ignored",
			"provider_event_id", event.ProviderEventID,
			"event_type", event.RawType,
		)
		return &paymentsDomain.DispatchResult{
			Status:          paymentsDomain.DispatchStatusDuplicate,
			ProviderEventID: event.ProviderEventID,
			EventType:       event.Type,
		}, nil
	}

	status, err := d.process(ctx, event, envelope)
	if err != nil {
		d.recordDispatchFailure(ctx, event, err)
		return nil, err
	}

	if err := d.markProcessed(ctx, event); err != nil {
		return nil, err
	}

	return &paymentsDomain.DispatchResult{
		Status:          status,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
	}, nil
}

// Redispatch re-runs processing for a previously failed ledger event. The
// retry worker owns session advancement, so only the ledger row is updated
// here.
func (d *dispatcherUseCase) Redispatch(ctx context.Context, providerEventID string) error {
	event, err := d.eventRepo.GetByProviderEventID(ctx, providerEventID)
	if err != nil {
		return err
	}

	var envelope paymentsDomain.EventEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return apperrors.Wrap(err, "failed to decode stored webhook payload")
	}

	if _, err := d.process(ctx, event, &envelope); err != nil {
		d.markFailed(ctx, event, err)
		return err
	}
	return d.markProcessed(ctx, event)
}

// process runs the per-event-type state machine.
func (d *dispatcherUseCase) process(
	ctx context.Context,
	event *paymentsDomain.WebhookEvent,
	envelope *paymentsDomain.EventEnvelope,
) (paymentsDomain.DispatchStatus, error) {
	switch event.Type {
	case paymentsDomain.EventPaymentSucceeded:
		if err := d.handlePaymentSucceeded(ctx, envelope); err != nil {
			return "", err
		}
		return paymentsDomain.DispatchStatusProcessed, nil

	case paymentsDomain.EventPaymentFailed:
		if err := d.handlePaymentFailed(ctx, envelope); err != nil {
			return "", err
		}
		return paymentsDomain.DispatchStatusProcessed, nil

	case paymentsDomain.EventCheckoutSessionCompleted:
		if err := d.handleCheckoutCompleted(ctx, envelope); err != nil {
			return "", err
		}
		return paymentsDomain.DispatchStatusProcessed, nil

	case paymentsDomain.EventCustomerCreated,
		paymentsDomain.EventInvoicePaymentSucceeded,
		paymentsDomain.EventInvoicePaymentFailed:
		// Audit-only: acknowledged and recorded, no order mutation. Invoice
		// settlement is billing's concern; orders move on payment_intent
		// events alone.
		d.logger.Info("audit webhook event recorded",
			"provider_event_id", event.ProviderEventID,
			"event_type", event.RawType,
		)
		return paymentsDomain.DispatchStatusLogged, nil

	default:
		// Unknown future types are acknowledged so the provider stops
		// redelivering them.
		d.logger.Warn("unhandled webhook event type",
			"provider_event_id", event.ProviderEventID,
			"event_type", event.RawType,
		)
		return paymentsDomain.DispatchStatusUnhandled, nil
	}
}

func (d *dispatcherUseCase) handlePaymentSucceeded(
	ctx context.Context,
	envelope *paymentsDomain.EventEnvelope,
) error {
	object, err := decodePaymentObject(envelope)
	if err != nil {
		return err
	}

	reference := object.PaymentReference()
	order, err := d.orderStore.FindByPaymentReference(ctx, reference)
	if err != nil {
		return err
	}

	paid := paymentsDomain.PaymentStatusPaid
	update := paymentsDomain.OrderUpdate{
		PaymentStatus: &paid,
		Metadata:      paymentMetadata(object),
	}
	if order.Status.CanTransitionTo(paymentsDomain.OrderStatusAccepted) {
		accepted := paymentsDomain.OrderStatusAccepted
		update.Status = &accepted
	}

	if err := d.orderStore.UpdateStatus(ctx, order.ID, update); err != nil {
		return err
	}

	// Close any open payment retry session for this reference. Best-effort:
	// the payment already succeeded.
	if err := d.scheduler.ResolveSuccess(
		ctx, reference, paymentsDomain.SessionKindPaymentAttempt,
	); err != nil {
		d.logger.Warn("failed to resolve payment retry session",
			"payment_reference", reference,
			"error", err,
		)
	}

	d.logger.Info("payment confirmed",
		"payment_reference", reference,
		"order_id", order.ID,
	)
	return nil
}

func (d *dispatcherUseCase) handlePaymentFailed(
	ctx context.Context,
	envelope *paymentsDomain.EventEnvelope,
) error {
	object, err := decodePaymentObject(envelope)
	if err != nil {
		return err
	}

	details := d.classifier.Classify(object.LastPaymentError)
	reference := object.PaymentReference()

	order, err := d.orderStore.FindByPaymentReference(ctx, reference)
	if err != nil {
		return err
	}

	failed := paymentsDomain.PaymentStatusFailed
	update := paymentsDomain.OrderUpdate{
		PaymentStatus: &failed,
		Metadata: map[string]string{
			"payment_error_code":    details.Code,
			"payment_error_message": details.UserMessage,
		},
	}

	// Order mutation and retry session land together or not at all.
	err = d.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := d.orderStore.UpdateStatus(txCtx, order.ID, update); err != nil {
			return err
		}
		_, err := d.scheduler.RecordFailure(
			txCtx, reference, paymentsDomain.SessionKindPaymentAttempt, &details,
		)
		return err
	})
	if err != nil {
		return err
	}

	d.logger.Info("payment failure recorded",
		"payment_reference", reference,
		"order_id", order.ID,
		"error_code", details.Code,
		"error_category", details.Category,
		"retryable", details.Retryable,
	)
	return nil
}

func (d *dispatcherUseCase) handleCheckoutCompleted(
	ctx context.Context,
	envelope *paymentsDomain.EventEnvelope,
) error {
	object, err := decodePaymentObject(envelope)
	if err != nil {
		return err
	}

	if object.PaymentStatus == "paid" {
		return d.handlePaymentSucceeded(ctx, envelope)
	}

	// Checkout finished but the payment is still settling (e.g. a delayed
	// method). Hold the order in processing until the payment event lands.
	reference := object.PaymentReference()
	order, err := d.orderStore.FindByPaymentReference(ctx, reference)
	if err != nil {
		return err
	}

	processing := paymentsDomain.PaymentStatusProcessing
	update := paymentsDomain.OrderUpdate{PaymentStatus: &processing}
	if err := d.orderStore.UpdateStatus(ctx, order.ID, update); err != nil {
		return err
	}

	d.logger.Info("checkout completed with pending payment",
		"payment_reference", reference,
		"order_id", order.ID,
	)
	return nil
}

// recordDispatchFailure marks the ledger row failed and, for transient faults,
// books a webhook-processing retry session in the same transaction so the
// worker can re-dispatch the event later. Data inconsistencies (missing
// orders, malformed stored payloads) are not retried: re-dispatching the same
// event cannot fix them.
func (d *dispatcherUseCase) recordDispatchFailure(
	ctx context.Context,
	event *paymentsDomain.WebhookEvent,
	procErr error,
) {
	lastError := procErr.Error()
	processedAt := d.now().UTC()
	retryable := !apperrors.Is(procErr, apperrors.ErrNotFound) &&
		!apperrors.Is(procErr, apperrors.ErrInvalidInput)

	err := d.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := d.eventRepo.UpdateStatus(
			txCtx, event.ID, paymentsDomain.ProcessingStatusFailed, &lastError, &processedAt,
		); err != nil {
			return err
		}
		if !retryable {
			return nil
		}
		details := d.classifier.Classify(&paymentsDomain.ProviderError{
			Code:    "processing_error",
			Message: lastError,
		})
		_, err := d.scheduler.RecordFailure(
			txCtx, event.ProviderEventID, paymentsDomain.SessionKindWebhookProcessing, &details,
		)
		return err
	})
	if err != nil {
		d.logger.Error("failed to record webhook dispatch failure",
			"provider_event_id", event.ProviderEventID,
			"error", err,
		)
	}
}

func (d *dispatcherUseCase) markFailed(
	ctx context.Context,
	event *paymentsDomain.WebhookEvent,
	procErr error,
) {
	lastError := procErr.Error()
	processedAt := d.now().UTC()
	if err := d.eventRepo.UpdateStatus(
		ctx, event.ID, paymentsDomain.ProcessingStatusFailed, &lastError, &processedAt,
	); err != nil {
		d.logger.Error("failed to update webhook event status",
			"provider_event_id", event.ProviderEventID,
			"error", err,
		)
	}
}

func (d *dispatcherUseCase) markProcessed(
	ctx context.Context,
	event *paymentsDomain.WebhookEvent,
) error {
	processedAt := d.now().UTC()
	return d.eventRepo.UpdateStatus(
		ctx, event.ID, paymentsDomain.ProcessingStatusProcessed, nil, &processedAt,
	)
}

// decodePaymentObject extracts the payment object from the envelope.
func decodePaymentObject(envelope *paymentsDomain.EventEnvelope) (*paymentsDomain.PaymentObject, error) {
	raw := envelope.Object()
	if len(raw) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "webhook event has no payment object")
	}

	var object paymentsDomain.PaymentObject
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput,
			"failed to decode payment object: "+err.Error())
	}
	return &object, nil
}

// paymentMetadata builds the best-effort enrichment patch from the payment
// object. Missing instrument details are never an error.
func paymentMetadata(object *paymentsDomain.PaymentObject) map[string]string {
	metadata := map[string]string{}
	if object.PaymentMethod != "" {
		metadata["payment_method_id"] = object.PaymentMethod
	}
	if details := object.PaymentMethodDetails; details != nil {
		if details.Type != "" {
			metadata["payment_method_type"] = details.Type
		}
		if details.Card != nil {
			metadata["card_brand"] = details.Card.Brand
			metadata["card_last4"] = details.Card.Last4
		}
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

// NewDispatcherUseCase creates a new webhook dispatcher use case instance.
func NewDispatcherUseCase(
	verifier paymentsService.SignatureVerifier,
	classifier paymentsService.Classifier,
	eventRepo WebhookEventRepository,
	orderStore OrderStore,
	scheduler RetrySchedulerUseCase,
	txManager database.TxManager,
	logger *slog.Logger,
) DispatcherUseCase {
	return &dispatcherUseCase{
		verifier:   verifier,
		classifier: classifier,
		eventRepo:  eventRepo,
		orderStore: orderStore,
		scheduler:  scheduler,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
	}
}
