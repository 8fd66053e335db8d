// Package http provides HTTP handlers for the payment-event reliability
// engine: the provider webhook endpoint and the dead-letter management API.
package http

import (
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/mediaplace/payments/internal/httputil"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
	paymentsUseCase "github.com/mediaplace/payments/internal/payments/usecase"
)

// SignatureHeader is the request header carrying the provider's HMAC
// signature of the raw body.
const SignatureHeader = "Payment-Signature"

// WebhookHandler handles inbound provider webhook deliveries.
type WebhookHandler struct {
	dispatcher paymentsUseCase.DispatcherUseCase
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with required dependencies.
func NewWebhookHandler(
	dispatcher paymentsUseCase.DispatcherUseCase,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ReceiveHandler verifies, records and dispatches one provider delivery.
// POST /v1/webhooks/payments
// Returns 200 OK with the processing status, or 400 Bad Request when the
// signature does not verify. Verification failures are deliberately 400 so
// the provider does not retry forged or replayed deliveries.
func (h *WebhookHandler) ReceiveHandler(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("failed to read request body: %w", err), h.logger)
		return
	}
	if len(rawBody) == 0 {
		httputil.HandleBadRequestGin(c, fmt.Errorf("request body cannot be empty"), h.logger)
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), rawBody, c.GetHeader(SignatureHeader))
	if err != nil {
		if paymentsDomain.IsVerificationError(err) {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.HandleWebhookSuccess(c, string(result.Status))
}

// RegisterWebhookRoutes wires the webhook endpoint into the router group.
func RegisterWebhookRoutes(group *gin.RouterGroup, handler *WebhookHandler) {
	group.POST("/webhooks/payments", handler.ReceiveHandler)
}
