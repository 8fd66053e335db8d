package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mediaplace/payments/internal/httputil"
	"github.com/mediaplace/payments/internal/payments/http/dto"
	paymentsUseCase "github.com/mediaplace/payments/internal/payments/usecase"
)

// RetrySessionHandler handles HTTP requests for dead-letter inspection and
// recovery.
type RetrySessionHandler struct {
	scheduler paymentsUseCase.RetrySchedulerUseCase
	logger    *slog.Logger
}

// NewRetrySessionHandler creates a new retry session handler with required
// dependencies.
func NewRetrySessionHandler(
	scheduler paymentsUseCase.RetrySchedulerUseCase,
	logger *slog.Logger,
) *RetrySessionHandler {
	return &RetrySessionHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// ListHandler retrieves dead-lettered retry sessions with pagination.
// GET /v1/retry-sessions?status=dead_letter&offset=0&limit=50
// Returns 200 OK with the session list, most recently updated first. Only the
// dead_letter status is exposed; active sessions are internal engine state.
func (h *RetrySessionHandler) ListHandler(c *gin.Context) {
	if status := c.DefaultQuery("status", "dead_letter"); status != "dead_letter" {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid status parameter: only dead_letter is supported"),
			h.logger,
		)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	sessions, err := h.scheduler.ListDeadLetter(c.Request.Context(), limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRetrySessionsToListResponse(sessions))
}

// ReprocessHandler resets a dead-lettered session for an immediate new attempt.
// POST /v1/retry-sessions/:id/reprocess
// Returns 200 OK with the reset session, 404 when the session does not exist
// and 409 when it is not dead-lettered.
func (h *RetrySessionHandler) ReprocessHandler(c *gin.Context) {
	sessionID, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	session, err := h.scheduler.Reprocess(c.Request.Context(), sessionID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRetrySessionToResponse(session))
}

// DeleteHandler permanently removes a dead-lettered session.
// DELETE /v1/retry-sessions/:id
// Returns 204 No Content. The deletion is audit logged by the use case.
func (h *RetrySessionHandler) DeleteHandler(c *gin.Context) {
	sessionID, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.scheduler.DeleteDeadLetter(c.Request.Context(), sessionID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

func parseSessionID(c *gin.Context) (uuid.UUID, error) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id: must be a UUID")
	}
	return sessionID, nil
}

// RegisterRetrySessionRoutes wires the dead-letter management endpoints into
// the router group.
func RegisterRetrySessionRoutes(group *gin.RouterGroup, handler *RetrySessionHandler) {
	group.GET("/retry-sessions", handler.ListHandler)
	group.POST("/retry-sessions/:id/reprocess", handler.ReprocessHandler)
	group.DELETE("/retry-sessions/:id", handler.DeleteHandler)
}
