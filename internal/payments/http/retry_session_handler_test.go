package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mediaplace/payments/internal/httputil"
	paymentsDomain "github.com/mediaplace/payments/internal/payments/domain"
	"github.com/mediaplace/payments/internal/payments/http/dto"
	"github.com/mediaplace/payments/internal/payments/usecase/mocks"
)

func setupRetrySessionHandler(t *testing.T) (*RetrySessionHandler, *mocks.MockRetrySchedulerUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockScheduler := &mocks.MockRetrySchedulerUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRetrySessionHandler(mockScheduler, logger), mockScheduler
}

func deadLetterSession() *paymentsDomain.RetrySession {
	now := time.Now().UTC()
	return &paymentsDomain.RetrySession{
		SessionID:      uuid.Must(uuid.NewV7()),
		OwnerID:        "pi_dead_1",
		Kind:           paymentsDomain.SessionKindPaymentAttempt,
		CurrentAttempt: 5,
		MaxAttempts:    5,
		Status:         paymentsDomain.SessionStatusDeadLetter,
		ErrorContext: &paymentsDomain.ErrorDetails{
			Code:      "card_declined",
			Type:      paymentsDomain.ErrorTypeCard,
			Retryable: true,
		},
		Version:   6,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now,
	}
}

func TestRetrySessionHandler_ListHandler(t *testing.T) {
	t.Run("Success_ReturnsSessions", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)
		session := deadLetterSession()

		mockScheduler.On("ListDeadLetter", mock.Anything, 50, 0).
			Return([]*paymentsDomain.RetrySession{session}, nil).
			Once()

		c, w := createRawContext(http.MethodGet, "/v1/retry-sessions?status=dead_letter", nil, nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListRetrySessionsResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Data, 1)
		assert.Equal(t, session.SessionID.String(), response.Data[0].SessionID)
		assert.Equal(t, "dead_letter", response.Data[0].Status)
		assert.Equal(t, "card_declined", response.Data[0].ErrorContext.Code)

		mockScheduler.AssertExpectations(t)
	})

	t.Run("Success_CustomPagination", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)

		mockScheduler.On("ListDeadLetter", mock.Anything, 10, 20).
			Return([]*paymentsDomain.RetrySession{}, nil).
			Once()

		c, w := createRawContext(http.MethodGet, "/v1/retry-sessions?status=dead_letter&offset=20&limit=10", nil, nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListRetrySessionsResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Empty(t, response.Data)
	})

	t.Run("Error_UnsupportedStatus", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)

		c, w := createRawContext(http.MethodGet, "/v1/retry-sessions?status=scheduled", nil, nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockScheduler.AssertNotCalled(t, "ListDeadLetter", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidPagination", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)

		c, w := createRawContext(http.MethodGet, "/v1/retry-sessions?limit=5000", nil, nil)
		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockScheduler.AssertNotCalled(t, "ListDeadLetter", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRetrySessionHandler_ReprocessHandler(t *testing.T) {
	t.Run("Success_ResetsSession", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)
		session := deadLetterSession()
		session.CurrentAttempt = 0
		session.Status = paymentsDomain.SessionStatusScheduled

		mockScheduler.On("Reprocess", mock.Anything, session.SessionID).
			Return(session, nil).
			Once()

		c, w := createRawContext(http.MethodPost, "/v1/retry-sessions/"+session.SessionID.String()+"/reprocess", nil, nil)
		c.Params = gin.Params{{Key: "id", Value: session.SessionID.String()}}
		handler.ReprocessHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RetrySessionResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "scheduled", response.Status)
		assert.Equal(t, 0, response.CurrentAttempt)
	})

	t.Run("Error_NotDeadLettered", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)
		sessionID := uuid.Must(uuid.NewV7())

		mockScheduler.On("Reprocess", mock.Anything, sessionID).
			Return(nil, paymentsDomain.ErrSessionNotDeadLetter).
			Once()

		c, w := createRawContext(http.MethodPost, "/v1/retry-sessions/"+sessionID.String()+"/reprocess", nil, nil)
		c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
		handler.ReprocessHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Error_SessionNotFound", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)
		sessionID := uuid.Must(uuid.NewV7())

		mockScheduler.On("Reprocess", mock.Anything, sessionID).
			Return(nil, paymentsDomain.ErrSessionNotFound).
			Once()

		c, w := createRawContext(http.MethodPost, "/v1/retry-sessions/"+sessionID.String()+"/reprocess", nil, nil)
		c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
		handler.ReprocessHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Error_InvalidSessionID", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)

		c, w := createRawContext(http.MethodPost, "/v1/retry-sessions/not-a-uuid/reprocess", nil, nil)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
		handler.ReprocessHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockScheduler.AssertNotCalled(t, "Reprocess", mock.Anything, mock.Anything)
	})
}

func TestRetrySessionHandler_DeleteHandler(t *testing.T) {
	t.Run("Success_DeletesSession", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)
		sessionID := uuid.Must(uuid.NewV7())

		mockScheduler.On("DeleteDeadLetter", mock.Anything, sessionID).
			Return(nil).
			Once()

		c, w := createRawContext(http.MethodDelete, "/v1/retry-sessions/"+sessionID.String(), nil, nil)
		c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockScheduler.AssertExpectations(t)
	})

	t.Run("Error_NotDeadLettered", func(t *testing.T) {
		handler, mockScheduler := setupRetrySessionHandler(t)
		sessionID := uuid.Must(uuid.NewV7())

		mockScheduler.On("DeleteDeadLetter", mock.Anything, sessionID).
			Return(paymentsDomain.ErrSessionNotDeadLetter).
			Once()

		c, w := createRawContext(http.MethodDelete, "/v1/retry-sessions/"+sessionID.String(), nil, nil)
		c.Params = gin.Params{{Key: "id", Value: sessionID.String()}}
		handler.DeleteHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)

		var response httputil.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "conflict", response.Error)
	})
}
