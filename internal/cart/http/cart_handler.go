// Package http provides HTTP handlers for the cart durability layer.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
	"github.com/mediaplace/payments/internal/cart/http/dto"
	cartUseCase "github.com/mediaplace/payments/internal/cart/usecase"
	"github.com/mediaplace/payments/internal/httputil"
	customValidation "github.com/mediaplace/payments/internal/validation"
)

// Identity headers set by the upstream identity provider. Auth policy is
// enforced there; these handlers only need to know who is asking.
const (
	UserIDHeader    = "X-User-ID"
	SessionIDHeader = "X-Session-ID"
)

// CartHandler handles HTTP requests for cart reads, guarded mutations and
// abandoned-cart recovery.
type CartHandler struct {
	carts    cartUseCase.CartUseCase
	recovery cartUseCase.RecoveryUseCase
	logger   *slog.Logger
}

// NewCartHandler creates a new cart handler with required dependencies.
func NewCartHandler(
	carts cartUseCase.CartUseCase,
	recovery cartUseCase.RecoveryUseCase,
	logger *slog.Logger,
) *CartHandler {
	return &CartHandler{
		carts:    carts,
		recovery: recovery,
		logger:   logger,
	}
}

// GetHandler retrieves the session's cart, remote-first.
// GET /v1/cart
// Returns 200 OK; a cart restored from the local snapshot carries
// read_only=true.
func (h *CartHandler) GetHandler(c *gin.Context) {
	sessionID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	cart, err := h.carts.Get(c.Request.Context(), sessionID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// AddItemHandler upserts a line item.
// POST /v1/cart/items
// Returns 200 OK with the updated cart, 409 when another mutation is in
// flight or the cart is read-only.
func (h *CartHandler) AddItemHandler(c *gin.Context) {
	sessionID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	var req dto.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	item := cartDomain.CartItem{
		MediaOutletID:  uuid.MustParse(req.MediaOutletID),
		NicheID:        uuid.MustParse(req.NicheID),
		UnitPriceCents: req.UnitPriceCents,
		Currency:       req.Currency,
		Quantity:       req.Quantity,
	}

	cart, err := h.carts.AddItem(c.Request.Context(), sessionID, userID, item)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// UpdateQuantityHandler changes the quantity of an existing line item.
// PUT /v1/cart/items/:outletID
func (h *CartHandler) UpdateQuantityHandler(c *gin.Context) {
	sessionID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	outletID, err := parseOutletID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	cart, err := h.carts.UpdateQuantity(c.Request.Context(), sessionID, userID, outletID, req.Quantity)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// RemoveItemHandler drops a line item from the cart.
// DELETE /v1/cart/items/:outletID
func (h *CartHandler) RemoveItemHandler(c *gin.Context) {
	sessionID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	outletID, err := parseOutletID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	cart, err := h.carts.RemoveItem(c.Request.Context(), sessionID, userID, outletID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// IssueRecoveryHandler issues a signed recovery token for the current cart.
// POST /v1/cart/recovery
func (h *CartHandler) IssueRecoveryHandler(c *gin.Context) {
	sessionID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	token, err := h.recovery.Issue(c.Request.Context(), sessionID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.RecoveryTokenResponse{Token: token})
}

// RedeemRecoveryHandler rebuilds the cart from a recovery token. The token is
// accepted from the query string (recovery links) or the request body.
// POST /v1/cart/recovery/redeem?token=...
func (h *CartHandler) RedeemRecoveryHandler(c *gin.Context) {
	sessionID, userID, ok := h.identity(c)
	if !ok {
		return
	}

	token := c.Query("token")
	if token == "" {
		var req dto.RedeemRecoveryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		if err := req.Validate(); err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
			return
		}
		token = req.Token
	}

	cart, err := h.recovery.Redeem(c.Request.Context(), token, sessionID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCartToResponse(cart))
}

// identity reads the session and user identifiers set by the identity
// provider. Requests without them are rejected.
func (h *CartHandler) identity(c *gin.Context) (sessionID, userID string, ok bool) {
	sessionID = c.GetHeader(SessionIDHeader)
	userID = c.GetHeader(UserIDHeader)
	if sessionID == "" || userID == "" {
		httputil.HandleBadRequestGin(
			c,
			fmt.Errorf("missing %s or %s header", SessionIDHeader, UserIDHeader),
			h.logger,
		)
		return "", "", false
	}
	return sessionID, userID, true
}

func parseOutletID(c *gin.Context) (uuid.UUID, error) {
	outletID, err := uuid.Parse(c.Param("outletID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid outlet id: must be a UUID")
	}
	return outletID, nil
}

// RegisterCartRoutes wires the cart endpoints into the router group.
func RegisterCartRoutes(group *gin.RouterGroup, handler *CartHandler) {
	group.GET("/cart", handler.GetHandler)
	group.POST("/cart/items", handler.AddItemHandler)
	group.PUT("/cart/items/:outletID", handler.UpdateQuantityHandler)
	group.DELETE("/cart/items/:outletID", handler.RemoveItemHandler)
	group.POST("/cart/recovery", handler.IssueRecoveryHandler)
	group.POST("/cart/recovery/redeem", handler.RedeemRecoveryHandler)
}
