package dto

import (
	"time"

	cartDomain "github.com/mediaplace/payments/internal/cart/domain"
)

// CartItemResponse represents one line item in API responses.
type CartItemResponse struct {
	MediaOutletID  string `json:"media_outlet_id"`
	NicheID        string `json:"niche_id"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Currency       string `json:"currency"`
	Quantity       int    `json:"quantity"`
}

// CartResponse represents the cart in API responses.
type CartResponse struct {
	SessionID  string             `json:"session_id"`
	UserID     string             `json:"user_id"`
	Items      []CartItemResponse `json:"items"`
	TotalCents int64              `json:"total_cents"`
	ReadOnly   bool               `json:"read_only"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// MapCartToResponse converts a domain cart to a response.
func MapCartToResponse(cart *cartDomain.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemResponse{
			MediaOutletID:  item.MediaOutletID.String(),
			NicheID:        item.NicheID.String(),
			UnitPriceCents: item.UnitPriceCents,
			Currency:       item.Currency,
			Quantity:       item.Quantity,
		})
	}

	return CartResponse{
		SessionID:  cart.SessionID,
		UserID:     cart.UserID,
		Items:      items,
		TotalCents: cart.TotalCents(),
		ReadOnly:   cart.ReadOnly,
		UpdatedAt:  cart.UpdatedAt,
	}
}

// RecoveryTokenResponse carries a freshly issued recovery token.
type RecoveryTokenResponse struct {
	Token string `json:"token"`
}
