// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"
)

// AddItemRequest contains the parameters for adding a line item to the cart.
type AddItemRequest struct {
	MediaOutletID  string `json:"media_outlet_id" binding:"required"`
	NicheID        string `json:"niche_id" binding:"required"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"required"`
	Currency       string `json:"currency" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required"`
}

// Validate checks if the add item request is valid.
func (r *AddItemRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MediaOutletID, validation.Required, is.UUID),
		validation.Field(&r.NicheID, validation.Required, is.UUID),
		validation.Field(&r.UnitPriceCents, validation.Required, validation.Min(1)),
		validation.Field(&r.Currency, validation.Required, validation.Length(3, 3)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
	)
}

// UpdateQuantityRequest contains the parameters for changing a line item's
// quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// Validate checks if the update quantity request is valid.
func (r *UpdateQuantityRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
	)
}

// RedeemRecoveryRequest contains the recovery token to redeem.
type RedeemRecoveryRequest struct {
	Token string `json:"token" binding:"required"`
}

// Validate checks if the redeem recovery request is valid.
func (r *RedeemRecoveryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required),
	)
}
