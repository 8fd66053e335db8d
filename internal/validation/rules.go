// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"

	validation "github.com/jellydator/validation"

	apperrors "github.com/mediaplace/payments/internal/errors"
)

var (
	// currencyRegex matches a three-letter uppercase ISO 4217 currency code.
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

	// uuidRegex matches the canonical textual UUID form.
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// CurrencyCode validates a three-letter ISO 4217 currency code.
var CurrencyCode = validation.NewStringRule(
	func(s string) bool { return currencyRegex.MatchString(s) },
	"must be a three-letter ISO 4217 currency code",
)

// UUIDString validates canonical UUID text.
var UUIDString = validation.NewStringRule(
	func(s string) bool { return uuidRegex.MatchString(s) },
	"must be a valid UUID",
)

// PositiveQuantity validates a cart line-item quantity.
type PositiveQuantity struct {
	Max int
}

// Validate checks the quantity is a positive integer within bounds.
func (p PositiveQuantity) Validate(value interface{}) error {
	q, ok := value.(int)
	if !ok {
		return validation.NewError("validation_quantity_type", "quantity must be an integer")
	}
	if q < 1 {
		return validation.NewError("validation_quantity_min", "quantity must be at least 1")
	}
	if p.Max > 0 && q > p.Max {
		return validation.NewError("validation_quantity_max", "quantity exceeds the allowed maximum")
	}
	return nil
}
