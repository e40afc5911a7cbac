package checkout

import (
	"errors"

	"buybuzz-be/internal/cart"
)

var (
	// -- Validation --
	ErrEmptyCart    = errors.New("cart is empty")
	ErrBlankAddress = errors.New("shipping address is required")
	ErrUserRequired = errors.New("user is required")

	// -- Concurrency & Timeouts --
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrCheckoutTimeout    = errors.New("checkout timed out, please retry")

	// -- Step Failures --
	ErrCartUnavailable = errors.New("cart unavailable")
	ErrPaymentFailed   = errors.New("payment failed")
	ErrOrderCreate     = errors.New("failed to create order")
	ErrItemsCreate     = errors.New("failed to create order items")
)

// IsValidation reports whether err was raised before any write was attempted.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrBlankAddress) ||
		errors.Is(err, ErrUserRequired) ||
		errors.Is(err, cart.ErrProductUnavailable)
}
