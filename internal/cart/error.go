package cart

import "errors"

var (
	// -- Validation & Input --
	ErrSessionRequired = errors.New("cart session is required")
	ErrInvalidProduct  = errors.New("invalid cart product")

	// -- Catalog --
	ErrPriceLookup        = errors.New("failed to look up product prices")
	ErrProductUnavailable = errors.New("product is no longer available")

	// -- Store Failures --
	ErrStoreRead       = errors.New("failed to read cart")
	ErrStoreWrite      = errors.New("failed to write cart")
	ErrVersionConflict = errors.New("cart was modified concurrently")
)
