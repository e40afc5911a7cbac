package product

import "errors"

var (
	ErrInvalidPrice      = errors.New("product has invalid price")
	ErrFailedGetPrices   = errors.New("failed to get product prices")
	ErrFailedGetProducts = errors.New("failed to get products")
)
