package order

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrStatusRegression  = errors.New("order status cannot be set back to pending")
	ErrNoItems           = errors.New("order has no items")
	ErrFailedCreateOrder = errors.New("failed to create order")
	ErrFailedCreateItems = errors.New("failed to create order items")
	ErrFailedGetOrders   = errors.New("failed to get orders")
)
