package payment

import "github.com/shopspring/decimal"

const (
	MethodMock = "mock"
	StatusPaid = "paid"
)

type ChargeRequest struct {
	UserID string
	Amount decimal.Decimal
}

// Result carries the references recorded on the order header.
type Result struct {
	Status     string
	Method     string
	OrderRef   string
	PaymentRef string
}
