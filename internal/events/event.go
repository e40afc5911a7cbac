package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderPlacedType = "OrderPlaced"

type OrderPlaced struct {
	EventType   string          `json:"eventType"`
	OrderID     string          `json:"orderId"`
	UserID      string          `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PaymentRef  string          `json:"paymentRef"`
	Items       []OrderLine     `json:"items"`
	Timestamp   time.Time       `json:"timestamp"`
}

type OrderLine struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
