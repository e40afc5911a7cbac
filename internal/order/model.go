package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Order struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	Status             Status          `json:"status"`
	PaymentMethod      string          `json:"paymentMethod"`
	PaymentStatus      string          `json:"paymentStatus"`
	ShippingAddress    string          `json:"shippingAddress"`
	ExternalOrderRef   string          `json:"externalOrderRef"`
	ExternalPaymentRef string          `json:"externalPaymentRef"`
	TrackingNumber     *string         `json:"trackingNumber,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	Items              []Item          `json:"items"`
}

// Item is a line of an order. ProductName and ProductPrice are snapshots
// taken at checkout.
type Item struct {
	OrderID      string          `json:"orderId"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	Quantity     int             `json:"quantity"`
}
