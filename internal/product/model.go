package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      *string         `json:"imageUrl,omitempty"`
	Category      *string         `json:"category,omitempty"`
	StockQuantity int             `json:"stockQuantity"`
	Rating        float64         `json:"rating"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type ListOptions struct {
	Search string
	// Category matches case-insensitively; empty means any.
	Category string
	Limit    int
}
