package cart

import "github.com/shopspring/decimal"

// ShippingPolicy maps a cart subtotal to its shipping charge.
type ShippingPolicy func(subtotal decimal.Decimal) decimal.Decimal

// FlatShipping charges fee for any cart with a positive subtotal.
func FlatShipping(fee decimal.Decimal) ShippingPolicy {
	return func(subtotal decimal.Decimal) decimal.Decimal {
		if !subtotal.IsPositive() {
			return decimal.Zero
		}
		return fee
	}
}

type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Totals prices the cart. It has no side effects; a nil policy ships free.
func Totals(c *Cart, policy ShippingPolicy) Summary {
	subtotal := decimal.Zero
	if c != nil {
		for _, l := range c.Lines {
			subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
	}

	shipping := decimal.Zero
	if policy != nil {
		shipping = policy(subtotal)
	}

	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}
