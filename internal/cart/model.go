package cart

import (
	"github.com/shopspring/decimal"
)

// Line is one product in the cart. Name, Price and Image are snapshots taken
// when the product was added; Price is refreshed from the catalog on Load.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// ProductSnapshot is the display data supplied when a product is first added.
type ProductSnapshot struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Cart is the serialized value of a session's cart slot.
type Cart struct {
	Lines []Line `json:"lines"`

	// Version is the stored version this value was read at. Zero means the
	// slot was absent.
	Version int64 `json:"version"`

	// Stale is set when the cart could not be read or reconciled and the
	// engine served its best-known copy instead.
	Stale bool `json:"-"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// ProductIDs returns the distinct product ids in line order.
func (c *Cart) ProductIDs() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.Lines))
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// applyPrices overwrites line prices for every product found in prices.
func (c *Cart) applyPrices(prices map[string]decimal.Decimal) {
	for i := range c.Lines {
		if p, ok := prices[c.Lines[i].ProductID]; ok {
			c.Lines[i].Price = p
		}
	}
}

// normalize restores line uniqueness and the quantity floor on a decoded
// cart. Lines without a product id are dropped, duplicate product ids are
// folded into the first line, and quantities below one are raised to one.
func (c *Cart) normalize() {
	out := c.Lines[:0]
	for _, l := range c.Lines {
		l.ProductID = normalizeID(l.ProductID)
		if l.ProductID == "" {
			continue
		}
		l.Quantity = max(1, l.Quantity)

		merged := false
		for i := range out {
			if out[i].ProductID == l.ProductID {
				out[i].Quantity += l.Quantity
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, l)
		}
	}
	c.Lines = out
}

func (c *Cart) clone() *Cart {
	if c == nil {
		return &Cart{Lines: []Line{}}
	}
	out := &Cart{
		Lines:   make([]Line, len(c.Lines)),
		Version: c.Version,
		Stale:   c.Stale,
	}
	copy(out.Lines, c.Lines)
	return out
}
