package category

// Category is a distinct product category and how many products carry it.
type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"productCount"`
}
