package httpapi

import (
	"net/http"
	"strconv"

	"buybuzz-be/internal/product"
)

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := product.ListOptions{
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}

	products, err := h.Products.List(r.Context(), opts)
	if err != nil {
		internalError(w, r, "failed to load products", err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Categories.List(r.Context())
	if err != nil {
		internalError(w, r, "failed to load categories", err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}
