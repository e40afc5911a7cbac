package httpapi

import (
	"errors"
	"net/http"

	"buybuzz-be/internal/order"
	"buybuzz-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

type updateStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber"`
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	orders, err := h.Orders.ListForUser(r.Context(), userID)
	if err != nil {
		internalError(w, r, "failed to load orders", err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *handler) listRecentOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListRecent(r.Context())
	if err != nil {
		internalError(w, r, "failed to load orders", err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	o, err := h.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status, req.TrackingNumber)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, o)
	case errors.Is(err, order.ErrInvalidStatus), errors.Is(err, order.ErrStatusRegression):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		internalError(w, r, "failed to update order status", err)
	}
}
