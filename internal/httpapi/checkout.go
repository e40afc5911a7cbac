package httpapi

import (
	"errors"
	"net/http"

	"buybuzz-be/internal/cart"
	"buybuzz-be/internal/checkout"
	"buybuzz-be/internal/order"
	"buybuzz-be/internal/utils"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shippingAddress"`
}

type checkoutResponse struct {
	Order   *order.Order   `json:"order"`
	Summary cart.Summary   `json:"summary"`
	State   checkout.State `json:"state"`
}

func (h *handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	userID, _ := utils.GetUserIDFromContext(r.Context())

	attempt, err := h.Checkout.Checkout(r.Context(), checkout.Request{
		Session:         h.cartSession(r),
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
	})
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, checkoutResponse{
			Order:   attempt.Order,
			Summary: attempt.Summary,
			State:   attempt.State,
		})
	case errors.Is(err, cart.ErrProductUnavailable):
		respondError(w, http.StatusConflict, err.Error())
	case checkout.IsValidation(err), errors.Is(err, cart.ErrSessionRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrCheckoutTimeout), errors.Is(err, cart.ErrPriceLookup):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		internalError(w, r, "failed to place order", err)
	}
}

func (h *handler) checkoutStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Stats.Stats())
}
