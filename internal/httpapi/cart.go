package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"buybuzz-be/internal/cart"
	"buybuzz-be/internal/logger"
	"buybuzz-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const deviceHeader = "X-Device-ID"

type cartResponse struct {
	Lines   []cart.Line  `json:"lines"`
	Version int64        `json:"version"`
	Stale   bool         `json:"stale"`
	Summary cart.Summary `json:"summary"`
}

type addItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

type updateItemRequest struct {
	Delta int `json:"delta"`
}

// cartSession keys the cart slot. A signed-in request always uses the
// user's slot; the device slot only serves anonymous browsing. When a
// signed-in request still carries a device id, that device's cart is folded
// into the user's slot first.
func (h *handler) cartSession(r *http.Request) string {
	device := strings.TrimSpace(r.Header.Get(deviceHeader))

	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		if device == "" {
			return ""
		}
		return "device:" + device
	}

	session := "user:" + userID
	if device != "" {
		if err := h.Carts.Merge(r.Context(), "device:"+device, session); err != nil {
			logger.FromCtx(r.Context()).Warn("device cart merge failed",
				zap.String("layer", "http"),
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}
	return session
}

func (h *handler) toCartResponse(c *cart.Cart) cartResponse {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{
		Lines:   lines,
		Version: c.Version,
		Stale:   c.Stale,
		Summary: cart.Totals(c, h.Shipping),
	}
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Load(r.Context(), h.cartSession(r))
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

func (h *handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	c, err := h.Carts.AddOrIncrement(r.Context(), h.cartSession(r), req.ProductID, cart.ProductSnapshot{
		Name:  req.Name,
		Price: req.Price,
		Image: req.Image,
	})
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

func (h *handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody.Error())
		return
	}

	c, err := h.Carts.SetQuantityDelta(r.Context(), h.cartSession(r), chi.URLParam(r, "productID"), req.Delta)
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

func (h *handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.Carts.Remove(r.Context(), h.cartSession(r), chi.URLParam(r, "productID"))
	if err != nil {
		h.cartError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.toCartResponse(c))
}

func (h *handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Carts.Clear(r.Context(), h.cartSession(r)); err != nil {
		h.cartError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) cartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrSessionRequired):
		respondError(w, http.StatusBadRequest, "X-Device-ID header or sign-in required")
	case errors.Is(err, cart.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrPriceLookup):
		respondError(w, http.StatusServiceUnavailable, "catalog unavailable, please retry")
	case errors.Is(err, cart.ErrVersionConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		respondError(w, http.StatusServiceUnavailable, "cart busy, please retry")
	default:
		internalError(w, r, "cart unavailable", err)
	}
}
