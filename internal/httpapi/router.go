package httpapi

import (
	"context"
	"net/http"

	"buybuzz-be/internal/cart"
	"buybuzz-be/internal/category"
	"buybuzz-be/internal/chat"
	"buybuzz-be/internal/checkout"
	"buybuzz-be/internal/logger"
	"buybuzz-be/internal/metrics"
	"buybuzz-be/internal/middleware"
	"buybuzz-be/internal/order"
	"buybuzz-be/internal/product"
	"buybuzz-be/internal/user"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// CartService is the cart surface the handlers use; *cart.Engine implements it.
type CartService interface {
	Load(ctx context.Context, session string) (*cart.Cart, error)
	AddOrIncrement(ctx context.Context, session, productID string, snapshot cart.ProductSnapshot) (*cart.Cart, error)
	SetQuantityDelta(ctx context.Context, session, productID string, delta int) (*cart.Cart, error)
	Remove(ctx context.Context, session, productID string) (*cart.Cart, error)
	Clear(ctx context.Context, session string) error
	Merge(ctx context.Context, from, to string) error
}

type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Attempt, error)
}

type CheckoutStats interface {
	Stats() metrics.CheckoutSnapshot
}

type ChatService interface {
	Reply(ctx context.Context, req chat.Request) (string, error)
}

type Deps struct {
	Products   product.Service
	Categories category.Service
	Carts      CartService
	Checkout   CheckoutService
	Orders     order.Service
	Users      user.Service
	Chat       ChatService
	Stats      CheckoutStats

	Shipping   cart.ShippingPolicy
	JWTSecret  string
	CORSOrigin string
	Limiter    *middleware.RateLimiter
}

type handler struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	h := &handler{Deps: d}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.CORS(d.CORSOrigin))
	r.Use(middleware.Auth(d.JWTSecret))
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware)
	}

	r.Get("/health", h.health)
	r.Get("/products", h.listProducts)
	r.Get("/categories", h.listCategories)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addCartItem)
		r.Patch("/items/{productID}", h.updateCartItem)
		r.Delete("/items/{productID}", h.removeCartItem)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Post("/checkout", h.checkout)
		r.Get("/orders", h.listOrders)
		r.Get("/profile", h.getProfile)
		r.Post("/chat", h.chat)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(d.Users))

		r.Get("/orders", h.listRecentOrders)
		r.Patch("/orders/{orderID}/status", h.updateOrderStatus)
		if d.Stats != nil {
			r.Get("/metrics", h.checkoutStats)
		}
	})

	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
