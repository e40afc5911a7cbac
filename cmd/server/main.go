package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buybuzz-be/internal/cart"
	"buybuzz-be/internal/category"
	"buybuzz-be/internal/chat"
	"buybuzz-be/internal/checkout"
	"buybuzz-be/internal/config"
	"buybuzz-be/internal/db"
	"buybuzz-be/internal/events"
	"buybuzz-be/internal/httpapi"
	"buybuzz-be/internal/logger"
	"buybuzz-be/internal/middleware"
	"buybuzz-be/internal/order"
	"buybuzz-be/internal/payment"
	"buybuzz-be/internal/product"
	"buybuzz-be/internal/user"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cartTTL         = 30 * 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := newServer(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, srv)
}

// newServer wires every service onto database and returns the HTTP handler
// together with a func releasing the broker and cache connections.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, func(), error) {
	log := logger.L()

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo)
	categorySvc := category.NewService(category.NewRepository(database))

	userSvc := user.NewService(user.NewRepository(database))

	orderRepo := order.NewRepository(database)
	orderSvc := order.NewService(orderRepo)

	store, closeStore, err := newCartStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	engine := cart.NewEngine(store, productRepo)

	publisher, closePublisher := newPublisher(cfg)

	orchestrator := checkout.NewOrchestrator(
		engine,
		orderRepo,
		payment.NewMockGateway(),
		publisher,
		checkout.Options{
			ShippingFee: cfg.ShippingFee,
			Timeout:     cfg.CheckoutTimeout,
		},
	)

	chatSvc := chat.NewService(productSvc, chat.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL))

	limiter := middleware.NewRateLimiter()
	go limiter.Run(ctx)

	router := httpapi.NewRouter(httpapi.Deps{
		Products:   productSvc,
		Categories: categorySvc,
		Carts:      engine,
		Checkout:   orchestrator,
		Orders:     orderSvc,
		Users:      userSvc,
		Chat:       chatSvc,
		Stats:      orchestrator,
		Shipping:   cart.FlatShipping(cfg.ShippingFee),
		JWTSecret:  cfg.JWTSecret,
		CORSOrigin: cfg.CORSOrigin,
		Limiter:    limiter,
	})

	log.Info("server wired",
		zap.String("cart_store", cfg.CartStore),
		zap.String("shipping_fee", cfg.ShippingFee.String()),
		zap.Duration("checkout_timeout", cfg.CheckoutTimeout),
	)

	cleanup := func() {
		closePublisher()
		closeStore()
	}
	return router, cleanup, nil
}

func newCartStore(ctx context.Context, cfg *config.Config) (cart.Store, func(), error) {
	noop := func() {}

	switch cfg.CartStore {
	case "", "memory":
		return cart.NewMemoryStore(), noop, nil

	case "file":
		store, err := cart.NewFileStore(cfg.CartStoreDir)
		if err != nil {
			return nil, nil, fmt.Errorf("file cart store: %w", err)
		}
		return store, noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis cart store: %w", err)
		}
		return cart.NewRedisStore(client, cartTTL), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown CART_STORE %q", cfg.CartStore)
	}
}

// newPublisher connects to RabbitMQ when configured. Order events are best
// effort, so a broker that cannot be reached degrades to the no-op publisher.
func newPublisher(cfg *config.Config) (events.Publisher, func()) {
	log := logger.L()

	if cfg.RabbitMQURL == "" {
		log.Info("RABBITMQ_URL not set, order events disabled")
		return events.NoopPublisher{}, func() {}
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Warn("rabbitmq unreachable, order events disabled", zap.Error(err))
		return events.NoopPublisher{}, func() {}
	}

	pub, err := events.NewRabbitPublisher(conn, cfg.OrderEventsQueue)
	if err != nil {
		log.Warn("rabbitmq publisher setup failed, order events disabled", zap.Error(err))
		_ = conn.Close()
		return events.NoopPublisher{}, func() {}
	}

	return pub, func() {
		_ = pub.Close()
		_ = conn.Close()
	}
}

// serve runs srv until it fails or ctx is cancelled, then drains in-flight
// requests.
func serve(ctx context.Context, srv *http.Server) error {
	log := logger.L()
	errCh := make(chan error, 1)

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
