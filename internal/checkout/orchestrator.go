package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"buybuzz-be/internal/cart"
	"buybuzz-be/internal/events"
	"buybuzz-be/internal/logger"
	"buybuzz-be/internal/metrics"
	"buybuzz-be/internal/order"
	"buybuzz-be/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultTimeout     = 5 * time.Second
	compensateTimeout  = 3 * time.Second
	finalizeTimeout    = 3 * time.Second
	initialOrderStatus = order.StatusPending
)

// CartHolder gives exclusive access to a session's stored cart.
type CartHolder interface {
	Hold(ctx context.Context, session string) (*cart.Hold, error)
}

type Options struct {
	ShippingFee decimal.Decimal
	Timeout     time.Duration
}

type Request struct {
	Session         string
	UserID          string
	ShippingAddress string
}

type Orchestrator struct {
	carts     CartHolder
	orders    order.Writer
	payments  payment.Gateway
	publisher events.Publisher
	shipping  cart.ShippingPolicy
	timeout   time.Duration
	stats     metrics.Checkout

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewOrchestrator(
	carts CartHolder,
	orders order.Writer,
	payments payment.Gateway,
	publisher events.Publisher,
	opts Options,
) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &Orchestrator{
		carts:     carts,
		orders:    orders,
		payments:  payments,
		publisher: publisher,
		shipping:  cart.FlatShipping(opts.ShippingFee),
		timeout:   opts.Timeout,
		inFlight:  make(map[string]struct{}),
	}
}

// Checkout turns the session's stored cart into an order. The cart is
// cleared only after the header and all items are stored. The returned
// attempt is never nil.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (*Attempt, error) {
	attempt := &Attempt{
		ID:      uuid.NewString(),
		Session: req.Session,
		State:   StateIdle,
	}

	o.stats.Attempt()
	timer := metrics.StartTimer()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "checkout"),
		zap.String("method", "Checkout"),
		zap.String("attempt_id", attempt.ID),
		zap.String("user_id", req.UserID),
	)

	address := strings.TrimSpace(req.ShippingAddress)
	switch {
	case strings.TrimSpace(req.UserID) == "":
		o.stats.Rejected()
		return attempt, ErrUserRequired
	case address == "":
		o.stats.Rejected()
		return attempt, ErrBlankAddress
	case req.Session == "":
		o.stats.Rejected()
		return attempt, cart.ErrSessionRequired
	}

	if !o.begin(req.Session) {
		o.stats.Busy()
		log.Warn("checkout rejected, another attempt in flight")
		return attempt, ErrCheckoutInProgress
	}
	defer o.end(req.Session)

	attempt.transition(StateSubmitting)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	placed, err := o.submit(ctx, log, attempt, req.UserID, address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !IsValidation(err) {
			err = fmt.Errorf("%w: %w", ErrCheckoutTimeout, err)
		}
		attempt.transition(StateFailed)
		if IsValidation(err) {
			o.stats.Rejected()
			log.Info("checkout rejected", zap.Error(err))
		} else {
			o.stats.Failed()
			log.Error("checkout failed", zap.Error(err))
		}
		return attempt, err
	}

	attempt.Order = placed
	attempt.transition(StateCommitted)
	o.stats.Committed(timer.Duration())

	log.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.Int("item_count", len(placed.Items)),
		zap.String("total", placed.TotalAmount.StringFixed(2)),
	)

	o.publish(ctx, log, placed)
	return attempt, nil
}

// Stats reports checkout outcomes since start.
func (o *Orchestrator) Stats() metrics.CheckoutSnapshot {
	return o.stats.Snapshot()
}

func (o *Orchestrator) submit(ctx context.Context, log *zap.Logger, attempt *Attempt, userID, address string) (*order.Order, error) {
	hold, err := o.carts.Hold(ctx, attempt.Session)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCartUnavailable, err)
	}
	defer hold.Release()

	c := hold.Cart()
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	attempt.Summary = cart.Totals(c, o.shipping)

	paid, err := o.payments.Charge(ctx, payment.ChargeRequest{
		UserID: userID,
		Amount: attempt.Summary.Total,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	placed := &order.Order{
		UserID:             userID,
		TotalAmount:        attempt.Summary.Total,
		Status:             initialOrderStatus,
		PaymentMethod:      paid.Method,
		PaymentStatus:      paid.Status,
		ShippingAddress:    address,
		ExternalOrderRef:   paid.OrderRef,
		ExternalPaymentRef: paid.PaymentRef,
	}

	items := make([]order.Item, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = order.Item{
			ProductID:    l.ProductID,
			ProductName:  l.Name,
			ProductPrice: l.Price,
			Quantity:     l.Quantity,
		}
	}

	if err := o.commit(ctx, log, placed, items); err != nil {
		return nil, err
	}

	// The order exists from here on, so clearing must not be cut short by
	// the attempt deadline.
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := hold.Clear(clearCtx); err != nil {
		log.Error("order placed but cart could not be cleared",
			zap.String("order_id", placed.ID),
			zap.Error(err),
		)
	}

	return placed, nil
}

// commit writes the header and items as one unit. Stores that support
// transactions get both writes in a single transaction; otherwise a failed
// item batch removes the header again.
func (o *Orchestrator) commit(ctx context.Context, log *zap.Logger, placed *order.Order, items []order.Item) error {
	write := func(w order.Writer) error {
		if err := w.CreateOrder(ctx, placed); err != nil {
			return fmt.Errorf("%w: %w", ErrOrderCreate, err)
		}
		for i := range items {
			items[i].OrderID = placed.ID
		}
		if err := w.CreateItems(ctx, placed.ID, items); err != nil {
			return fmt.Errorf("%w: %w", ErrItemsCreate, err)
		}
		placed.Items = items
		return nil
	}

	if tx, ok := o.orders.(order.Transactor); ok {
		if err := tx.InTx(ctx, write); err != nil {
			placed.ID = ""
			placed.Items = nil
			return err
		}
		return nil
	}

	err := write(o.orders)
	if err == nil {
		return nil
	}
	if placed.ID != "" && errors.Is(err, ErrItemsCreate) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
		defer cancel()

		if derr := o.orders.DeleteOrder(cctx, placed.ID); derr != nil {
			log.Error("compensating order delete failed",
				zap.String("order_id", placed.ID),
				zap.Error(derr),
			)
			return errors.Join(err, derr)
		}
		log.Warn("order header removed after item failure", zap.String("order_id", placed.ID))
		placed.ID = ""
	}
	return err
}

func (o *Orchestrator) publish(ctx context.Context, log *zap.Logger, placed *order.Order) {
	ev := events.OrderPlaced{
		EventType:   events.OrderPlacedType,
		OrderID:     placed.ID,
		UserID:      placed.UserID,
		TotalAmount: placed.TotalAmount,
		PaymentRef:  placed.ExternalPaymentRef,
		Timestamp:   placed.CreatedAt.UTC(),
	}
	for _, it := range placed.Items {
		ev.Items = append(ev.Items, events.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.ProductPrice,
		})
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := o.publisher.PublishOrderPlaced(pctx, ev); err != nil {
		log.Warn("failed to publish order event",
			zap.String("order_id", placed.ID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) begin(session string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, busy := o.inFlight[session]; busy {
		return false
	}
	o.inFlight[session] = struct{}{}
	return true
}

func (o *Orchestrator) end(session string) {
	o.mu.Lock()
	delete(o.inFlight, session)
	o.mu.Unlock()
}
