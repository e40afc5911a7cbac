package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"buybuzz-be/internal/cart"
	"buybuzz-be/internal/events"
	"buybuzz-be/internal/order"
	"buybuzz-be/internal/payment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = "user-1"

// catalog is a price table tests can change between cart edits and checkout.
type catalog struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
}

func newCatalog() *catalog {
	return &catalog{prices: map[string]decimal.Decimal{
		"p1": decimal.NewFromInt(100),
		"p2": decimal.NewFromInt(50),
		"p3": decimal.NewFromInt(1),
	}}
}

func (c *catalog) GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		if p, ok := c.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *catalog) set(id string, price decimal.Decimal) {
	c.mu.Lock()
	c.prices[id] = price
	c.mu.Unlock()
}

func (c *catalog) delist(id string) {
	c.mu.Lock()
	delete(c.prices, id)
	c.mu.Unlock()
}

func (c *catalog) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// memOrders is an order.Writer without transactions, so checkout falls back
// to compensation.
type memOrders struct {
	mu        sync.Mutex
	orders    map[string]order.Order
	items     map[string][]order.Item
	seq       int
	itemsErr  error
	deleteErr error
	writes    int
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders: map[string]order.Order{},
		items:  map[string][]order.Item{},
	}
}

func (m *memOrders) CreateOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.seq++
	o.ID = fmt.Sprintf("o%d", m.seq)
	o.CreatedAt = time.Now()
	m.orders[o.ID] = *o
	return nil
}

func (m *memOrders) CreateItems(ctx context.Context, orderID string, items []order.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.itemsErr != nil {
		return m.itemsErr
	}
	m.items[orderID] = append([]order.Item(nil), items...)
	return nil
}

func (m *memOrders) DeleteOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.orders, orderID)
	delete(m.items, orderID)
	return nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// gatedGateway blocks Charge until release is closed or ctx ends.
type gatedGateway struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedGateway() *gatedGateway {
	return &gatedGateway{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.Result, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return payment.NewMockGateway().Charge(ctx, req)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderPlaced
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, ev events.OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	store   *cart.MemoryStore
	catalog *catalog
	engine  *cart.Engine
}

// newFixture holds two p1 and one p2 in the session cart.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := cart.NewMemoryStore()
	prices := newCatalog()
	f := &fixture{store: store, catalog: prices, engine: cart.NewEngine(store, prices)}

	ctx := context.Background()
	for _, id := range []string{"p1", "p1", "p2"} {
		_, err := f.engine.AddOrIncrement(ctx, session, id, cart.ProductSnapshot{
			Name:  "Product " + id,
			Price: decimal.NewFromInt(1),
		})
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) stored(t *testing.T) *cart.Cart {
	t.Helper()
	c, err := f.store.Load(context.Background(), session)
	require.NoError(t, err)
	return c
}

func opts() Options {
	return Options{ShippingFee: decimal.NewFromInt(40), Timeout: time.Second}
}

func request() Request {
	return Request{Session: session, UserID: "user-1", ShippingAddress: "12 Market Rd"}
}

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t)
	orders := newMemOrders()
	pub := &recordingPublisher{}
	o := NewOrchestrator(f.engine, orders, payment.NewMockGateway(), pub, opts())

	attempt, err := o.Checkout(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, attempt.State)
	assert.True(t, attempt.Done())
	assert.Equal(t, "250", attempt.Summary.Subtotal.String())
	assert.Equal(t, "40", attempt.Summary.Shipping.String())
	assert.Equal(t, "290", attempt.Summary.Total.String())

	// Cart slot is gone and exactly one order with one item per line exists.
	assert.Nil(t, f.stored(t))
	require.Equal(t, 1, orders.count())

	placed := attempt.Order
	require.NotNil(t, placed)
	assert.Equal(t, order.StatusPending, placed.Status)
	assert.Equal(t, payment.StatusPaid, placed.PaymentStatus)
	assert.Equal(t, payment.MethodMock, placed.PaymentMethod)
	assert.Equal(t, "12 Market Rd", placed.ShippingAddress)
	assert.True(t, placed.TotalAmount.Equal(decimal.NewFromInt(290)))

	items := orders.items[placed.ID]
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].ProductPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, placed.ID, items[1].OrderID)
	assert.True(t, items[1].ProductPrice.Equal(decimal.NewFromInt(50)))

	require.Len(t, pub.events, 1)
	assert.Equal(t, placed.ID, pub.events[0].OrderID)
	assert.Len(t, pub.events[0].Items, 2)

	stats := o.Stats()
	assert.Equal(t, uint64(1), stats.Attempts)
	assert.Equal(t, uint64(1), stats.Committed)
	assert.Zero(t, stats.Failed)
}

func TestCheckout_ChargesCatalogPrices(t *testing.T) {
	t.Run("Stored price differs from catalog", func(t *testing.T) {
		store := cart.NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), session, &cart.Cart{Lines: []cart.Line{
			{ProductID: "p1", Name: "Product p1", Price: decimal.RequireFromString("0.01"), Quantity: 2},
			{ProductID: "p2", Name: "Product p2", Price: decimal.RequireFromString("0.01"), Quantity: 1},
		}}))

		orders := newMemOrders()
		o := NewOrchestrator(cart.NewEngine(store, newCatalog()), orders, payment.NewMockGateway(), nil, opts())

		attempt, err := o.Checkout(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, "250", attempt.Summary.Subtotal.String())
		assert.Equal(t, "290", attempt.Summary.Total.String())
		assert.True(t, attempt.Order.TotalAmount.Equal(decimal.NewFromInt(290)))

		items := orders.items[attempt.Order.ID]
		require.Len(t, items, 2)
		assert.True(t, items[0].ProductPrice.Equal(decimal.NewFromInt(100)))
		assert.True(t, items[1].ProductPrice.Equal(decimal.NewFromInt(50)))
	})

	t.Run("Price changed after add", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.set("p1", decimal.RequireFromString("120.50"))
		orders := newMemOrders()
		o := NewOrchestrator(f.engine, orders, payment.NewMockGateway(), nil, opts())

		attempt, err := o.Checkout(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, "291", attempt.Summary.Subtotal.String())
		assert.Equal(t, "331", attempt.Summary.Total.String())
		assert.True(t, orders.items[attempt.Order.ID][0].ProductPrice.Equal(decimal.RequireFromString("120.50")))
	})
}

func TestCheckout_CatalogRefusals(t *testing.T) {
	t.Run("Lookup failure places nothing", func(t *testing.T) {
		f := newFixture(t)
		before := f.stored(t)
		f.catalog.fail(errors.New("catalog offline"))
		orders := newMemOrders()
		o := NewOrchestrator(f.engine, orders, payment.NewMockGateway(), nil, opts())

		attempt, err := o.Checkout(context.Background(), request())
		assert.ErrorIs(t, err, ErrCartUnavailable)
		assert.ErrorIs(t, err, cart.ErrPriceLookup)
		assert.Equal(t, StateFailed, attempt.State)
		assert.Zero(t, orders.writes)
		assert.Equal(t, before.Lines, f.stored(t).Lines)
		assert.Equal(t, uint64(1), o.Stats().Failed)
	})

	t.Run("Delisted product is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.delist("p2")
		orders := newMemOrders()
		o := NewOrchestrator(f.engine, orders, payment.NewMockGateway(), nil, opts())

		_, err := o.Checkout(context.Background(), request())
		assert.ErrorIs(t, err, cart.ErrProductUnavailable)
		assert.ErrorContains(t, err, "p2")
		assert.True(t, IsValidation(err))
		assert.Zero(t, orders.writes)
		assert.NotNil(t, f.stored(t))
		assert.Equal(t, uint64(1), o.Stats().Rejected)
	})
}

func TestCheckout_ItemFailureKeepsCart(t *testing.T) {
	t.Run("Compensated", func(t *testing.T) {
		f := newFixture(t)
		before := f.stored(t)
		orders := newMemOrders()
		orders.itemsErr = errors.New("insert failed")
		pub := &recordingPublisher{}
		o := NewOrchestrator(f.engine, orders, payment.NewMockGateway(), pub, opts())

		attempt, err := o.Checkout(context.Background(), request())
		assert.ErrorIs(t, err, ErrItemsCreate)
		assert.Equal(t, StateFailed, attempt.State)
		assert.Nil(t, attempt.Order)

		assert.Equal(t, before.Lines, f.stored(t).Lines)
		assert.Equal(t, 0, orders.count())
		assert.Empty(t, pub.events)
	})

	t.Run("CompensationFails", func(t *testing.T) {
		f := newFixture(t)
		orders := newMemOrders()
		orders.itemsErr = errors.New("insert failed")
		orders.deleteErr = errors.New("delete failed")
		o := NewOrchestrator(f.engine, orders, payment.NewMockGateway(), nil, opts())

		_, err := o.Checkout(context.Background(), request())
		assert.ErrorIs(t, err, ErrItemsCreate)
		assert.ErrorContains(t, err, "delete failed")
		assert.NotNil(t, f.stored(t))
		assert.Equal(t, uint64(1), o.Stats().Failed)
	})
}

func TestCheckout_Transactional(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("o-1", time.Now()))
		mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		f := newFixture(t)
		o := NewOrchestrator(f.engine, order.NewRepository(db), payment.NewMockGateway(), nil, opts())

		attempt, err := o.Checkout(context.Background(), request())
		require.NoError(t, err)
		assert.Equal(t, "o-1", attempt.Order.ID)
		assert.Nil(t, f.stored(t))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackKeepsCart", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("o-1", time.Now()))
		mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("fk violation"))
		mock.ExpectRollback()

		f := newFixture(t)
		before := f.stored(t)
		o := NewOrchestrator(f.engine, order.NewRepository(db), payment.NewMockGateway(), nil, opts())

		attempt, err := o.Checkout(context.Background(), request())
		assert.ErrorIs(t, err, ErrItemsCreate)
		assert.Equal(t, StateFailed, attempt.State)
		assert.Equal(t, before.Lines, f.stored(t).Lines)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCheckout_Validation(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"BlankAddress", Request{Session: session, UserID: "user-1", ShippingAddress: "   "}, ErrBlankAddress},
		{"NoUser", Request{Session: session, ShippingAddress: "addr"}, ErrUserRequired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			orders := newMemOrders()
			o := NewOrchestrator(f.engine, orders, payment.NewMockGateway(), nil, opts())

			attempt, err := o.Checkout(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, IsValidation(err))
			assert.Equal(t, StateIdle, attempt.State)
			assert.Zero(t, orders.writes)
			assert.NotNil(t, f.stored(t))
		})
	}

	t.Run("EmptyCart", func(t *testing.T) {
		store := cart.NewMemoryStore()
		orders := newMemOrders()
		o := NewOrchestrator(cart.NewEngine(store, newCatalog()), orders, payment.NewMockGateway(), nil, opts())

		attempt, err := o.Checkout(context.Background(), request())
		assert.ErrorIs(t, err, ErrEmptyCart)
		assert.Equal(t, StateFailed, attempt.State)
		assert.Zero(t, orders.writes)
	})
}

func TestCheckout_ConcurrentSameSession(t *testing.T) {
	f := newFixture(t)
	orders := newMemOrders()
	gate := newGatedGateway()
	o := NewOrchestrator(f.engine, orders, gate, nil, opts())

	ctx := context.Background()
	firstErr := make(chan error, 1)
	go func() {
		_, err := o.Checkout(ctx, request())
		firstErr <- err
	}()

	<-gate.entered

	_, err := o.Checkout(ctx, request())
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	close(gate.release)
	require.NoError(t, <-firstErr)

	// A later attempt sees the cleared cart.
	_, err = o.Checkout(ctx, request())
	assert.ErrorIs(t, err, ErrEmptyCart)

	assert.Equal(t, 1, orders.count())

	stats := o.Stats()
	assert.Equal(t, uint64(3), stats.Attempts)
	assert.Equal(t, uint64(1), stats.Committed)
	assert.Equal(t, uint64(1), stats.Busy)
	assert.Equal(t, uint64(1), stats.Rejected)
}

func TestCheckout_CartEditsWaitForCheckout(t *testing.T) {
	f := newFixture(t)
	gate := newGatedGateway()
	o := NewOrchestrator(f.engine, newMemOrders(), gate, nil, opts())

	done := make(chan error, 1)
	go func() {
		_, err := o.Checkout(context.Background(), request())
		done <- err
	}()
	<-gate.entered

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := f.engine.AddOrIncrement(ctx, session, "p3", cart.ProductSnapshot{Name: "late", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate.release)
	require.NoError(t, <-done)
	assert.Nil(t, f.stored(t))
}

func TestCheckout_Timeout(t *testing.T) {
	f := newFixture(t)
	before := f.stored(t)
	orders := newMemOrders()
	o := NewOrchestrator(f.engine, orders, newGatedGateway(), nil, Options{
		ShippingFee: decimal.NewFromInt(40),
		Timeout:     20 * time.Millisecond,
	})

	attempt, err := o.Checkout(context.Background(), request())
	assert.ErrorIs(t, err, ErrCheckoutTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, attempt.State)
	assert.Zero(t, orders.writes)
	assert.Equal(t, before.Lines, f.stored(t).Lines)

	// The session is free again after a timed out attempt.
	o.timeout = time.Second
	gate := newGatedGateway()
	close(gate.release)
	o.payments = gate
	_, err = o.Checkout(context.Background(), request())
	assert.NoError(t, err)
}

func TestCheckout_PublishFailureIgnored(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	o := NewOrchestrator(f.engine, newMemOrders(), payment.NewMockGateway(), pub, opts())

	attempt, err := o.Checkout(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, attempt.State)
	assert.Len(t, pub.events, 1)
}

func TestAttempt_Transitions(t *testing.T) {
	a := &Attempt{State: StateIdle}

	assert.False(t, a.transition(StateCommitted))
	assert.True(t, a.transition(StateSubmitting))
	assert.False(t, a.transition(StateSubmitting))
	assert.True(t, a.transition(StateCommitted))
	assert.False(t, a.transition(StateFailed))
	assert.Equal(t, StateCommitted, a.State)
}
