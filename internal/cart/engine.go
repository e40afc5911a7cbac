package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"buybuzz-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceLookup returns current prices for the given product ids. Ids that are
// not found are omitted from the result.
type PriceLookup interface {
	GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// Engine keeps a session's cart slot price-accurate and applies cart edits.
// Every operation is a read-modify-write of the store inside a per-session
// critical section; the store stays the single source of truth between calls.
type Engine struct {
	store  Store
	prices PriceLookup
	locks  *keyedLock

	// lastKnown is only served when the store cannot be read.
	mu        sync.Mutex
	lastKnown map[string]*Cart
}

func NewEngine(store Store, prices PriceLookup) *Engine {
	return &Engine{
		store:     store,
		prices:    prices,
		locks:     newKeyedLock(),
		lastKnown: make(map[string]*Cart),
	}
}

// Load reads the session cart and reconciles its prices against the catalog,
// writing the result back. Read failures are logged and the best-known cart
// is returned with Stale set.
func (e *Engine) Load(ctx context.Context, session string) (*Cart, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "cart"),
		zap.String("method", "Load"),
	)

	unlock, err := e.locks.Lock(ctx, session)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := e.store.Load(ctx, session)
	if err != nil {
		log.Warn("cart store read failed, serving last known cart", zap.Error(err))
		return e.fallback(session), nil
	}
	if c == nil {
		empty := &Cart{Lines: []Line{}}
		e.remember(session, empty)
		return empty, nil
	}

	if c.IsEmpty() {
		e.remember(session, c)
		return c, nil
	}

	missing, err := e.reconcile(ctx, c)
	if err != nil {
		log.Warn("price lookup failed, keeping snapshot prices",
			zap.Int("product_count", len(c.ProductIDs())),
			zap.Error(err),
		)
		c.Stale = true
		e.remember(session, c)
		return c, nil
	}

	if err := e.store.Save(ctx, session, c); err != nil {
		log.Warn("write-through of reconciled cart failed", zap.Error(err))
	}

	log.Debug("cart reconciled",
		zap.Int("line_count", len(c.Lines)),
		zap.Int("unpriced", len(missing)),
		zap.Int64("version", c.Version),
	)

	e.remember(session, c)
	return c, nil
}

// AddOrIncrement adds one unit of productID. A product not in the cart yet
// must exist in the catalog; its line takes name and image from snapshot and
// the catalog price.
func (e *Engine) AddOrIncrement(ctx context.Context, session, productID string, snapshot ProductSnapshot) (*Cart, error) {
	productID = normalizeID(productID)
	if productID == "" || snapshot.Price.IsNegative() {
		return nil, ErrInvalidProduct
	}

	return e.mutate(ctx, session, "AddOrIncrement", func(c *Cart) (bool, error) {
		if i := c.indexOf(productID); i >= 0 {
			c.Lines[i].Quantity++
			return true, nil
		}

		prices, err := e.prices.GetPrices(ctx, []string{productID})
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrPriceLookup, err)
		}
		price, ok := prices[productID]
		if !ok {
			return false, fmt.Errorf("%w: %s not found", ErrInvalidProduct, productID)
		}

		c.Lines = append(c.Lines, Line{
			ProductID: productID,
			Name:      snapshot.Name,
			Price:     price,
			Image:     snapshot.Image,
			Quantity:  1,
		})
		return true, nil
	})
}

// SetQuantityDelta moves a line's quantity by delta, never below one.
// Unknown products are a no-op.
func (e *Engine) SetQuantityDelta(ctx context.Context, session, productID string, delta int) (*Cart, error) {
	productID = normalizeID(productID)
	return e.mutate(ctx, session, "SetQuantityDelta", func(c *Cart) (bool, error) {
		i := c.indexOf(productID)
		if i < 0 {
			return false, nil
		}
		next := max(1, c.Lines[i].Quantity+delta)
		if next == c.Lines[i].Quantity {
			return false, nil
		}
		c.Lines[i].Quantity = next
		return true, nil
	})
}

// Remove deletes the line for productID if present.
func (e *Engine) Remove(ctx context.Context, session, productID string) (*Cart, error) {
	productID = normalizeID(productID)
	return e.mutate(ctx, session, "Remove", func(c *Cart) (bool, error) {
		i := c.indexOf(productID)
		if i < 0 {
			return false, nil
		}
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return true, nil
	})
}

// Merge moves every line of the from slot into the to slot, adding
// quantities for products present in both, and empties from. An absent or
// empty from slot leaves to untouched.
func (e *Engine) Merge(ctx context.Context, from, to string) error {
	if from == "" || to == "" {
		return ErrSessionRequired
	}
	if from == to {
		return nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "cart"),
		zap.String("method", "Merge"),
	)

	// Both slots are locked in key order so concurrent merges cannot deadlock.
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	unlockFirst, err := e.locks.Lock(ctx, first)
	if err != nil {
		return err
	}
	defer unlockFirst()
	unlockSecond, err := e.locks.Lock(ctx, second)
	if err != nil {
		return err
	}
	defer unlockSecond()

	src, err := e.load(ctx, from)
	if err != nil {
		return err
	}
	if src.IsEmpty() {
		return nil
	}

	dst, err := e.load(ctx, to)
	if err != nil {
		return err
	}
	for _, l := range src.Lines {
		if i := dst.indexOf(l.ProductID); i >= 0 {
			dst.Lines[i].Quantity += l.Quantity
			continue
		}
		dst.Lines = append(dst.Lines, l)
	}

	if err := e.store.Save(ctx, to, dst); err != nil {
		log.Warn("cart store write failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	e.remember(to, dst)

	if err := e.clear(ctx, from); err != nil {
		log.Warn("merged cart slot could not be emptied", zap.Error(err))
		return err
	}

	log.Debug("cart slots merged", zap.Int("line_count", len(dst.Lines)))
	return nil
}

// Clear empties the session's slot unconditionally.
func (e *Engine) Clear(ctx context.Context, session string) error {
	if session == "" {
		return ErrSessionRequired
	}

	unlock, err := e.locks.Lock(ctx, session)
	if err != nil {
		return err
	}
	defer unlock()

	return e.clear(ctx, session)
}

// Hold enters the session's critical section and keeps it until Release.
// Cart edits for the session wait while a hold is active. The held cart is
// reconciled against the catalog first; a hold is refused when prices cannot
// be looked up or a product is no longer listed.
func (e *Engine) Hold(ctx context.Context, session string) (*Hold, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "cart"),
		zap.String("method", "Hold"),
	)

	unlock, err := e.locks.Lock(ctx, session)
	if err != nil {
		return nil, err
	}

	c, err := e.load(ctx, session)
	if err != nil {
		unlock()
		return nil, err
	}

	if !c.IsEmpty() {
		missing, err := e.reconcile(ctx, c)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("%w: %w", ErrPriceLookup, err)
		}
		if len(missing) > 0 {
			unlock()
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, strings.Join(missing, ", "))
		}
		if err := e.store.Save(ctx, session, c); err != nil {
			log.Warn("write-through of reconciled cart failed", zap.Error(err))
		}
		e.remember(session, c)
	}

	return &Hold{engine: e, session: session, cart: c, unlock: unlock}, nil
}

// Hold is an exclusive view of one session's stored cart.
type Hold struct {
	engine  *Engine
	session string
	cart    *Cart
	unlock  func()
}

// Cart returns a copy of the reconciled cart.
func (h *Hold) Cart() *Cart {
	return h.cart.clone()
}

// Clear empties the held session's slot.
func (h *Hold) Clear(ctx context.Context) error {
	return h.engine.clear(ctx, h.session)
}

// Release leaves the critical section. It is safe to call more than once.
func (h *Hold) Release() {
	h.unlock()
}

func (e *Engine) mutate(ctx context.Context, session, method string, apply func(c *Cart) (bool, error)) (*Cart, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "cart"),
		zap.String("method", method),
	)

	unlock, err := e.locks.Lock(ctx, session)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := e.load(ctx, session)
	if err != nil {
		log.Warn("cart store read failed", zap.Error(err))
		return nil, err
	}

	changed, err := apply(c)
	if err != nil {
		log.Info("cart edit refused", zap.Error(err))
		return nil, err
	}
	if !changed {
		return c, nil
	}

	if err := e.store.Save(ctx, session, c); err != nil {
		log.Warn("cart store write failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	e.remember(session, c)
	return c, nil
}

// reconcile overwrites line prices with catalog prices and reports the
// products the catalog no longer lists, in line order.
func (e *Engine) reconcile(ctx context.Context, c *Cart) ([]string, error) {
	ids := c.ProductIDs()
	prices, err := e.prices.GetPrices(ctx, ids)
	if err != nil {
		return nil, err
	}
	c.applyPrices(prices)

	var missing []string
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (e *Engine) load(ctx context.Context, session string) (*Cart, error) {
	c, err := e.store.Load(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	if c == nil {
		c = &Cart{Lines: []Line{}}
	}
	return c, nil
}

func (e *Engine) clear(ctx context.Context, session string) error {
	if err := e.store.Delete(ctx, session); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}

	e.mu.Lock()
	delete(e.lastKnown, session)
	e.mu.Unlock()
	return nil
}

func (e *Engine) remember(session string, c *Cart) {
	e.mu.Lock()
	e.lastKnown[session] = c.clone()
	e.mu.Unlock()
}

func (e *Engine) fallback(session string) *Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.lastKnown[session].clone()
	c.Stale = true
	return c
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
