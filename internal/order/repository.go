package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Writer creates and removes orders. Checkout depends only on this.
type Writer interface {
	CreateOrder(ctx context.Context, o *Order) error
	CreateItems(ctx context.Context, orderID string, items []Item) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// Transactor is implemented by stores that can run several writes atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(w Writer) error) error
}

type Repository interface {
	Writer
	Transactor
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	GetByID(ctx context.Context, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status, trackingNumber *string) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type writer struct {
	q querier
}

type repository struct {
	writer
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{writer: writer{q: db}, db: db}
}

func (r *repository) InTx(ctx context.Context, fn func(w Writer) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&writer{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateOrder inserts the header and fills in the generated id and created_at.
func (w *writer) CreateOrder(ctx context.Context, o *Order) error {
	err := w.q.QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, total_amount, status,
			payment_method, payment_status, shipping_address,
			external_order_ref, external_payment_ref
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`,
		o.UserID,
		o.TotalAmount,
		string(o.Status),
		o.PaymentMethod,
		o.PaymentStatus,
		o.ShippingAddress,
		o.ExternalOrderRef,
		o.ExternalPaymentRef,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFailedCreateOrder, err)
	}
	return nil
}

// CreateItems writes all items in a single multi-row insert.
func (w *writer) CreateItems(ctx context.Context, orderID string, items []Item) error {
	if len(items) == 0 {
		return ErrNoItems
	}

	const cols = 5
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*cols)

	for i, it := range items {
		n := i * cols
		placeholders = append(placeholders,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5))
		args = append(args, orderID, it.ProductID, it.ProductName, it.ProductPrice, it.Quantity)
	}

	query := `INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity) VALUES ` +
		strings.Join(placeholders, ",")

	if _, err := w.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedCreateItems, err)
	}
	return nil
}

func (w *writer) DeleteOrder(ctx context.Context, orderID string) error {
	if _, err := w.q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if _, err := w.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

const orderColumns = `
	id, user_id, total_amount, status, payment_method, payment_status,
	shipping_address, external_order_ref, external_payment_ref,
	tracking_number, created_at`

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1`, limit)
}

func (r *repository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1`, orderID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	byOrder, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = byOrder[o.ID]
	return &o, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID string, status Status, trackingNumber *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    tracking_number = COALESCE($2, tracking_number),
		    updated_at = NOW()
		WHERE id = $3
	`, string(status), trackingNumber, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) listOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetOrders, err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedGetOrders, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetOrders, err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	byOrder, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}

	return orders, nil
}

func (r *repository) itemsFor(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, product_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetOrders, err)
	}
	defer rows.Close()

	byOrder := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.ProductName, &it.ProductPrice, &it.Quantity); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedGetOrders, err)
		}
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetOrders, err)
	}

	for _, id := range orderIDs {
		if byOrder[id] == nil {
			byOrder[id] = []Item{}
		}
	}
	return byOrder, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (Order, error) {
	var (
		o      Order
		status string
	)
	if err := s.Scan(
		&o.ID,
		&o.UserID,
		&o.TotalAmount,
		&status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.ShippingAddress,
		&o.ExternalOrderRef,
		&o.ExternalPaymentRef,
		&o.TrackingNumber,
		&o.CreatedAt,
	); err != nil {
		return Order{}, err
	}

	st, err := ParseStatus(status)
	if err != nil {
		return Order{}, err
	}
	o.Status = st
	return o, nil
}
