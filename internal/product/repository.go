package product

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"buybuzz-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
	List(ctx context.Context, opts ListOptions) ([]Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// GetPrices looks up current prices in one query. Unknown ids are omitted;
// rows with a null or negative price are dropped as malformed. Product ids
// are UUIDs, so ids that do not parse are treated as unknown instead of
// failing the whole lookup. Results are keyed by the ids as given.
func (r *repository) GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetPrices"),
	)

	prices := make(map[string]decimal.Decimal, len(ids))

	byCanonical := make(map[string][]string, len(ids))
	canonical := make([]string, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			log.Debug("skipping non-uuid product id", zap.String("product_id", id))
			continue
		}
		key := u.String()
		if _, seen := byCanonical[key]; !seen {
			canonical = append(canonical, key)
		}
		byCanonical[key] = append(byCanonical[key], id)
	}
	if len(canonical) == 0 {
		return prices, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, price
		FROM products
		WHERE id = ANY($1)
	`, pq.Array(canonical))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetPrices, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			price decimal.NullDecimal
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedGetPrices, err)
		}
		if err := validatePrice(price); err != nil {
			log.Warn("skipping malformed product row",
				zap.String("product_id", id),
				zap.Error(err),
			)
			continue
		}
		for _, asked := range byCanonical[id] {
			prices[asked] = price.Decimal
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetPrices, err)
	}

	return prices, nil
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]Product, error) {
	var (
		conditions []string
		args       []any
	)

	if s := strings.TrimSpace(opts.Search); s != "" {
		args = append(args, "%"+s+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if c := strings.TrimSpace(opts.Category); c != "" {
		args = append(args, c)
		conditions = append(conditions, fmt.Sprintf("LOWER(category) = LOWER($%d)", len(args)))
	}

	query := `
		SELECT id, name, description, price, image_url, category,
		       stock_quantity, rating, created_at
		FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetProducts, err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var (
			p     Product
			price decimal.NullDecimal
		)
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&price,
			&p.ImageURL,
			&p.Category,
			&p.StockQuantity,
			&p.Rating,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedGetProducts, err)
		}
		if err := validatePrice(price); err != nil {
			logger.FromCtx(ctx).Warn("skipping malformed product row",
				zap.String("product_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		p.Price = price.Decimal
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetProducts, err)
	}

	return products, nil
}

func validatePrice(p decimal.NullDecimal) error {
	if !p.Valid || p.Decimal.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}
