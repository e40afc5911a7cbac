package category

import (
	"context"
	"database/sql"
	"fmt"

	"buybuzz-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context) ([]Category, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// List groups products by their trimmed category text. Products without a
// category are left out.
func (r *repository) List(ctx context.Context) ([]Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListCategories"),
	)

	rows, err := r.db.QueryContext(ctx, `
		SELECT TRIM(category) AS name, COUNT(*)
		FROM products
		WHERE category IS NOT NULL AND TRIM(category) <> ''
		GROUP BY TRIM(category)
		ORDER BY name ASC
	`)
	if err != nil {
		log.Error("query categories failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCategories, err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Name, &c.ProductCount); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedGetCategories, err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedGetCategories, err)
	}

	return categories, nil
}
