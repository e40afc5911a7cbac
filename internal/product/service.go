package product

import (
	"context"
	"time"

	"buybuzz-be/internal/logger"

	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Service interface {
	List(ctx context.Context, opts ListOptions) ([]Product, error)
	// Catalog returns every product, used to give the chat assistant context.
	Catalog(ctx context.Context) ([]Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListProducts"),
	)

	start := time.Now()

	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	} else if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}

	products, err := s.repo.List(ctx, opts)
	if err != nil {
		log.Error("failed to list products", zap.Error(err))
		return nil, err
	}

	log.Debug("products listed",
		zap.Int("count", len(products)),
		zap.String("search", opts.Search),
		zap.String("category", opts.Category),
		zap.Duration("duration", time.Since(start)),
	)
	return products, nil
}

func (s *service) Catalog(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx, ListOptions{})
}
