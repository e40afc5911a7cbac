package order

import (
	"context"
	"strings"

	"buybuzz-be/internal/logger"

	"go.uber.org/zap"
)

// RecentLimit is how many orders the admin console lists.
const RecentLimit = 20

type Service interface {
	ListForUser(ctx context.Context, userID string) ([]Order, error)
	ListRecent(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID, status string, trackingNumber *string) (*Order, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListForUser"),
		zap.String("user_id", userID),
	)

	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error("failed to list user orders", zap.Error(err))
		return nil, err
	}

	log.Debug("user orders listed", zap.Int("count", len(orders)))
	return orders, nil
}

func (s *service) ListRecent(ctx context.Context) ([]Order, error) {
	orders, err := s.repo.ListRecent(ctx, RecentLimit)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list recent orders",
			zap.String("layer", "service"),
			zap.String("method", "ListRecent"),
			zap.Error(err),
		)
		return nil, err
	}
	return orders, nil
}

// UpdateStatus moves an order to a new status. Orders never return to
// pending once created. A blank tracking number leaves the stored one as is.
func (s *service) UpdateStatus(ctx context.Context, orderID, status string, trackingNumber *string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.String("order_id", orderID),
	)

	st, err := ParseStatus(strings.ToLower(strings.TrimSpace(status)))
	if err != nil {
		log.Warn("rejected unknown status", zap.String("status", status))
		return nil, err
	}
	if st == StatusPending {
		log.Warn("rejected status regression")
		return nil, ErrStatusRegression
	}

	if trackingNumber != nil {
		if t := strings.TrimSpace(*trackingNumber); t == "" {
			trackingNumber = nil
		} else {
			trackingNumber = &t
		}
	}

	if err := s.repo.UpdateStatus(ctx, orderID, st, trackingNumber); err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return nil, err
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		log.Error("failed to reload order", zap.Error(err))
		return nil, err
	}

	log.Info("order status updated", zap.String("status", string(st)))
	return o, nil
}
