package user

import (
	"context"

	"buybuzz-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	return s.repo.GetProfile(ctx, userID)
}

// IsAdmin reports whether the user holds the admin role in user_roles.
func (s *service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	ok, err := s.repo.HasRole(ctx, userID, RoleAdmin)
	if err != nil {
		logger.FromCtx(ctx).Error("role lookup failed",
			zap.String("layer", "service"),
			zap.String("method", "IsAdmin"),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return false, err
	}
	return ok, nil
}
