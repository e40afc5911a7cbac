package payment

import (
	"context"
	"strings"

	"buybuzz-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
}

// MockGateway settles every charge immediately. No money moves.
type MockGateway struct {
	newRef func() string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{newRef: shortRef}
}

func (g *MockGateway) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Status:     StatusPaid,
		Method:     MethodMock,
		OrderRef:   "ORD-" + g.newRef(),
		PaymentRef: "PAY-" + g.newRef(),
	}

	logger.FromCtx(ctx).Debug("mock payment settled",
		zap.String("layer", "payment"),
		zap.String("user_id", req.UserID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("payment_ref", res.PaymentRef),
	)
	return res, nil
}

func shortRef() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}
