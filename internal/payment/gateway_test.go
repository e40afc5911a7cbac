package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_Charge(t *testing.T) {
	ctx := context.Background()

	t.Run("Paid", func(t *testing.T) {
		g := NewMockGateway()

		res, err := g.Charge(ctx, ChargeRequest{UserID: "u1", Amount: decimal.NewFromInt(290)})
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, res.Status)
		assert.Equal(t, MethodMock, res.Method)
		assert.True(t, strings.HasPrefix(res.OrderRef, "ORD-"))
		assert.True(t, strings.HasPrefix(res.PaymentRef, "PAY-"))
		assert.Len(t, res.PaymentRef, len("PAY-")+16)
	})

	t.Run("UniqueRefs", func(t *testing.T) {
		g := NewMockGateway()
		seen := map[string]bool{}
		for i := 0; i < 50; i++ {
			res, err := g.Charge(ctx, ChargeRequest{Amount: decimal.NewFromInt(1)})
			require.NoError(t, err)
			assert.False(t, seen[res.PaymentRef])
			seen[res.PaymentRef] = true
		}
	})

	t.Run("ZeroAmount", func(t *testing.T) {
		_, err := NewMockGateway().Charge(ctx, ChargeRequest{Amount: decimal.Zero})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewMockGateway().Charge(cctx, ChargeRequest{Amount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
