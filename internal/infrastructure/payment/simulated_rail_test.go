package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *settlement.TransferRequest {
	return &settlement.TransferRequest{
		TransactionID: uuid.New(),
		Reference:     "COL-20260831-1A2B3C4D",
		EntityID:      uuid.New(),
		EntityType:    settlement.EntityTypePharmacy,
		Direction:     settlement.ScheduleTypeCollection,
		Amount:        decimal.NewFromInt(150),
		Method:        settlement.PaymentMethodBankTransfer,
	}
}

func TestSimulatedRail_SubmitTransfer(t *testing.T) {
	t.Run("always succeeds at ratio 1", func(t *testing.T) {
		rail := NewSimulatedRail(SimulatedRailConfig{SuccessRatio: 1, Seed: 42})

		result, err := rail.SubmitTransfer(context.Background(), validRequest())

		require.NoError(t, err)
		assert.True(t, result.Succeeded)
		assert.Contains(t, result.RailReference, "SIM-BANK_TRANSFER-")
		assert.False(t, result.ConfirmedAt.IsZero())
		assert.Empty(t, result.FailureReason)
	})

	t.Run("always rejects at ratio 0", func(t *testing.T) {
		rail := NewSimulatedRail(SimulatedRailConfig{SuccessRatio: 0, Seed: 42})

		req := validRequest()
		req.Method = settlement.PaymentMethodUPI
		result, err := rail.SubmitTransfer(context.Background(), req)

		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.Equal(t, "UPI transfer declined by issuing bank", result.FailureReason)
		assert.Empty(t, result.RailReference)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		rail := NewSimulatedRail(SimulatedRailConfig{SuccessRatio: 1})

		req := validRequest()
		req.Amount = decimal.Zero
		result, err := rail.SubmitTransfer(context.Background(), req)

		assert.Nil(t, result)
		assert.ErrorIs(t, err, settlement.ErrRailInvalidAmount)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		rail := NewSimulatedRail(SimulatedRailConfig{
			SuccessRatio: 1,
			MinLatency:   time.Minute,
			MaxLatency:   time.Minute,
			Seed:         42,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		result, err := rail.SubmitTransfer(ctx, validRequest())

		assert.Nil(t, result)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("deterministic with fixed seed", func(t *testing.T) {
		outcomes := func() []bool {
			rail := NewSimulatedRail(SimulatedRailConfig{SuccessRatio: 0.5, Seed: 7})
			var results []bool
			for i := 0; i < 10; i++ {
				result, err := rail.SubmitTransfer(context.Background(), validRequest())
				require.NoError(t, err)
				results = append(results, result.Succeeded)
			}
			return results
		}

		assert.Equal(t, outcomes(), outcomes())
	})
}

func TestSimulatedRail_Name(t *testing.T) {
	assert.Equal(t, "simulated", NewSimulatedRail(DefaultSimulatedRailConfig()).Name())
}
