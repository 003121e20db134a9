package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func completedTransaction(t *testing.T, schedule *settlement.Schedule, ageDays int) settlement.PaymentTransaction {
	t.Helper()
	tx, err := settlement.NewPaymentTransaction(schedule, "")
	require.NoError(t, err)
	require.NoError(t, tx.Complete(time.Now().UTC()))
	tx.CreatedAt = time.Now().UTC().AddDate(0, 0, -ageDays)
	tx.ClearDomainEvents()
	return *tx
}

func failedTransaction(t *testing.T, schedule *settlement.Schedule, ageDays int) settlement.PaymentTransaction {
	t.Helper()
	tx, err := settlement.NewPaymentTransaction(schedule, "")
	require.NoError(t, err)
	require.NoError(t, tx.Fail("insufficient funds"))
	tx.CreatedAt = time.Now().UTC().AddDate(0, 0, -ageDays)
	tx.ClearDomainEvents()
	return *tx
}

func TestAnalyticsService_Report(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	svc := NewAnalyticsService(txRepo)
	now := time.Now().UTC()

	collection := newCollectionSchedule(1000, 7)
	payout := newPayoutSchedule(400, 7)

	transactions := []settlement.PaymentTransaction{
		completedTransaction(t, collection, 5),
		failedTransaction(t, newCollectionSchedule(600, 7), 10),
		completedTransaction(t, payout, 3),
	}

	txRepo.On("FindCreatedSince", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return now.Sub(cutoff) > 29*24*time.Hour && now.Sub(cutoff) < 31*24*time.Hour
	})).Return(transactions, nil)

	report, err := svc.Report(context.Background(), 30, now)

	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalTransactions)
	assert.True(t, report.TotalCollected.Equal(decimal.NewFromInt(1000)))
	assert.True(t, report.TotalPaid.Equal(decimal.NewFromInt(400)))
	assert.True(t, report.NetCashFlow.Equal(decimal.NewFromInt(600)))
	assert.InDelta(t, 50.0, report.CollectionSuccessRate, 0.001)
	assert.InDelta(t, 100.0, report.PayoutSuccessRate, 0.001)
	assert.True(t, report.AverageCollectionAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, report.AveragePayoutAmount.Equal(decimal.NewFromInt(400)))
	txRepo.AssertExpectations(t)
}

func TestAnalyticsService_Report_EmptyWindowDefaults(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	svc := NewAnalyticsService(txRepo)

	txRepo.On("FindCreatedSince", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]settlement.PaymentTransaction{}, nil)

	report, err := svc.Report(context.Background(), 7, time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalTransactions)
	// No evidence of failure, not zero success
	assert.InDelta(t, 100.0, report.CollectionSuccessRate, 0.001)
	assert.InDelta(t, 100.0, report.PayoutSuccessRate, 0.001)
	assert.True(t, report.TotalCollected.IsZero())
	assert.True(t, report.NetCashFlow.IsZero())
}

func TestAnalyticsService_Report_RejectsNonPositiveTimeframe(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	svc := NewAnalyticsService(txRepo)

	_, err := svc.Report(context.Background(), 0, time.Now().UTC())

	require.Error(t, err)
	txRepo.AssertNotCalled(t, "FindCreatedSince")
}
