package settlement

import (
	"context"
	"time"

	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AnalyticsService computes time-windowed reports over transaction
// history. Pure reads, no mutations.
type AnalyticsService struct {
	txRepo settlement.TransactionRepository
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(txRepo settlement.TransactionRepository) *AnalyticsService {
	return &AnalyticsService{txRepo: txRepo}
}

// AnalyticsReport summarizes settlement activity inside a time window.
// Success rates default to 100 when no transactions of that type fall in
// the window: no evidence of failure, not zero success.
type AnalyticsReport struct {
	TimeframeDays           int             `json:"timeframe_days"`
	TotalTransactions       int             `json:"total_transactions"`
	TotalCollected          decimal.Decimal `json:"total_collected"`
	TotalPaid               decimal.Decimal `json:"total_paid"`
	NetCashFlow             decimal.Decimal `json:"net_cash_flow"`
	CollectionSuccessRate   float64         `json:"collection_success_rate"`
	PayoutSuccessRate       float64         `json:"payout_success_rate"`
	AverageCollectionAmount decimal.Decimal `json:"average_collection_amount"`
	AveragePayoutAmount     decimal.Decimal `json:"average_payout_amount"`
	GeneratedAt             time.Time       `json:"generated_at"`
}

// Report computes the analytics report over transactions created within
// the last timeframeDays days
func (s *AnalyticsService) Report(ctx context.Context, timeframeDays int, now time.Time) (*AnalyticsReport, error) {
	if timeframeDays <= 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Timeframe must be a positive number of days")
	}

	cutoff := now.UTC().AddDate(0, 0, -timeframeDays)
	transactions, err := s.txRepo.FindCreatedSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	report := &AnalyticsReport{
		TimeframeDays:           timeframeDays,
		TotalTransactions:       len(transactions),
		TotalCollected:          decimal.Zero,
		TotalPaid:               decimal.Zero,
		CollectionSuccessRate:   100,
		PayoutSuccessRate:       100,
		AverageCollectionAmount: decimal.Zero,
		AveragePayoutAmount:     decimal.Zero,
		GeneratedAt:             now.UTC(),
	}

	var (
		collections, completedCollections int
		payouts, completedPayouts         int
		collectedSum, paidSum             decimal.Decimal
	)

	for i := range transactions {
		tx := &transactions[i]
		completed := tx.Status == settlement.TransactionStatusCompleted

		if tx.TransactionType == settlement.ScheduleTypeCollection {
			collections++
			if completed {
				completedCollections++
				collectedSum = collectedSum.Add(tx.Amount)
			}
		} else {
			payouts++
			if completed {
				completedPayouts++
				paidSum = paidSum.Add(tx.Amount)
			}
		}
	}

	report.TotalCollected = collectedSum
	report.TotalPaid = paidSum
	report.NetCashFlow = collectedSum.Sub(paidSum)

	if collections > 0 {
		report.CollectionSuccessRate = float64(completedCollections) / float64(collections) * 100
	}
	if payouts > 0 {
		report.PayoutSuccessRate = float64(completedPayouts) / float64(payouts) * 100
	}
	if completedCollections > 0 {
		report.AverageCollectionAmount = collectedSum.Div(decimal.NewFromInt(int64(completedCollections)))
	}
	if completedPayouts > 0 {
		report.AveragePayoutAmount = paidSum.Div(decimal.NewFromInt(int64(completedPayouts)))
	}

	return report, nil
}
