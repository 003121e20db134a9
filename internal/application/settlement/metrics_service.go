package settlement

import (
	"context"
	"time"

	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MetricsService computes the point-in-time dashboard snapshot. Pure
// reads, no mutations.
type MetricsService struct {
	scheduleRepo settlement.ScheduleRepository
	alertRepo    settlement.AlertRepository
	txRepo       settlement.TransactionRepository
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(
	scheduleRepo settlement.ScheduleRepository,
	alertRepo settlement.AlertRepository,
	txRepo settlement.TransactionRepository,
) *MetricsService {
	return &MetricsService{
		scheduleRepo: scheduleRepo,
		alertRepo:    alertRepo,
		txRepo:       txRepo,
	}
}

// AlertCounts summarizes the open alert load
type AlertCounts struct {
	Total    int64 `json:"total"`
	Unread   int64 `json:"unread"`
	Critical int64 `json:"critical"`
	High     int64 `json:"high"`
}

// UpcomingDue buckets schedules by how soon they fall due
type UpcomingDue struct {
	Today    int64 `json:"today"`
	ThisWeek int64 `json:"this_week"`
	NextWeek int64 `json:"next_week"`
}

// Performance summarizes settlement health as percentages
type Performance struct {
	OnTimeRate       float64 `json:"on_time_rate"`
	AverageDelayDays float64 `json:"average_delay_days"`
	SuccessRate      float64 `json:"success_rate"`
}

// DashboardMetrics is the snapshot served to dashboards
type DashboardMetrics struct {
	TotalActiveSchedules    int64           `json:"total_active_schedules"`
	OverdueCollections      int64           `json:"overdue_collections"`
	OverduePayouts          int64           `json:"overdue_payouts"`
	TotalPendingCollections decimal.Decimal `json:"total_pending_collections"`
	TotalPendingPayouts     decimal.Decimal `json:"total_pending_payouts"`
	Alerts                  AlertCounts     `json:"alerts"`
	UpcomingDue             UpcomingDue     `json:"upcoming_due"`
	Performance             Performance     `json:"performance"`
	GeneratedAt             time.Time       `json:"generated_at"`
}

// Snapshot computes the dashboard metrics as of now
func (s *MetricsService) Snapshot(ctx context.Context, now time.Time) (*DashboardMetrics, error) {
	m := &DashboardMetrics{GeneratedAt: now.UTC()}

	var err error
	if m.TotalActiveSchedules, err = s.countSchedules(ctx, settlement.ScheduleStatusActive, nil); err != nil {
		return nil, err
	}

	collection := settlement.ScheduleTypeCollection
	payout := settlement.ScheduleTypePayout

	if m.OverdueCollections, err = s.countSchedules(ctx, settlement.ScheduleStatusOverdue, &collection); err != nil {
		return nil, err
	}
	if m.OverduePayouts, err = s.countSchedules(ctx, settlement.ScheduleStatusOverdue, &payout); err != nil {
		return nil, err
	}

	if m.TotalPendingCollections, err = s.scheduleRepo.SumPendingByType(ctx, collection); err != nil {
		return nil, err
	}
	if m.TotalPendingPayouts, err = s.scheduleRepo.SumPendingByType(ctx, payout); err != nil {
		return nil, err
	}

	if m.Alerts, err = s.alertCounts(ctx); err != nil {
		return nil, err
	}
	if m.UpcomingDue, err = s.upcomingDue(ctx, now); err != nil {
		return nil, err
	}
	if m.Performance, err = s.performance(ctx, now); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *MetricsService) countSchedules(ctx context.Context, status settlement.ScheduleStatus, scheduleType *settlement.ScheduleType) (int64, error) {
	return s.scheduleRepo.Count(ctx, settlement.ScheduleFilter{
		Status:       &status,
		ScheduleType: scheduleType,
	})
}

func (s *MetricsService) alertCounts(ctx context.Context) (AlertCounts, error) {
	unresolved := false
	unread := false

	counts := AlertCounts{}

	total, err := s.alertRepo.Count(ctx, settlement.AlertFilter{IsResolved: &unresolved})
	if err != nil {
		return counts, err
	}
	counts.Total = total

	unreadCount, err := s.alertRepo.Count(ctx, settlement.AlertFilter{IsResolved: &unresolved, IsRead: &unread})
	if err != nil {
		return counts, err
	}
	counts.Unread = unreadCount

	critical := settlement.SeverityCritical
	criticalCount, err := s.alertRepo.Count(ctx, settlement.AlertFilter{IsResolved: &unresolved, Severity: &critical})
	if err != nil {
		return counts, err
	}
	counts.Critical = criticalCount

	high := settlement.SeverityHigh
	highCount, err := s.alertRepo.Count(ctx, settlement.AlertFilter{IsResolved: &unresolved, Severity: &high})
	if err != nil {
		return counts, err
	}
	counts.High = highCount

	return counts, nil
}

// upcomingDue counts active schedules in half-open due-date windows:
// Today is [startOfDay, +1d), ThisWeek is [startOfDay, +7d) and so
// contains Today, NextWeek is [+7d, +14d). A schedule due exactly at a
// boundary midnight lands in exactly one window.
func (s *MetricsService) upcomingDue(ctx context.Context, now time.Time) (UpcomingDue, error) {
	buckets := UpcomingDue{}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.AddDate(0, 0, 1)
	endOfWeek := startOfDay.AddDate(0, 0, 7)
	endOfNextWeek := startOfDay.AddDate(0, 0, 14)

	active := settlement.ScheduleStatusActive

	today, err := s.scheduleRepo.Count(ctx, settlement.ScheduleFilter{
		Status: &active, DueAfter: &startOfDay, DueBefore: &endOfDay,
	})
	if err != nil {
		return buckets, err
	}
	buckets.Today = today

	thisWeek, err := s.scheduleRepo.Count(ctx, settlement.ScheduleFilter{
		Status: &active, DueAfter: &startOfDay, DueBefore: &endOfWeek,
	})
	if err != nil {
		return buckets, err
	}
	buckets.ThisWeek = thisWeek

	nextWeek, err := s.scheduleRepo.Count(ctx, settlement.ScheduleFilter{
		Status: &active, DueAfter: &endOfWeek, DueBefore: &endOfNextWeek,
	})
	if err != nil {
		return buckets, err
	}
	buckets.NextWeek = nextWeek

	return buckets, nil
}

func (s *MetricsService) performance(ctx context.Context, now time.Time) (Performance, error) {
	perf := Performance{OnTimeRate: 100, SuccessRate: 100}

	totalSchedules, err := s.scheduleRepo.Count(ctx, settlement.ScheduleFilter{})
	if err != nil {
		return perf, err
	}

	overdue := settlement.ScheduleStatusOverdue
	overdueCount, err := s.scheduleRepo.Count(ctx, settlement.ScheduleFilter{Status: &overdue})
	if err != nil {
		return perf, err
	}

	if totalSchedules > 0 {
		perf.OnTimeRate = float64(totalSchedules-overdueCount) / float64(totalSchedules) * 100
	}

	if overdueCount > 0 {
		filter := settlement.ScheduleFilter{Status: &overdue}
		filter.Filter = shared.Filter{Page: 1, PageSize: 1000, OrderBy: "next_due_date", OrderDir: "asc"}
		overdueSchedules, err := s.scheduleRepo.FindAll(ctx, filter)
		if err != nil {
			return perf, err
		}
		totalDelay := 0
		for i := range overdueSchedules {
			totalDelay += overdueSchedules[i].DaysPastDue(now)
		}
		if len(overdueSchedules) > 0 {
			perf.AverageDelayDays = float64(totalDelay) / float64(len(overdueSchedules))
		}
	}

	totalTx, err := s.txRepo.Count(ctx, settlement.TransactionFilter{})
	if err != nil {
		return perf, err
	}
	if totalTx > 0 {
		completed, err := s.txRepo.CountByStatus(ctx, settlement.TransactionStatusCompleted)
		if err != nil {
			return perf, err
		}
		perf.SuccessRate = float64(completed) / float64(totalTx) * 100
	}

	return perf, nil
}
