package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSettlementMetrics", Err: "meter cannot be nil"}

// BacklogMetricsProvider provides backlog data for periodic metrics
// collection. This interface lets the telemetry layer query schedule and
// alert state without depending on the persistence layer directly.
type BacklogMetricsProvider interface {
	// GetOverdueScheduleCount returns the number of schedules past due
	GetOverdueScheduleCount(ctx context.Context) (int64, error)

	// GetUnresolvedAlertCount returns the number of open alerts
	GetUnresolvedAlertCount(ctx context.Context) (int64, error)
}

// SettlementMetrics tracks settlement activity: alerts raised and resolved,
// transaction outcomes, and settled amounts. Counters are driven by domain
// events delivered through the event bus; backlog gauges are refreshed by a
// periodic collector.
type SettlementMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	alertRaisedTotal          *Counter
	alertEscalatedTotal       *Counter
	alertResolvedTotal        *Counter
	transactionCompletedTotal *Counter
	transactionFailedTotal    *Counter
	settledAmountTotal        *Counter

	// Gauge metrics (point-in-time values)
	overdueSchedules *Gauge
	unresolvedAlerts *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	backlogProvider BacklogMetricsProvider
}

// SettlementMetricsConfig holds configuration for settlement metrics.
type SettlementMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	BacklogProvider BacklogMetricsProvider
}

// NewSettlementMetrics creates a new SettlementMetrics instance.
func NewSettlementMetrics(cfg SettlementMetricsConfig) (*SettlementMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SettlementMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		backlogProvider: cfg.BacklogProvider,
	}

	var err error

	sm.alertRaisedTotal, err = NewCounter(
		cfg.Meter,
		"settlement_alert_raised_total",
		"Total number of payment alerts raised",
		"{alerts}",
	)
	if err != nil {
		return nil, err
	}

	sm.alertEscalatedTotal, err = NewCounter(
		cfg.Meter,
		"settlement_alert_escalated_total",
		"Total number of alert severity escalations",
		"{alerts}",
	)
	if err != nil {
		return nil, err
	}

	sm.alertResolvedTotal, err = NewCounter(
		cfg.Meter,
		"settlement_alert_resolved_total",
		"Total number of alerts resolved",
		"{alerts}",
	)
	if err != nil {
		return nil, err
	}

	sm.transactionCompletedTotal, err = NewCounter(
		cfg.Meter,
		"settlement_transaction_completed_total",
		"Total number of confirmed payment transactions",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	sm.transactionFailedTotal, err = NewCounter(
		cfg.Meter,
		"settlement_transaction_failed_total",
		"Total number of failed payment transactions",
		"{transactions}",
	)
	if err != nil {
		return nil, err
	}

	sm.settledAmountTotal, err = NewCounter(
		cfg.Meter,
		"settlement_settled_amount_total",
		"Total settled amount in paise",
		"{paise}",
	)
	if err != nil {
		return nil, err
	}

	sm.overdueSchedules, err = NewGauge(
		cfg.Meter,
		"settlement_overdue_schedules",
		"Number of settlement schedules past their due date",
		"{schedules}",
	)
	if err != nil {
		return nil, err
	}

	sm.unresolvedAlerts, err = NewGauge(
		cfg.Meter,
		"settlement_unresolved_alerts",
		"Number of open payment alerts",
		"{alerts}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// EventTypes returns the domain event types this handler consumes.
func (sm *SettlementMetrics) EventTypes() []string {
	return []string{
		"AlertRaised",
		"AlertEscalated",
		"AlertResolved",
		"TransactionCompleted",
		"TransactionFailed",
		"ScheduleSettled",
	}
}

// Handle records a metric for a settlement domain event.
func (sm *SettlementMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *settlement.AlertRaisedEvent:
		sm.alertRaisedTotal.Inc(ctx,
			AttrAlertType.String(string(e.AlertType)),
			AttrSeverity.String(string(e.Severity)),
		)
	case *settlement.AlertEscalatedEvent:
		sm.alertEscalatedTotal.Inc(ctx,
			AttrAlertType.String(string(e.AlertType)),
			AttrSeverity.String(string(e.NewSeverity)),
		)
	case *settlement.AlertResolvedEvent:
		sm.alertResolvedTotal.Inc(ctx,
			AttrAlertType.String(string(e.AlertType)),
		)
	case *settlement.TransactionCompletedEvent:
		sm.transactionCompletedTotal.Inc(ctx,
			AttrScheduleType.String(string(e.TransactionType)),
		)
	case *settlement.TransactionFailedEvent:
		sm.transactionFailedTotal.Inc(ctx,
			AttrScheduleType.String(string(e.TransactionType)),
		)
	case *settlement.ScheduleSettledEvent:
		sm.recordSettledAmount(ctx, e.ScheduleType, e.SettledAmount)
	}
	return nil
}

// recordSettledAmount records a settled amount in paise.
func (sm *SettlementMetrics) recordSettledAmount(ctx context.Context, scheduleType settlement.ScheduleType, amount decimal.Decimal) {
	paise := amount.Mul(decimal.NewFromInt(100)).IntPart()
	sm.settledAmountTotal.Add(ctx, paise,
		AttrScheduleType.String(string(scheduleType)),
	)
}

// StartPeriodicCollection starts periodic collection of backlog gauges.
// Non-blocking; use Stop() to stop collection.
func (sm *SettlementMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go sm.runPeriodicCollection(ctx, interval)
	})
}

func (sm *SettlementMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm.collectBacklogMetrics(ctx)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic settlement metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic settlement metrics collection")
			return
		case <-ticker.C:
			sm.collectBacklogMetrics(ctx)
		}
	}
}

func (sm *SettlementMetrics) collectBacklogMetrics(ctx context.Context) {
	if sm.backlogProvider == nil {
		return
	}

	overdue, err := sm.backlogProvider.GetOverdueScheduleCount(ctx)
	if err != nil {
		sm.logger.Warn("Failed to collect overdue schedule count", zap.Error(err))
	} else {
		sm.overdueSchedules.Record(ctx, overdue)
	}

	unresolved, err := sm.backlogProvider.GetUnresolvedAlertCount(ctx)
	if err != nil {
		sm.logger.Warn("Failed to collect unresolved alert count", zap.Error(err))
	} else {
		sm.unresolvedAlerts.Record(ctx, unresolved)
	}
}

// Stop stops the periodic collector. Safe to call multiple times.
func (sm *SettlementMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

var _ shared.EventHandler = (*SettlementMetrics)(nil)
