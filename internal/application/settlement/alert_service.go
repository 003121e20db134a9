package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AlertService evaluates schedules against the alert policy and manages
// the resulting alerts
type AlertService struct {
	alertRepo      settlement.AlertRepository
	scheduleRepo   settlement.ScheduleRepository
	eventPublisher shared.EventPublisher
	policy         settlement.AlertPolicy
	logger         *zap.Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(
	alertRepo settlement.AlertRepository,
	scheduleRepo settlement.ScheduleRepository,
	eventPublisher shared.EventPublisher,
	policy settlement.AlertPolicy,
	logger *zap.Logger,
) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		alertRepo:      alertRepo,
		scheduleRepo:   scheduleRepo,
		eventPublisher: eventPublisher,
		policy:         policy,
		logger:         logger,
	}
}

// AlertResponse represents an alert in API responses
type AlertResponse struct {
	ID          uuid.UUID                `json:"id"`
	ScheduleID  uuid.UUID                `json:"schedule_id"`
	EntityID    uuid.UUID                `json:"entity_id"`
	EntityName  string                   `json:"entity_name"`
	EntityType  string                   `json:"entity_type"`
	AlertType   string                   `json:"alert_type"`
	Severity    string                   `json:"severity"`
	Amount      decimal.Decimal          `json:"amount"`
	DueDate     time.Time                `json:"due_date"`
	DaysPastDue int                      `json:"days_past_due"`
	Message     string                   `json:"message"`
	IsRead      bool                     `json:"is_read"`
	IsResolved  bool                     `json:"is_resolved"`
	ResolvedAt  *time.Time               `json:"resolved_at,omitempty"`
	Metadata    settlement.AlertMetadata `json:"metadata,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func toAlertResponse(a *settlement.Alert) *AlertResponse {
	return &AlertResponse{
		ID:          a.ID,
		ScheduleID:  a.ScheduleID,
		EntityID:    a.EntityID,
		EntityName:  a.EntityName,
		EntityType:  a.EntityType.String(),
		AlertType:   a.AlertType.String(),
		Severity:    a.Severity.String(),
		Amount:      a.Amount,
		DueDate:     a.DueDate,
		DaysPastDue: a.DaysPastDue,
		Message:     a.Message,
		IsRead:      a.IsRead,
		IsResolved:  a.IsResolved,
		ResolvedAt:  a.ResolvedAt,
		Metadata:    a.Metadata,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// AlertListFilter defines filtering options for alert list queries
type AlertListFilter struct {
	EntityType string `form:"entity_type"`
	Severity   string `form:"severity"`
	IsRead     *bool  `form:"is_read"`
	IsResolved *bool  `form:"is_resolved"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// EvaluationSummary reports what one evaluation pass changed
type EvaluationSummary struct {
	SchedulesEvaluated int `json:"schedules_evaluated"`
	AlertsRaised       int `json:"alerts_raised"`
	AlertsRefreshed    int `json:"alerts_refreshed"`
	MarkedOverdue      int `json:"marked_overdue"`
}

// Evaluate runs one alert evaluation pass over every schedule that
// participates in alerting. It upserts alerts keyed by (entity, alert
// type): an unresolved alert of the same type is refreshed in place, so
// repeated passes with no state change produce no duplicates. Alerts are
// never auto-resolved here; resolution happens through user action or a
// completed settlement.
func (s *AlertService) Evaluate(ctx context.Context, now time.Time) (*EvaluationSummary, error) {
	const pageSize = 500

	filter := settlement.ScheduleFilter{AlertsOnly: true}
	filter.Filter = shared.Filter{Page: 1, PageSize: pageSize, OrderBy: "next_due_date", OrderDir: "asc"}

	summary := &EvaluationSummary{}
	for {
		schedules, err := s.scheduleRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}

		for i := range schedules {
			schedule := &schedules[i]
			if !schedule.AlertsEnabled() {
				continue
			}
			summary.SchedulesEvaluated++

			if err := s.evaluateSchedule(ctx, schedule, now, summary); err != nil {
				s.logger.Error("alert evaluation failed for schedule",
					zap.String("schedule_id", schedule.ID.String()),
					zap.Error(err))
			}
		}

		if len(schedules) < pageSize {
			break
		}
		filter.Page++
	}

	return summary, nil
}

func (s *AlertService) evaluateSchedule(ctx context.Context, schedule *settlement.Schedule, now time.Time, summary *EvaluationSummary) error {
	daysUntilDue := schedule.DaysUntilDue(now)
	daysPastDue := schedule.DaysPastDue(now)

	// Keep the status in step with the due date before alerting on it.
	if schedule.Status == settlement.ScheduleStatusActive && schedule.IsPastDue(now) && !schedule.HasInFlight() {
		if err := schedule.MarkOverdue(now); err == nil {
			if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
				return err
			}
			s.publishEvents(ctx, schedule.GetDomainEvents())
			schedule.ClearDomainEvents()
			summary.MarkedOverdue++
		}
	}

	if daysPastDue > 0 {
		if schedule.AlertSettings.EnableOverdueAlerts {
			severity := s.policy.OverdueSeverity(daysPastDue, schedule.AlertSettings.EscalationDays)
			if err := s.upsertAlert(ctx, schedule,
				settlement.OverdueAlertType(schedule.ScheduleType),
				severity, daysPastDue,
				settlement.OverdueMessage(schedule, daysPastDue),
				summary,
			); err != nil {
				return err
			}
		}
	} else if daysUntilDue <= schedule.AlertSettings.AlertDaysBefore {
		severity := s.policy.DueSoonSeverity(daysUntilDue)
		if err := s.upsertAlert(ctx, schedule,
			settlement.DueAlertType(schedule.ScheduleType),
			severity, 0,
			settlement.DueSoonMessage(schedule, daysUntilDue),
			summary,
		); err != nil {
			return err
		}
	}

	// The threshold branch fires independently of the due date.
	if s.policy.ThresholdExceeded(schedule.PendingAmount, schedule.MinimumAmount) {
		if err := s.upsertAlert(ctx, schedule,
			settlement.AlertTypeAmountThreshold,
			settlement.SeverityMedium, daysPastDue,
			settlement.ThresholdMessage(schedule),
			summary,
		); err != nil {
			return err
		}
	}

	return nil
}

func (s *AlertService) upsertAlert(
	ctx context.Context,
	schedule *settlement.Schedule,
	alertType settlement.AlertType,
	severity settlement.AlertSeverity,
	daysPastDue int,
	message string,
	summary *EvaluationSummary,
) error {
	// A settlement can complete between the pass's read of the schedule
	// and this write, resolving the entity's alerts. Re-read before
	// writing and skip when the schedule moved on; the next pass
	// evaluates the fresh state.
	current, err := s.scheduleRepo.FindByID(ctx, schedule.ID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil
		}
		return err
	}
	if current.Version != schedule.Version {
		return nil
	}

	existing, err := s.alertRepo.FindUnresolved(ctx, schedule.EntityID, alertType)
	if err != nil && err != shared.ErrNotFound {
		return err
	}

	if existing != nil {
		if err := existing.Refresh(severity, schedule.PendingAmount, schedule.NextDueDate, daysPastDue, message); err != nil {
			return err
		}
		if err := s.alertRepo.Save(ctx, existing); err != nil {
			return err
		}
		s.publishEvents(ctx, existing.GetDomainEvents())
		existing.ClearDomainEvents()
		summary.AlertsRefreshed++
		return nil
	}

	alert, err := settlement.NewAlert(schedule, alertType, severity, schedule.PendingAmount, schedule.NextDueDate, daysPastDue, message)
	if err != nil {
		return err
	}
	if err := s.alertRepo.Save(ctx, alert); err != nil {
		return err
	}
	s.publishEvents(ctx, alert.GetDomainEvents())
	alert.ClearDomainEvents()
	summary.AlertsRaised++
	return nil
}

// ListAlerts lists alerts with filtering, ordered by severity then recency
func (s *AlertService) ListAlerts(ctx context.Context, filter AlertListFilter) ([]AlertResponse, int64, error) {
	domainFilter := settlement.AlertFilter{
		IsRead:     filter.IsRead,
		IsResolved: filter.IsResolved,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	if filter.EntityType != "" {
		entityType := settlement.EntityType(filter.EntityType)
		if !entityType.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid entity type filter")
		}
		domainFilter.EntityType = &entityType
	}
	if filter.Severity != "" {
		severity := settlement.AlertSeverity(filter.Severity)
		if !severity.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid severity filter")
		}
		domainFilter.Severity = &severity
	}

	alerts, err := s.alertRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.alertRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AlertResponse, len(alerts))
	for i := range alerts {
		responses[i] = *toAlertResponse(&alerts[i])
	}

	return responses, total, nil
}

// MarkRead marks an alert as read
func (s *AlertService) MarkRead(ctx context.Context, id uuid.UUID) error {
	alert, err := s.alertRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	alert.MarkRead()

	return s.alertRepo.Save(ctx, alert)
}

// Resolve resolves an alert through user action
func (s *AlertService) Resolve(ctx context.Context, id uuid.UUID) error {
	alert, err := s.alertRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := alert.Resolve(time.Now().UTC()); err != nil {
		return err
	}

	if err := s.alertRepo.Save(ctx, alert); err != nil {
		return err
	}

	s.publishEvents(ctx, alert.GetDomainEvents())
	alert.ClearDomainEvents()

	return nil
}

// ResolveForEntity resolves every unresolved alert for an entity. Called
// after a settlement completes so the operator is not chased about an
// obligation that was just met.
func (s *AlertService) ResolveForEntity(ctx context.Context, entityID uuid.UUID, at time.Time) (int, error) {
	alerts, err := s.alertRepo.FindUnresolvedByEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range alerts {
		alert := &alerts[i]
		if err := alert.Resolve(at); err != nil {
			continue
		}
		if err := s.alertRepo.Save(ctx, alert); err != nil {
			return resolved, err
		}
		s.publishEvents(ctx, alert.GetDomainEvents())
		alert.ClearDomainEvents()
		resolved++
	}

	return resolved, nil
}

func (s *AlertService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
