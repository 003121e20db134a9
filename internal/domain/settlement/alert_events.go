package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AlertRaisedEvent is raised when a new alert is created
type AlertRaisedEvent struct {
	shared.BaseDomainEvent
	AlertID    uuid.UUID       `json:"alert_id"`
	ScheduleID uuid.UUID       `json:"schedule_id"`
	EntityID   uuid.UUID       `json:"entity_id"`
	AlertType  AlertType       `json:"alert_type"`
	Severity   AlertSeverity   `json:"severity"`
	Amount     decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *AlertRaisedEvent) EventType() string {
	return "AlertRaised"
}

// NewAlertRaisedEvent creates a new AlertRaisedEvent
func NewAlertRaisedEvent(a *Alert) *AlertRaisedEvent {
	return &AlertRaisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AlertRaised", "Alert", a.ID),
		AlertID:         a.ID,
		ScheduleID:      a.ScheduleID,
		EntityID:        a.EntityID,
		AlertType:       a.AlertType,
		Severity:        a.Severity,
		Amount:          a.Amount,
	}
}

// AlertEscalatedEvent is raised when a refresh increases an alert's severity
type AlertEscalatedEvent struct {
	shared.BaseDomainEvent
	AlertID          uuid.UUID     `json:"alert_id"`
	EntityID         uuid.UUID     `json:"entity_id"`
	AlertType        AlertType     `json:"alert_type"`
	PreviousSeverity AlertSeverity `json:"previous_severity"`
	NewSeverity      AlertSeverity `json:"new_severity"`
	DaysPastDue      int           `json:"days_past_due"`
}

// EventType returns the event type name
func (e *AlertEscalatedEvent) EventType() string {
	return "AlertEscalated"
}

// NewAlertEscalatedEvent creates a new AlertEscalatedEvent
func NewAlertEscalatedEvent(a *Alert, previous AlertSeverity) *AlertEscalatedEvent {
	return &AlertEscalatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent("AlertEscalated", "Alert", a.ID),
		AlertID:          a.ID,
		EntityID:         a.EntityID,
		AlertType:        a.AlertType,
		PreviousSeverity: previous,
		NewSeverity:      a.Severity,
		DaysPastDue:      a.DaysPastDue,
	}
}

// AlertResolvedEvent is raised when an alert is resolved
type AlertResolvedEvent struct {
	shared.BaseDomainEvent
	AlertID    uuid.UUID `json:"alert_id"`
	ScheduleID uuid.UUID `json:"schedule_id"`
	EntityID   uuid.UUID `json:"entity_id"`
	AlertType  AlertType `json:"alert_type"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// EventType returns the event type name
func (e *AlertResolvedEvent) EventType() string {
	return "AlertResolved"
}

// NewAlertResolvedEvent creates a new AlertResolvedEvent
func NewAlertResolvedEvent(a *Alert) *AlertResolvedEvent {
	resolvedAt := time.Now().UTC()
	if a.ResolvedAt != nil {
		resolvedAt = *a.ResolvedAt
	}
	return &AlertResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AlertResolved", "Alert", a.ID),
		AlertID:         a.ID,
		ScheduleID:      a.ScheduleID,
		EntityID:        a.EntityID,
		AlertType:       a.AlertType,
		ResolvedAt:      resolvedAt,
	}
}
