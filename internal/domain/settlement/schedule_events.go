package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ScheduleCreatedEvent is raised when a new settlement schedule is created
type ScheduleCreatedEvent struct {
	shared.BaseDomainEvent
	ScheduleID    uuid.UUID       `json:"schedule_id"`
	EntityID      uuid.UUID       `json:"entity_id"`
	EntityName    string          `json:"entity_name"`
	EntityType    EntityType      `json:"entity_type"`
	ScheduleType  ScheduleType    `json:"schedule_type"`
	Frequency     Frequency       `json:"frequency"`
	NextDueDate   time.Time       `json:"next_due_date"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}

// EventType returns the event type name
func (e *ScheduleCreatedEvent) EventType() string {
	return "ScheduleCreated"
}

// NewScheduleCreatedEvent creates a new ScheduleCreatedEvent
func NewScheduleCreatedEvent(s *Schedule) *ScheduleCreatedEvent {
	return &ScheduleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ScheduleCreated", "Schedule", s.ID),
		ScheduleID:      s.ID,
		EntityID:        s.EntityID,
		EntityName:      s.EntityName,
		EntityType:      s.EntityType,
		ScheduleType:    s.ScheduleType,
		Frequency:       s.Frequency,
		NextDueDate:     s.NextDueDate,
		PendingAmount:   s.PendingAmount,
	}
}

// ScheduleStatusChangedEvent is raised when a schedule changes status
type ScheduleStatusChangedEvent struct {
	shared.BaseDomainEvent
	ScheduleID     uuid.UUID      `json:"schedule_id"`
	EntityID       uuid.UUID      `json:"entity_id"`
	PreviousStatus ScheduleStatus `json:"previous_status"`
	NewStatus      ScheduleStatus `json:"new_status"`
}

// EventType returns the event type name
func (e *ScheduleStatusChangedEvent) EventType() string {
	return "ScheduleStatusChanged"
}

// NewScheduleStatusChangedEvent creates a new ScheduleStatusChangedEvent
func NewScheduleStatusChangedEvent(s *Schedule, previous ScheduleStatus) *ScheduleStatusChangedEvent {
	return &ScheduleStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ScheduleStatusChanged", "Schedule", s.ID),
		ScheduleID:      s.ID,
		EntityID:        s.EntityID,
		PreviousStatus:  previous,
		NewStatus:       s.Status,
	}
}

// ScheduleSettledEvent is raised when a schedule's pending amount is
// successfully collected or paid out
type ScheduleSettledEvent struct {
	shared.BaseDomainEvent
	ScheduleID    uuid.UUID       `json:"schedule_id"`
	EntityID      uuid.UUID       `json:"entity_id"`
	EntityName    string          `json:"entity_name"`
	ScheduleType  ScheduleType    `json:"schedule_type"`
	SettledAmount decimal.Decimal `json:"settled_amount"`
	NextDueDate   time.Time       `json:"next_due_date"`
}

// EventType returns the event type name
func (e *ScheduleSettledEvent) EventType() string {
	return "ScheduleSettled"
}

// NewScheduleSettledEvent creates a new ScheduleSettledEvent
func NewScheduleSettledEvent(s *Schedule, amount decimal.Decimal) *ScheduleSettledEvent {
	return &ScheduleSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ScheduleSettled", "Schedule", s.ID),
		ScheduleID:      s.ID,
		EntityID:        s.EntityID,
		EntityName:      s.EntityName,
		ScheduleType:    s.ScheduleType,
		SettledAmount:   amount,
		NextDueDate:     s.NextDueDate,
	}
}

// ScheduleSettlementFailedEvent is raised when a settlement attempt fails
type ScheduleSettlementFailedEvent struct {
	shared.BaseDomainEvent
	ScheduleID uuid.UUID    `json:"schedule_id"`
	EntityID   uuid.UUID    `json:"entity_id"`
	EntityName string       `json:"entity_name"`
	Type       ScheduleType `json:"schedule_type"`
	Reason     string       `json:"reason"`
}

// EventType returns the event type name
func (e *ScheduleSettlementFailedEvent) EventType() string {
	return "ScheduleSettlementFailed"
}

// NewScheduleSettlementFailedEvent creates a new ScheduleSettlementFailedEvent
func NewScheduleSettlementFailedEvent(s *Schedule, reason string) *ScheduleSettlementFailedEvent {
	return &ScheduleSettlementFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("ScheduleSettlementFailed", "Schedule", s.ID),
		ScheduleID:      s.ID,
		EntityID:        s.EntityID,
		EntityName:      s.EntityName,
		Type:            s.ScheduleType,
		Reason:          reason,
	}
}
