package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionStartedEvent is raised when a transaction enters processing
type TransactionStartedEvent struct {
	shared.BaseDomainEvent
	TransactionID   uuid.UUID       `json:"transaction_id"`
	ScheduleID      uuid.UUID       `json:"schedule_id"`
	EntityID        uuid.UUID       `json:"entity_id"`
	TransactionType ScheduleType    `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       string          `json:"reference"`
}

// EventType returns the event type name
func (e *TransactionStartedEvent) EventType() string {
	return "TransactionStarted"
}

// NewTransactionStartedEvent creates a new TransactionStartedEvent
func NewTransactionStartedEvent(t *PaymentTransaction) *TransactionStartedEvent {
	return &TransactionStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransactionStarted", "PaymentTransaction", t.ID),
		TransactionID:   t.ID,
		ScheduleID:      t.ScheduleID,
		EntityID:        t.EntityID,
		TransactionType: t.TransactionType,
		Amount:          t.Amount,
		Reference:       t.Reference,
	}
}

// TransactionCompletedEvent is raised when the payment rail confirms a
// transaction
type TransactionCompletedEvent struct {
	shared.BaseDomainEvent
	TransactionID   uuid.UUID       `json:"transaction_id"`
	ScheduleID      uuid.UUID       `json:"schedule_id"`
	EntityID        uuid.UUID       `json:"entity_id"`
	TransactionType ScheduleType    `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       string          `json:"reference"`
	ConfirmedAt     time.Time       `json:"confirmed_at"`
}

// EventType returns the event type name
func (e *TransactionCompletedEvent) EventType() string {
	return "TransactionCompleted"
}

// NewTransactionCompletedEvent creates a new TransactionCompletedEvent
func NewTransactionCompletedEvent(t *PaymentTransaction) *TransactionCompletedEvent {
	confirmedAt := time.Now().UTC()
	if t.ConfirmedDate != nil {
		confirmedAt = *t.ConfirmedDate
	}
	return &TransactionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransactionCompleted", "PaymentTransaction", t.ID),
		TransactionID:   t.ID,
		ScheduleID:      t.ScheduleID,
		EntityID:        t.EntityID,
		TransactionType: t.TransactionType,
		Amount:          t.Amount,
		Reference:       t.Reference,
		ConfirmedAt:     confirmedAt,
	}
}

// TransactionFailedEvent is raised when the payment rail rejects a
// transaction or confirmation times out
type TransactionFailedEvent struct {
	shared.BaseDomainEvent
	TransactionID   uuid.UUID       `json:"transaction_id"`
	ScheduleID      uuid.UUID       `json:"schedule_id"`
	EntityID        uuid.UUID       `json:"entity_id"`
	TransactionType ScheduleType    `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       string          `json:"reference"`
	FailureReason   string          `json:"failure_reason"`
}

// EventType returns the event type name
func (e *TransactionFailedEvent) EventType() string {
	return "TransactionFailed"
}

// NewTransactionFailedEvent creates a new TransactionFailedEvent
func NewTransactionFailedEvent(t *PaymentTransaction) *TransactionFailedEvent {
	return &TransactionFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransactionFailed", "PaymentTransaction", t.ID),
		TransactionID:   t.ID,
		ScheduleID:      t.ScheduleID,
		EntityID:        t.EntityID,
		TransactionType: t.TransactionType,
		Amount:          t.Amount,
		Reference:       t.Reference,
		FailureReason:   t.FailureReason,
	}
}
