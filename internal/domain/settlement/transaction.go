package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the status of a payment transaction
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusFailed     TransactionStatus = "FAILED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// IsValid checks if the status is a valid TransactionStatus
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing,
		TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the transaction can no longer change
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed || s == TransactionStatusCancelled
}

// PaymentTransaction is one concrete attempt to execute a schedule's
// pending amount. Status only moves forward, terminal states are final; a
// failed attempt requires a new transaction, never a retry of this record.
type PaymentTransaction struct {
	shared.BaseAggregateRoot
	ScheduleID      uuid.UUID         `json:"schedule_id"`
	EntityID        uuid.UUID         `json:"entity_id"`
	EntityName      string            `json:"entity_name"`
	EntityType      EntityType        `json:"entity_type"`
	TransactionType ScheduleType      `json:"transaction_type"`
	Amount          decimal.Decimal   `json:"amount"`
	Status          TransactionStatus `json:"status"`
	ScheduledDate   time.Time         `json:"scheduled_date"`
	ProcessedDate   *time.Time        `json:"processed_date"`
	ConfirmedDate   *time.Time        `json:"confirmed_date"`
	PaymentMethod   PaymentMethod     `json:"payment_method"`
	Reference       string            `json:"reference"`
	FailureReason   string            `json:"failure_reason"`
	Notes           string            `json:"notes"`
}

// NewPaymentTransaction snapshots a schedule's pending amount into a new
// transaction in processing status
func NewPaymentTransaction(s *Schedule, notes string) (*PaymentTransaction, error) {
	if s.PendingAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_STATE", "Transaction amount must be positive")
	}

	base := shared.NewBaseAggregateRoot()
	now := time.Now().UTC()
	tx := &PaymentTransaction{
		BaseAggregateRoot: base,
		ScheduleID:        s.ID,
		EntityID:          s.EntityID,
		EntityName:        s.EntityName,
		EntityType:        s.EntityType,
		TransactionType:   s.ScheduleType,
		Amount:            s.PendingAmount,
		Status:            TransactionStatusProcessing,
		ScheduledDate:     s.NextDueDate,
		ProcessedDate:     &now,
		PaymentMethod:     s.PaymentMethod,
		Reference:         newTransactionReference(s.ScheduleType, base.ID),
		Notes:             notes,
	}

	tx.AddDomainEvent(NewTransactionStartedEvent(tx))

	return tx, nil
}

// Complete marks the transaction as confirmed by the payment rail
func (t *PaymentTransaction) Complete(confirmedAt time.Time) error {
	if t.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete transaction in %s status", t.Status))
	}

	confirmed := confirmedAt.UTC()
	t.Status = TransactionStatusCompleted
	t.ConfirmedDate = &confirmed
	t.UpdatedAt = time.Now().UTC()
	t.IncrementVersion()
	t.AddDomainEvent(NewTransactionCompletedEvent(t))

	return nil
}

// Fail marks the transaction as rejected or timed out. Payment-rail
// rejections are expected events; they are recorded here rather than
// surfaced as errors.
func (t *PaymentTransaction) Fail(reason string) error {
	if t.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail transaction in %s status", t.Status))
	}
	if reason == "" {
		reason = "payment rail rejected the transaction"
	}

	t.Status = TransactionStatusFailed
	t.FailureReason = reason
	t.UpdatedAt = time.Now().UTC()
	t.IncrementVersion()
	t.AddDomainEvent(NewTransactionFailedEvent(t))

	return nil
}

// Cancel marks the transaction as cancelled before confirmation
func (t *PaymentTransaction) Cancel(reason string) error {
	if t.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel transaction in %s status", t.Status))
	}

	t.Status = TransactionStatusCancelled
	t.FailureReason = reason
	t.UpdatedAt = time.Now().UTC()
	t.IncrementVersion()

	return nil
}

// IsInFlight returns true while the transaction has not reached a terminal
// state
func (t *PaymentTransaction) IsInFlight() bool {
	return !t.Status.IsTerminal()
}

// ProcessingTime returns how long the transaction took from processing
// start to confirmation (0 until confirmed)
func (t *PaymentTransaction) ProcessingTime() time.Duration {
	if t.ProcessedDate == nil || t.ConfirmedDate == nil {
		return 0
	}
	return t.ConfirmedDate.Sub(*t.ProcessedDate)
}

// newTransactionReference builds a unique human-readable reference like
// COL-20260831-1A2B3C4D
func newTransactionReference(st ScheduleType, id uuid.UUID) string {
	prefix := "COL"
	if st == ScheduleTypePayout {
		prefix = "PAY"
	}
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("20060102"), short)
}
