package settlement

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ScheduleStatus represents the status of a settlement schedule
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "ACTIVE"
	ScheduleStatusPaused    ScheduleStatus = "PAUSED"
	ScheduleStatusOverdue   ScheduleStatus = "OVERDUE"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED" // Terminal
)

// IsValid checks if the status is a valid ScheduleStatus
func (s ScheduleStatus) IsValid() bool {
	switch s {
	case ScheduleStatusActive, ScheduleStatusPaused, ScheduleStatusOverdue, ScheduleStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ScheduleStatus
func (s ScheduleStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the schedule is in a terminal state
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusCancelled
}

// AlertSettings holds the per-schedule alerting preferences.
// This is a value object within the Schedule aggregate, stored as JSONB.
type AlertSettings struct {
	EnableAlerts        bool `json:"enable_alerts"`
	AlertDaysBefore     int  `json:"alert_days_before"`
	EnableOverdueAlerts bool `json:"enable_overdue_alerts"`
	EscalationDays      int  `json:"escalation_days"`
}

// DefaultAlertSettings returns alert settings suitable for a new schedule
func DefaultAlertSettings() AlertSettings {
	return AlertSettings{
		EnableAlerts:        true,
		AlertDaysBefore:     3,
		EnableOverdueAlerts: true,
		EscalationDays:      3,
	}
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (s AlertSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (s *AlertSettings) Scan(value interface{}) error {
	if value == nil {
		*s = AlertSettings{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan AlertSettings: unsupported type")
	}

	if len(bytes) == 0 {
		*s = AlertSettings{}
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// Schedule represents a recurring obligation to collect commission from a
// pharmacy/vendor or pay out referral commission to a doctor.
// It is the aggregate root of the settlement context.
type Schedule struct {
	shared.BaseAggregateRoot
	EntityID          uuid.UUID       `json:"entity_id"`
	EntityName        string          `json:"entity_name"`
	EntityType        EntityType      `json:"entity_type"`
	ScheduleType      ScheduleType    `json:"schedule_type"`
	Frequency         Frequency       `json:"frequency"`
	NextDueDate       time.Time       `json:"next_due_date"`
	LastProcessedDate *time.Time      `json:"last_processed_date"`
	PendingAmount     decimal.Decimal `json:"pending_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"` // Lifetime accrued
	TotalCollected    decimal.Decimal `json:"total_collected"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	Status            ScheduleStatus  `json:"status"`
	AlertSettings     AlertSettings   `json:"alert_settings"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	MinimumAmount     decimal.Decimal `json:"minimum_amount"`
	AutoProcess       bool            `json:"auto_process"`
	SuccessfulCount   int             `json:"successful_transactions"`
	FailedCount       int             `json:"failed_transactions"`
	AvgProcessingSecs float64         `json:"average_processing_time"`
	LastFailureReason string          `json:"last_failure_reason"`
	// InFlightTransactionID is set while a transaction is resolving this
	// schedule's pending amount. At most one may be in flight at a time.
	InFlightTransactionID *uuid.UUID `json:"in_flight_transaction_id"`
	CancelledAt           *time.Time `json:"cancelled_at"`
}

// NewSchedule creates a new settlement schedule
func NewSchedule(
	entityID uuid.UUID,
	entityName string,
	entityType EntityType,
	scheduleType ScheduleType,
	frequency Frequency,
	nextDueDate time.Time,
	pendingAmount decimal.Decimal,
	minimumAmount decimal.Decimal,
	paymentMethod PaymentMethod,
	alertSettings AlertSettings,
	autoProcess bool,
) (*Schedule, error) {
	if entityID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Entity ID cannot be empty")
	}
	if entityName == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Entity name cannot be empty")
	}
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Entity type %q is not valid", entityType))
	}
	if !scheduleType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Schedule type %q is not valid", scheduleType))
	}
	if scheduleType == ScheduleTypePayout && entityType != EntityTypeDoctor {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payout schedules settle with doctors only")
	}
	if scheduleType == ScheduleTypeCollection && entityType == EntityTypeDoctor {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Collection schedules settle with pharmacies or vendors")
	}
	if !frequency.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Frequency %q is not valid", frequency))
	}
	if !paymentMethod.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Payment method %q is not valid", paymentMethod))
	}
	if nextDueDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Next due date is required")
	}
	if pendingAmount.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Pending amount cannot be negative")
	}
	if minimumAmount.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Minimum amount cannot be negative")
	}
	if alertSettings.AlertDaysBefore < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Alert days before cannot be negative")
	}
	if alertSettings.EscalationDays < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Escalation days cannot be negative")
	}

	s := &Schedule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		EntityID:          entityID,
		EntityName:        entityName,
		EntityType:        entityType,
		ScheduleType:      scheduleType,
		Frequency:         frequency,
		NextDueDate:       nextDueDate.UTC(),
		PendingAmount:     pendingAmount,
		TotalAmount:       pendingAmount,
		TotalCollected:    decimal.Zero,
		TotalPaid:         decimal.Zero,
		Status:            ScheduleStatusActive,
		AlertSettings:     alertSettings,
		PaymentMethod:     paymentMethod,
		MinimumAmount:     minimumAmount,
		AutoProcess:       autoProcess,
	}

	s.AddDomainEvent(NewScheduleCreatedEvent(s))

	return s, nil
}

// Accrue adds newly earned commission to the schedule's pending and
// lifetime totals
func (s *Schedule) Accrue(amount decimal.Decimal) error {
	if s.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot accrue on a cancelled schedule")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Accrual amount must be positive")
	}

	s.PendingAmount = s.PendingAmount.Add(amount)
	s.TotalAmount = s.TotalAmount.Add(amount)
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()

	return nil
}

// Pause pauses the schedule. Alerts and automatic processing stop until
// the schedule is resumed.
func (s *Schedule) Pause() error {
	if s.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot pause a cancelled schedule")
	}
	if s.Status == ScheduleStatusPaused {
		return shared.NewDomainError("INVALID_STATE", "Schedule is already paused")
	}

	previous := s.Status
	s.Status = ScheduleStatusPaused
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	s.AddDomainEvent(NewScheduleStatusChangedEvent(s, previous))

	return nil
}

// Resume returns a paused schedule to active
func (s *Schedule) Resume() error {
	if s.Status != ScheduleStatusPaused {
		return shared.NewDomainError("INVALID_STATE", "Only paused schedules can be resumed")
	}

	previous := s.Status
	s.Status = ScheduleStatusActive
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	s.AddDomainEvent(NewScheduleStatusChangedEvent(s, previous))

	return nil
}

// Cancel cancels the schedule. Cancellation is terminal; an in-flight
// transaction still runs to completion but no new settlement can start.
func (s *Schedule) Cancel() error {
	if s.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Schedule is already cancelled")
	}

	previous := s.Status
	now := time.Now().UTC()
	s.Status = ScheduleStatusCancelled
	s.CancelledAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	s.AddDomainEvent(NewScheduleStatusChangedEvent(s, previous))

	return nil
}

// MarkOverdue flags an active schedule whose due date has passed and which
// has no transaction currently resolving it
func (s *Schedule) MarkOverdue(now time.Time) error {
	if s.Status != ScheduleStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only active schedules can become overdue")
	}
	if !s.IsPastDue(now) {
		return shared.NewDomainError("INVALID_STATE", "Schedule is not past its due date")
	}
	if s.HasInFlight() {
		return shared.NewDomainError("INVALID_STATE", "A transaction is already resolving this schedule")
	}

	previous := s.Status
	s.Status = ScheduleStatusOverdue
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	s.AddDomainEvent(NewScheduleStatusChangedEvent(s, previous))

	return nil
}

// BeginSettlement reserves the schedule for the given transaction.
// It enforces the at-most-one-in-flight invariant.
func (s *Schedule) BeginSettlement(transactionID uuid.UUID) error {
	if s.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot process a cancelled schedule")
	}
	if s.HasInFlight() {
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "A transaction is already in flight for this schedule")
	}
	if s.PendingAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_STATE", "Schedule has no pending amount to process")
	}
	if transactionID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Transaction ID cannot be empty")
	}

	s.InFlightTransactionID = &transactionID
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()

	return nil
}

// CompleteSettlement records a successful settlement of the given amount.
// The pending amount is cleared, lifetime totals and counters advance, and
// the next due date moves forward by one frequency period.
func (s *Schedule) CompleteSettlement(amount decimal.Decimal, processedAt time.Time, processingTime time.Duration) error {
	if !s.HasInFlight() {
		return shared.NewDomainError("INVALID_STATE", "No transaction is in flight for this schedule")
	}

	if s.ScheduleType == ScheduleTypeCollection {
		s.TotalCollected = s.TotalCollected.Add(amount)
	} else {
		s.TotalPaid = s.TotalPaid.Add(amount)
	}

	processed := processedAt.UTC()
	s.PendingAmount = decimal.Zero
	s.LastProcessedDate = &processed
	s.SuccessfulCount++
	s.AvgProcessingSecs = runningMean(s.AvgProcessingSecs, s.SuccessfulCount, processingTime.Seconds())
	s.LastFailureReason = ""
	s.NextDueDate = s.Frequency.Next(s.NextDueDate)
	s.InFlightTransactionID = nil
	if !s.Status.IsTerminal() && s.Status != ScheduleStatusPaused {
		previous := s.Status
		s.Status = ScheduleStatusActive
		if previous != ScheduleStatusActive {
			s.AddDomainEvent(NewScheduleStatusChangedEvent(s, previous))
		}
	}
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	s.AddDomainEvent(NewScheduleSettledEvent(s, amount))

	return nil
}

// FailSettlement records a failed settlement attempt. The pending amount is
// untouched and the schedule is treated as overdue until a later attempt
// succeeds.
func (s *Schedule) FailSettlement(reason string) error {
	if !s.HasInFlight() {
		return shared.NewDomainError("INVALID_STATE", "No transaction is in flight for this schedule")
	}

	s.FailedCount++
	s.LastFailureReason = reason
	s.InFlightTransactionID = nil
	if s.Status == ScheduleStatusActive {
		previous := s.Status
		s.Status = ScheduleStatusOverdue
		s.AddDomainEvent(NewScheduleStatusChangedEvent(s, previous))
	}
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
	s.AddDomainEvent(NewScheduleSettlementFailedEvent(s, reason))

	return nil
}

// ReleaseSettlement clears the in-flight marker without touching amounts.
// Used when a transaction reaches a terminal state through cancellation.
func (s *Schedule) ReleaseSettlement() {
	s.InFlightTransactionID = nil
	s.UpdatedAt = time.Now().UTC()
	s.IncrementVersion()
}

// Helper methods

// HasInFlight returns true while a transaction is resolving this schedule
func (s *Schedule) HasInFlight() bool {
	return s.InFlightTransactionID != nil
}

// IsPastDue returns true if the next due date is before now
func (s *Schedule) IsPastDue(now time.Time) bool {
	return s.NextDueDate.Before(now)
}

// DaysUntilDue returns the number of whole days until the next due date
// (negative when past due)
func (s *Schedule) DaysUntilDue(now time.Time) int {
	return int(s.NextDueDate.Sub(now).Hours() / 24)
}

// DaysPastDue returns the number of whole days the schedule is past due
// (0 when not past due)
func (s *Schedule) DaysPastDue(now time.Time) int {
	if !s.IsPastDue(now) {
		return 0
	}
	return int(now.Sub(s.NextDueDate).Hours() / 24)
}

// AlertsEnabled returns true if the schedule participates in alert
// evaluation
func (s *Schedule) AlertsEnabled() bool {
	return s.AlertSettings.EnableAlerts && !s.Status.IsTerminal() && s.Status != ScheduleStatusPaused
}

// runningMean folds the n-th observation into a running mean
func runningMean(mean float64, n int, observation float64) float64 {
	if n <= 1 {
		return observation
	}
	return mean + (observation-mean)/float64(n)
}
