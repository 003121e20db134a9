package settlement

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AlertType classifies what a settlement alert is about
type AlertType string

const (
	AlertTypeCollectionDue     AlertType = "COLLECTION_DUE"
	AlertTypeCollectionOverdue AlertType = "COLLECTION_OVERDUE"
	AlertTypePayoutDue         AlertType = "PAYOUT_DUE"
	AlertTypePayoutOverdue     AlertType = "PAYOUT_OVERDUE"
	AlertTypeAmountThreshold   AlertType = "AMOUNT_THRESHOLD"
)

// IsValid checks if the alert type is valid
func (t AlertType) IsValid() bool {
	switch t {
	case AlertTypeCollectionDue, AlertTypeCollectionOverdue,
		AlertTypePayoutDue, AlertTypePayoutOverdue, AlertTypeAmountThreshold:
		return true
	}
	return false
}

// String returns the string representation of AlertType
func (t AlertType) String() string {
	return string(t)
}

// DueAlertType returns the due-soon alert type for a schedule type
func DueAlertType(st ScheduleType) AlertType {
	if st == ScheduleTypePayout {
		return AlertTypePayoutDue
	}
	return AlertTypeCollectionDue
}

// OverdueAlertType returns the overdue alert type for a schedule type
func OverdueAlertType(st ScheduleType) AlertType {
	if st == ScheduleTypePayout {
		return AlertTypePayoutOverdue
	}
	return AlertTypeCollectionOverdue
}

// AlertSeverity ranks how urgent an alert is
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// IsValid checks if the severity is valid
func (s AlertSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// String returns the string representation of AlertSeverity
func (s AlertSeverity) String() string {
	return string(s)
}

// Rank returns a comparable weight, higher meaning more urgent
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// AlertMetadata carries free-form context about an alert, stored as JSONB
type AlertMetadata map[string]any

// Value implements driver.Valuer interface for GORM to store as JSONB
func (m AlertMetadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (m *AlertMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = AlertMetadata{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan AlertMetadata: unsupported type")
	}

	if len(bytes) == 0 {
		*m = AlertMetadata{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Alert is a derived, time-sensitive notice about one schedule. At most one
// unresolved alert exists per (entity, alert type) pair; re-evaluation
// refreshes the existing alert instead of raising a duplicate.
type Alert struct {
	shared.BaseAggregateRoot
	ScheduleID  uuid.UUID       `json:"schedule_id"`
	EntityID    uuid.UUID       `json:"entity_id"`
	EntityName  string          `json:"entity_name"`
	EntityType  EntityType      `json:"entity_type"`
	AlertType   AlertType       `json:"alert_type"`
	Severity    AlertSeverity   `json:"severity"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	DaysPastDue int             `json:"days_past_due"`
	Message     string          `json:"message"`
	IsRead      bool            `json:"is_read"`
	IsResolved  bool            `json:"is_resolved"`
	ResolvedAt  *time.Time      `json:"resolved_at"`
	Metadata    AlertMetadata   `json:"metadata"`
}

// NewAlert raises a new alert for a schedule
func NewAlert(
	s *Schedule,
	alertType AlertType,
	severity AlertSeverity,
	amount decimal.Decimal,
	dueDate time.Time,
	daysPastDue int,
	message string,
) (*Alert, error) {
	if !alertType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Alert type is not valid")
	}
	if !severity.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Alert severity is not valid")
	}
	if daysPastDue < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Days past due cannot be negative")
	}

	a := &Alert{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ScheduleID:        s.ID,
		EntityID:          s.EntityID,
		EntityName:        s.EntityName,
		EntityType:        s.EntityType,
		AlertType:         alertType,
		Severity:          severity,
		Amount:            amount,
		DueDate:           dueDate.UTC(),
		DaysPastDue:       daysPastDue,
		Message:           message,
		Metadata: AlertMetadata{
			"schedule_type":  s.ScheduleType.String(),
			"payment_method": s.PaymentMethod.String(),
		},
	}

	a.AddDomainEvent(NewAlertRaisedEvent(a))

	return a, nil
}

// Refresh updates an unresolved alert with the latest evaluation result.
// Raises an escalation event when the severity increases.
func (a *Alert) Refresh(severity AlertSeverity, amount decimal.Decimal, dueDate time.Time, daysPastDue int, message string) error {
	if a.IsResolved {
		return shared.NewDomainError("INVALID_STATE", "Cannot refresh a resolved alert")
	}
	if !severity.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", "Alert severity is not valid")
	}

	escalated := severity.Rank() > a.Severity.Rank()
	previous := a.Severity

	a.Severity = severity
	a.Amount = amount
	a.DueDate = dueDate.UTC()
	a.DaysPastDue = daysPastDue
	a.Message = message
	a.UpdatedAt = time.Now().UTC()
	a.IncrementVersion()

	if escalated {
		a.AddDomainEvent(NewAlertEscalatedEvent(a, previous))
	}

	return nil
}

// MarkRead marks the alert as read by an operator
func (a *Alert) MarkRead() {
	if a.IsRead {
		return
	}
	a.IsRead = true
	a.UpdatedAt = time.Now().UTC()
	a.IncrementVersion()
}

// Resolve marks the alert as resolved, either by an operator or because
// the underlying obligation was settled
func (a *Alert) Resolve(at time.Time) error {
	if a.IsResolved {
		return shared.NewDomainError("INVALID_STATE", "Alert is already resolved")
	}

	resolved := at.UTC()
	a.IsResolved = true
	a.ResolvedAt = &resolved
	a.UpdatedAt = time.Now().UTC()
	a.IncrementVersion()
	a.AddDomainEvent(NewAlertResolvedEvent(a))

	return nil
}
