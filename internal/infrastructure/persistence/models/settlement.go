package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/shopspring/decimal"
)

// ScheduleModel is the persistence model for the Schedule aggregate root.
type ScheduleModel struct {
	AggregateModel
	EntityID              uuid.UUID                     `gorm:"type:uuid;not null;index"`
	EntityName            string                        `gorm:"type:varchar(200);not null"`
	EntityType            settlement.EntityType         `gorm:"type:varchar(20);not null;index"`
	ScheduleType          settlement.ScheduleType       `gorm:"type:varchar(20);not null;index"`
	Frequency             settlement.Frequency          `gorm:"type:varchar(20);not null"`
	NextDueDate           time.Time                     `gorm:"not null;index"`
	LastProcessedDate     *time.Time
	PendingAmount         decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	TotalAmount           decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	TotalCollected        decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	TotalPaid             decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	Status                settlement.ScheduleStatus     `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	AlertSettings         settlement.AlertSettings      `gorm:"type:jsonb;default:'{}'"`
	PaymentMethod         settlement.PaymentMethod      `gorm:"type:varchar(30);not null"`
	MinimumAmount         decimal.Decimal               `gorm:"type:decimal(18,4);not null"`
	AutoProcess           bool                          `gorm:"not null;default:false"`
	SuccessfulCount       int                           `gorm:"not null;default:0"`
	FailedCount           int                           `gorm:"not null;default:0"`
	AvgProcessingSecs     float64                       `gorm:"not null;default:0"`
	LastFailureReason     string                        `gorm:"type:varchar(500)"`
	InFlightTransactionID *uuid.UUID                    `gorm:"type:uuid;index"`
	CancelledAt           *time.Time
}

// TableName returns the table name for GORM
func (ScheduleModel) TableName() string {
	return "settlement_schedules"
}

// ToDomain converts the persistence model to a domain Schedule
func (m *ScheduleModel) ToDomain() *settlement.Schedule {
	return &settlement.Schedule{
		BaseAggregateRoot:     m.toDomainAggregateRoot(),
		EntityID:              m.EntityID,
		EntityName:            m.EntityName,
		EntityType:            m.EntityType,
		ScheduleType:          m.ScheduleType,
		Frequency:             m.Frequency,
		NextDueDate:           m.NextDueDate,
		LastProcessedDate:     m.LastProcessedDate,
		PendingAmount:         m.PendingAmount,
		TotalAmount:           m.TotalAmount,
		TotalCollected:        m.TotalCollected,
		TotalPaid:             m.TotalPaid,
		Status:                m.Status,
		AlertSettings:         m.AlertSettings,
		PaymentMethod:         m.PaymentMethod,
		MinimumAmount:         m.MinimumAmount,
		AutoProcess:           m.AutoProcess,
		SuccessfulCount:       m.SuccessfulCount,
		FailedCount:           m.FailedCount,
		AvgProcessingSecs:     m.AvgProcessingSecs,
		LastFailureReason:     m.LastFailureReason,
		InFlightTransactionID: m.InFlightTransactionID,
		CancelledAt:           m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain Schedule
func (m *ScheduleModel) FromDomain(s *settlement.Schedule) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.EntityID = s.EntityID
	m.EntityName = s.EntityName
	m.EntityType = s.EntityType
	m.ScheduleType = s.ScheduleType
	m.Frequency = s.Frequency
	m.NextDueDate = s.NextDueDate
	m.LastProcessedDate = s.LastProcessedDate
	m.PendingAmount = s.PendingAmount
	m.TotalAmount = s.TotalAmount
	m.TotalCollected = s.TotalCollected
	m.TotalPaid = s.TotalPaid
	m.Status = s.Status
	m.AlertSettings = s.AlertSettings
	m.PaymentMethod = s.PaymentMethod
	m.MinimumAmount = s.MinimumAmount
	m.AutoProcess = s.AutoProcess
	m.SuccessfulCount = s.SuccessfulCount
	m.FailedCount = s.FailedCount
	m.AvgProcessingSecs = s.AvgProcessingSecs
	m.LastFailureReason = s.LastFailureReason
	m.InFlightTransactionID = s.InFlightTransactionID
	m.CancelledAt = s.CancelledAt
}

// ScheduleModelFromDomain creates a new persistence model from a domain Schedule
func ScheduleModelFromDomain(s *settlement.Schedule) *ScheduleModel {
	m := &ScheduleModel{}
	m.FromDomain(s)
	return m
}

// AlertModel is the persistence model for the Alert aggregate root.
type AlertModel struct {
	AggregateModel
	ScheduleID  uuid.UUID                `gorm:"type:uuid;not null;index"`
	EntityID    uuid.UUID                `gorm:"type:uuid;not null;index:idx_alert_entity_type,priority:1"`
	EntityName  string                   `gorm:"type:varchar(200);not null"`
	EntityType  settlement.EntityType    `gorm:"type:varchar(20);not null"`
	AlertType   settlement.AlertType     `gorm:"type:varchar(30);not null;index:idx_alert_entity_type,priority:2"`
	Severity    settlement.AlertSeverity `gorm:"type:varchar(20);not null;index"`
	Amount      decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	DueDate     time.Time                `gorm:"not null"`
	DaysPastDue int                      `gorm:"not null;default:0"`
	Message     string                   `gorm:"type:varchar(500);not null"`
	IsRead      bool                     `gorm:"not null;default:false;index"`
	IsResolved  bool                     `gorm:"not null;default:false;index"`
	ResolvedAt  *time.Time
	Metadata    settlement.AlertMetadata `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "settlement_alerts"
}

// ToDomain converts the persistence model to a domain Alert
func (m *AlertModel) ToDomain() *settlement.Alert {
	return &settlement.Alert{
		BaseAggregateRoot: m.toDomainAggregateRoot(),
		ScheduleID:        m.ScheduleID,
		EntityID:          m.EntityID,
		EntityName:        m.EntityName,
		EntityType:        m.EntityType,
		AlertType:         m.AlertType,
		Severity:          m.Severity,
		Amount:            m.Amount,
		DueDate:           m.DueDate,
		DaysPastDue:       m.DaysPastDue,
		Message:           m.Message,
		IsRead:            m.IsRead,
		IsResolved:        m.IsResolved,
		ResolvedAt:        m.ResolvedAt,
		Metadata:          m.Metadata,
	}
}

// FromDomain populates the persistence model from a domain Alert
func (m *AlertModel) FromDomain(a *settlement.Alert) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.ScheduleID = a.ScheduleID
	m.EntityID = a.EntityID
	m.EntityName = a.EntityName
	m.EntityType = a.EntityType
	m.AlertType = a.AlertType
	m.Severity = a.Severity
	m.Amount = a.Amount
	m.DueDate = a.DueDate
	m.DaysPastDue = a.DaysPastDue
	m.Message = a.Message
	m.IsRead = a.IsRead
	m.IsResolved = a.IsResolved
	m.ResolvedAt = a.ResolvedAt
	m.Metadata = a.Metadata
}

// AlertModelFromDomain creates a new persistence model from a domain Alert
func AlertModelFromDomain(a *settlement.Alert) *AlertModel {
	m := &AlertModel{}
	m.FromDomain(a)
	return m
}

// PaymentTransactionModel is the persistence model for the PaymentTransaction
// aggregate root.
type PaymentTransactionModel struct {
	AggregateModel
	ScheduleID      uuid.UUID                    `gorm:"type:uuid;not null;index"`
	EntityID        uuid.UUID                    `gorm:"type:uuid;not null;index"`
	EntityName      string                       `gorm:"type:varchar(200);not null"`
	EntityType      settlement.EntityType        `gorm:"type:varchar(20);not null"`
	TransactionType settlement.ScheduleType      `gorm:"type:varchar(20);not null;index"`
	Amount          decimal.Decimal              `gorm:"type:decimal(18,4);not null"`
	Status          settlement.TransactionStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ScheduledDate   time.Time                    `gorm:"not null"`
	ProcessedDate   *time.Time
	ConfirmedDate   *time.Time
	PaymentMethod   settlement.PaymentMethod     `gorm:"type:varchar(30);not null"`
	Reference       string                       `gorm:"type:varchar(50);not null;uniqueIndex"`
	FailureReason   string                       `gorm:"type:varchar(500)"`
	Notes           string                       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentTransactionModel) TableName() string {
	return "settlement_transactions"
}

// ToDomain converts the persistence model to a domain PaymentTransaction
func (m *PaymentTransactionModel) ToDomain() *settlement.PaymentTransaction {
	return &settlement.PaymentTransaction{
		BaseAggregateRoot: m.toDomainAggregateRoot(),
		ScheduleID:        m.ScheduleID,
		EntityID:          m.EntityID,
		EntityName:        m.EntityName,
		EntityType:        m.EntityType,
		TransactionType:   m.TransactionType,
		Amount:            m.Amount,
		Status:            m.Status,
		ScheduledDate:     m.ScheduledDate,
		ProcessedDate:     m.ProcessedDate,
		ConfirmedDate:     m.ConfirmedDate,
		PaymentMethod:     m.PaymentMethod,
		Reference:         m.Reference,
		FailureReason:     m.FailureReason,
		Notes:             m.Notes,
	}
}

// FromDomain populates the persistence model from a domain PaymentTransaction
func (m *PaymentTransactionModel) FromDomain(t *settlement.PaymentTransaction) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.ScheduleID = t.ScheduleID
	m.EntityID = t.EntityID
	m.EntityName = t.EntityName
	m.EntityType = t.EntityType
	m.TransactionType = t.TransactionType
	m.Amount = t.Amount
	m.Status = t.Status
	m.ScheduledDate = t.ScheduledDate
	m.ProcessedDate = t.ProcessedDate
	m.ConfirmedDate = t.ConfirmedDate
	m.PaymentMethod = t.PaymentMethod
	m.Reference = t.Reference
	m.FailureReason = t.FailureReason
	m.Notes = t.Notes
}

// PaymentTransactionModelFromDomain creates a new persistence model from a
// domain PaymentTransaction
func PaymentTransactionModelFromDomain(t *settlement.PaymentTransaction) *PaymentTransactionModel {
	m := &PaymentTransactionModel{}
	m.FromDomain(t)
	return m
}
