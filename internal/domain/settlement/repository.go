package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ScheduleFilter defines filtering options for schedule queries
type ScheduleFilter struct {
	shared.Filter
	EntityID     *uuid.UUID
	EntityType   *EntityType
	ScheduleType *ScheduleType
	Status       *ScheduleStatus
	AlertsOnly   bool // Only schedules with alerts enabled

	// DueAfter and DueBefore bound next_due_date as a half-open
	// interval: DueAfter <= next_due_date < DueBefore.
	DueAfter  *time.Time
	DueBefore *time.Time
}

// ScheduleRepository defines the interface for schedule persistence
type ScheduleRepository interface {
	// FindByID finds a schedule by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// FindAll finds schedules matching the filter, ordered by next due
	// date ascending
	FindAll(ctx context.Context, filter ScheduleFilter) ([]Schedule, error)

	// Save creates or updates a schedule
	Save(ctx context.Context, schedule *Schedule) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, schedule *Schedule) error

	// Count counts schedules matching the filter
	Count(ctx context.Context, filter ScheduleFilter) (int64, error)

	// SumPendingByType sums pending amounts over non-cancelled schedules
	// of the given type
	SumPendingByType(ctx context.Context, scheduleType ScheduleType) (decimal.Decimal, error)
}

// AlertFilter defines filtering options for alert queries
type AlertFilter struct {
	shared.Filter
	EntityID   *uuid.UUID
	EntityType *EntityType
	Severity   *AlertSeverity
	IsRead     *bool
	IsResolved *bool
}

// AlertRepository defines the interface for alert persistence
type AlertRepository interface {
	// FindByID finds an alert by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)

	// FindAll finds alerts matching the filter, ordered by severity
	// descending then creation time descending
	FindAll(ctx context.Context, filter AlertFilter) ([]Alert, error)

	// FindUnresolved finds the unresolved alert for an entity and alert
	// type pair. Returns (nil, nil) when no such alert exists.
	FindUnresolved(ctx context.Context, entityID uuid.UUID, alertType AlertType) (*Alert, error)

	// FindUnresolvedByEntity finds all unresolved alerts for an entity
	FindUnresolvedByEntity(ctx context.Context, entityID uuid.UUID) ([]Alert, error)

	// Save creates or updates an alert
	Save(ctx context.Context, alert *Alert) error

	// Count counts alerts matching the filter
	Count(ctx context.Context, filter AlertFilter) (int64, error)
}

// TransactionFilter defines filtering options for transaction queries
type TransactionFilter struct {
	shared.Filter
	ScheduleID      *uuid.UUID
	EntityID        *uuid.UUID
	TransactionType *ScheduleType
	Status          *TransactionStatus
	CreatedAfter    *time.Time
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	// FindByID finds a transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentTransaction, error)

	// FindByReference finds a transaction by its unique reference
	FindByReference(ctx context.Context, reference string) (*PaymentTransaction, error)

	// FindAll finds transactions matching the filter, ordered by creation
	// time descending
	FindAll(ctx context.Context, filter TransactionFilter) ([]PaymentTransaction, error)

	// FindInFlightBySchedule finds the non-terminal transaction for a
	// schedule. Returns (nil, nil) when none is in flight.
	FindInFlightBySchedule(ctx context.Context, scheduleID uuid.UUID) (*PaymentTransaction, error)

	// FindCreatedSince finds transactions created at or after the cutoff
	FindCreatedSince(ctx context.Context, cutoff time.Time) ([]PaymentTransaction, error)

	// FindInFlight finds every non-terminal transaction, oldest first
	FindInFlight(ctx context.Context) ([]PaymentTransaction, error)

	// Save creates or updates a transaction
	Save(ctx context.Context, tx *PaymentTransaction) error

	// Count counts transactions matching the filter
	Count(ctx context.Context, filter TransactionFilter) (int64, error)

	// CountByStatus counts transactions in the given status
	CountByStatus(ctx context.Context, status TransactionStatus) (int64, error)
}
