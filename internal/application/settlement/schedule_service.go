package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ScheduleService provides application-level schedule operations
type ScheduleService struct {
	scheduleRepo   settlement.ScheduleRepository
	eventPublisher shared.EventPublisher
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	scheduleRepo settlement.ScheduleRepository,
	eventPublisher shared.EventPublisher,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo:   scheduleRepo,
		eventPublisher: eventPublisher,
	}
}

// ScheduleResponse represents a schedule in API responses
type ScheduleResponse struct {
	ID                uuid.UUID                `json:"id"`
	EntityID          uuid.UUID                `json:"entity_id"`
	EntityName        string                   `json:"entity_name"`
	EntityType        string                   `json:"entity_type"`
	ScheduleType      string                   `json:"schedule_type"`
	Frequency         string                   `json:"frequency"`
	NextDueDate       time.Time                `json:"next_due_date"`
	LastProcessedDate *time.Time               `json:"last_processed_date,omitempty"`
	PendingAmount     decimal.Decimal          `json:"pending_amount"`
	TotalAmount       decimal.Decimal          `json:"total_amount"`
	TotalCollected    decimal.Decimal          `json:"total_collected"`
	TotalPaid         decimal.Decimal          `json:"total_paid"`
	Status            string                   `json:"status"`
	AlertSettings     settlement.AlertSettings `json:"alert_settings"`
	PaymentMethod     string                   `json:"payment_method"`
	MinimumAmount     decimal.Decimal          `json:"minimum_amount"`
	AutoProcess       bool                     `json:"auto_process"`
	SuccessfulCount   int                      `json:"successful_transactions"`
	FailedCount       int                      `json:"failed_transactions"`
	AvgProcessingSecs float64                  `json:"average_processing_time"`
	LastFailureReason string                   `json:"last_failure_reason,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
	Version           int                      `json:"version"`
}

func toScheduleResponse(s *settlement.Schedule) *ScheduleResponse {
	return &ScheduleResponse{
		ID:                s.ID,
		EntityID:          s.EntityID,
		EntityName:        s.EntityName,
		EntityType:        s.EntityType.String(),
		ScheduleType:      s.ScheduleType.String(),
		Frequency:         s.Frequency.String(),
		NextDueDate:       s.NextDueDate,
		LastProcessedDate: s.LastProcessedDate,
		PendingAmount:     s.PendingAmount,
		TotalAmount:       s.TotalAmount,
		TotalCollected:    s.TotalCollected,
		TotalPaid:         s.TotalPaid,
		Status:            s.Status.String(),
		AlertSettings:     s.AlertSettings,
		PaymentMethod:     s.PaymentMethod.String(),
		MinimumAmount:     s.MinimumAmount,
		AutoProcess:       s.AutoProcess,
		SuccessfulCount:   s.SuccessfulCount,
		FailedCount:       s.FailedCount,
		AvgProcessingSecs: s.AvgProcessingSecs,
		LastFailureReason: s.LastFailureReason,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		Version:           s.GetVersion(),
	}
}

// CreateScheduleRequest carries the fields needed to create a schedule
type CreateScheduleRequest struct {
	EntityID      uuid.UUID                 `json:"entity_id" binding:"required"`
	EntityName    string                    `json:"entity_name" binding:"required"`
	EntityType    string                    `json:"entity_type" binding:"required,oneof=PHARMACY VENDOR DOCTOR"`
	ScheduleType  string                    `json:"schedule_type" binding:"required,oneof=COLLECTION PAYOUT"`
	Frequency     string                    `json:"frequency" binding:"required,oneof=WEEKLY BIWEEKLY MONTHLY"`
	NextDueDate   time.Time                 `json:"next_due_date" binding:"required"`
	PendingAmount decimal.Decimal           `json:"pending_amount"`
	MinimumAmount decimal.Decimal           `json:"minimum_amount"`
	PaymentMethod string                    `json:"payment_method" binding:"required,oneof=BANK_TRANSFER UPI WALLET CHEQUE"`
	AlertSettings *settlement.AlertSettings `json:"alert_settings"`
	AutoProcess   bool                      `json:"auto_process"`
}

// UpdateScheduleRequest carries the mutable fields of a schedule. Nil
// fields are left untouched.
type UpdateScheduleRequest struct {
	EntityName    *string                   `json:"entity_name"`
	Frequency     *string                   `json:"frequency" binding:"omitempty,oneof=WEEKLY BIWEEKLY MONTHLY"`
	PaymentMethod *string                   `json:"payment_method" binding:"omitempty,oneof=BANK_TRANSFER UPI WALLET CHEQUE"`
	MinimumAmount *decimal.Decimal          `json:"minimum_amount"`
	AlertSettings *settlement.AlertSettings `json:"alert_settings"`
	AutoProcess   *bool                     `json:"auto_process"`
	Status        *string                   `json:"status" binding:"omitempty,oneof=ACTIVE PAUSED CANCELLED"`
}

// ScheduleListFilter defines filtering options for schedule list queries
type ScheduleListFilter struct {
	EntityID     *uuid.UUID `form:"entity_id"`
	EntityType   string     `form:"entity_type"`
	ScheduleType string     `form:"schedule_type"`
	Status       string     `form:"status"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
}

// CreateSchedule creates a new settlement schedule
func (s *ScheduleService) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*ScheduleResponse, error) {
	settings := settlement.DefaultAlertSettings()
	if req.AlertSettings != nil {
		settings = *req.AlertSettings
	}

	schedule, err := settlement.NewSchedule(
		req.EntityID,
		req.EntityName,
		settlement.EntityType(req.EntityType),
		settlement.ScheduleType(req.ScheduleType),
		settlement.Frequency(req.Frequency),
		req.NextDueDate,
		req.PendingAmount,
		req.MinimumAmount,
		settlement.PaymentMethod(req.PaymentMethod),
		settings,
		req.AutoProcess,
	)
	if err != nil {
		return nil, err
	}

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, schedule)

	return toScheduleResponse(schedule), nil
}

// GetSchedule gets a schedule by ID
func (s *ScheduleService) GetSchedule(ctx context.Context, id uuid.UUID) (*ScheduleResponse, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toScheduleResponse(schedule), nil
}

// ListSchedules lists schedules with filtering, ordered by next due date
func (s *ScheduleService) ListSchedules(ctx context.Context, filter ScheduleListFilter) ([]ScheduleResponse, int64, error) {
	domainFilter := settlement.ScheduleFilter{
		EntityID: filter.EntityID,
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
	if filter.ScheduleType != "" {
		scheduleType := settlement.ScheduleType(filter.ScheduleType)
		if !scheduleType.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid schedule type filter")
		}
		domainFilter.ScheduleType = &scheduleType
	}
	if filter.Status != "" {
		status := settlement.ScheduleStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid status filter")
		}
		domainFilter.Status = &status
	}

	schedules, err := s.scheduleRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.scheduleRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		responses[i] = *toScheduleResponse(&schedules[i])
	}

	return responses, total, nil
}

// UpdateSchedule applies a partial update to a schedule
func (s *ScheduleService) UpdateSchedule(ctx context.Context, id uuid.UUID, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.EntityName != nil {
		if *req.EntityName == "" {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Entity name cannot be empty")
		}
		schedule.EntityName = *req.EntityName
	}
	if req.Frequency != nil {
		frequency := settlement.Frequency(*req.Frequency)
		if !frequency.IsValid() {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid frequency")
		}
		schedule.Frequency = frequency
	}
	if req.PaymentMethod != nil {
		method := settlement.PaymentMethod(*req.PaymentMethod)
		if !method.IsValid() {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid payment method")
		}
		schedule.PaymentMethod = method
	}
	if req.MinimumAmount != nil {
		if req.MinimumAmount.IsNegative() {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Minimum amount cannot be negative")
		}
		schedule.MinimumAmount = *req.MinimumAmount
	}
	if req.AlertSettings != nil {
		if req.AlertSettings.AlertDaysBefore < 0 || req.AlertSettings.EscalationDays < 0 {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Alert settings cannot contain negative day counts")
		}
		schedule.AlertSettings = *req.AlertSettings
	}
	if req.AutoProcess != nil {
		schedule.AutoProcess = *req.AutoProcess
	}
	statusChanged := false
	if req.Status != nil {
		if err := s.applyStatusChange(schedule, settlement.ScheduleStatus(*req.Status)); err != nil {
			return nil, err
		}
		statusChanged = true
	}

	// Pause/Resume/Cancel already bump the version; the optimistic lock
	// expects exactly one bump per save.
	if !statusChanged {
		schedule.UpdatedAt = time.Now().UTC()
		schedule.IncrementVersion()
	}

	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, schedule)

	return toScheduleResponse(schedule), nil
}

// Accrue adds newly earned commission to a schedule's pending amount
func (s *ScheduleService) Accrue(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*ScheduleResponse, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := schedule.Accrue(amount); err != nil {
		return nil, err
	}

	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		return nil, err
	}

	return toScheduleResponse(schedule), nil
}

func (s *ScheduleService) applyStatusChange(schedule *settlement.Schedule, target settlement.ScheduleStatus) error {
	switch target {
	case settlement.ScheduleStatusActive:
		return schedule.Resume()
	case settlement.ScheduleStatusPaused:
		return schedule.Pause()
	case settlement.ScheduleStatusCancelled:
		return schedule.Cancel()
	default:
		return shared.NewDomainError("VALIDATION_ERROR", "Status can only be set to ACTIVE, PAUSED or CANCELLED")
	}
}

func (s *ScheduleService) publishDomainEvents(ctx context.Context, schedule *settlement.Schedule) {
	if s.eventPublisher == nil {
		return
	}
	events := schedule.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	schedule.ClearDomainEvents()
}
