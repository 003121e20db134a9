package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/pharmalink/settlement/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormScheduleRepository implements ScheduleRepository using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// FindByID finds a schedule by its ID
func (r *GormScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Schedule, error) {
	var model models.ScheduleModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds schedules matching the filter, soonest due first
func (r *GormScheduleRepository) FindAll(ctx context.Context, filter settlement.ScheduleFilter) ([]settlement.Schedule, error) {
	var scheduleModels []models.ScheduleModel
	query := r.db.WithContext(ctx).Model(&models.ScheduleModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&scheduleModels).Error; err != nil {
		return nil, err
	}
	schedules := make([]settlement.Schedule, len(scheduleModels))
	for i, model := range scheduleModels {
		schedules[i] = *model.ToDomain()
	}
	return schedules, nil
}

// Save creates or updates a schedule
func (r *GormScheduleRepository) Save(ctx context.Context, schedule *settlement.Schedule) error {
	model := models.ScheduleModelFromDomain(schedule)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. Select("*") forces every
// column into the UPDATE; a struct update would skip zero values and
// never clear in_flight_transaction_id or last_failure_reason.
func (r *GormScheduleRepository) SaveWithLock(ctx context.Context, schedule *settlement.Schedule) error {
	model := models.ScheduleModelFromDomain(schedule)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Where("id = ? AND version = ?", schedule.ID, schedule.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "The schedule has been modified by another transaction")
	}
	return nil
}

// Count counts schedules matching the filter
func (r *GormScheduleRepository) Count(ctx context.Context, filter settlement.ScheduleFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ScheduleModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumPendingByType sums pending amounts over non-cancelled schedules of the
// given type
func (r *GormScheduleRepository) SumPendingByType(ctx context.Context, scheduleType settlement.ScheduleType) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ScheduleModel{}).
		Select("COALESCE(SUM(pending_amount), 0) as total").
		Where("schedule_type = ? AND status <> ?", scheduleType, settlement.ScheduleStatusCancelled).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// applyFilter applies filter options including pagination and ordering
func (r *GormScheduleRepository) applyFilter(query *gorm.DB, filter settlement.ScheduleFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("next_due_date ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormScheduleRepository) applyFilterWithoutPagination(query *gorm.DB, filter settlement.ScheduleFilter) *gorm.DB {
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.ScheduleType != nil {
		query = query.Where("schedule_type = ?", *filter.ScheduleType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AlertsOnly {
		query = query.Where("status NOT IN ?",
			[]settlement.ScheduleStatus{settlement.ScheduleStatusPaused, settlement.ScheduleStatusCancelled})
	}
	if filter.DueAfter != nil {
		query = query.Where("next_due_date >= ?", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query = query.Where("next_due_date < ?", *filter.DueBefore)
	}
	return query
}

// Ensure GormScheduleRepository implements ScheduleRepository
var _ settlement.ScheduleRepository = (*GormScheduleRepository)(nil)
