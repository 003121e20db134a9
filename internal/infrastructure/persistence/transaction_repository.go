package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/pharmalink/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// terminalStatuses are the statuses a transaction can never leave
var terminalStatuses = []settlement.TransactionStatus{
	settlement.TransactionStatusCompleted,
	settlement.TransactionStatusFailed,
	settlement.TransactionStatusCancelled,
}

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReference finds a transaction by its unique reference
func (r *GormTransactionRepository) FindByReference(ctx context.Context, reference string) (*settlement.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds transactions matching the filter, newest first
func (r *GormTransactionRepository) FindAll(ctx context.Context, filter settlement.TransactionFilter) ([]settlement.PaymentTransaction, error) {
	var txModels []models.PaymentTransactionModel
	query := r.db.WithContext(ctx).Model(&models.PaymentTransactionModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&txModels).Error; err != nil {
		return nil, err
	}
	transactions := make([]settlement.PaymentTransaction, len(txModels))
	for i, model := range txModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, nil
}

// FindInFlightBySchedule finds the non-terminal transaction for a schedule.
// Returns (nil, nil) when none is in flight.
func (r *GormTransactionRepository) FindInFlightBySchedule(ctx context.Context, scheduleID uuid.UUID) (*settlement.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND status NOT IN ?", scheduleID, terminalStatuses).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCreatedSince finds transactions created at or after the cutoff
func (r *GormTransactionRepository) FindCreatedSince(ctx context.Context, cutoff time.Time) ([]settlement.PaymentTransaction, error) {
	var txModels []models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("created_at >= ?", cutoff).
		Order("created_at DESC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	transactions := make([]settlement.PaymentTransaction, len(txModels))
	for i, model := range txModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, nil
}

// FindInFlight finds every non-terminal transaction, oldest first
func (r *GormTransactionRepository) FindInFlight(ctx context.Context) ([]settlement.PaymentTransaction, error) {
	var txModels []models.PaymentTransactionModel
	if err := r.db.WithContext(ctx).
		Where("status NOT IN ?", terminalStatuses).
		Order("created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	transactions := make([]settlement.PaymentTransaction, len(txModels))
	for i, model := range txModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, nil
}

// Save creates or updates a transaction
func (r *GormTransactionRepository) Save(ctx context.Context, tx *settlement.PaymentTransaction) error {
	model := models.PaymentTransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Save(model).Error
}

// Count counts transactions matching the filter
func (r *GormTransactionRepository) Count(ctx context.Context, filter settlement.TransactionFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PaymentTransactionModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts transactions in the given status
func (r *GormTransactionRepository) CountByStatus(ctx context.Context, status settlement.TransactionStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentTransactionModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options including pagination and ordering
func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter settlement.TransactionFilter) *gorm.DB {
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
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormTransactionRepository) applyFilterWithoutPagination(query *gorm.DB, filter settlement.TransactionFilter) *gorm.DB {
	if filter.ScheduleID != nil {
		query = query.Where("schedule_id = ?", *filter.ScheduleID)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.TransactionType != nil {
		query = query.Where("transaction_type = ?", *filter.TransactionType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	return query
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ settlement.TransactionRepository = (*GormTransactionRepository)(nil)
