package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/pharmalink/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// severityOrder ranks severities in SQL so that ordering by urgency works
// on both postgres and sqlite
const severityOrder = "CASE severity " +
	"WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC"

// GormAlertRepository implements AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindByID finds an alert by its ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds alerts matching the filter, most urgent first
func (r *GormAlertRepository) FindAll(ctx context.Context, filter settlement.AlertFilter) ([]settlement.Alert, error) {
	var alertModels []models.AlertModel
	query := r.db.WithContext(ctx).Model(&models.AlertModel{})
	query = r.applyFilter(query, filter)

	if err := query.Find(&alertModels).Error; err != nil {
		return nil, err
	}
	alerts := make([]settlement.Alert, len(alertModels))
	for i, model := range alertModels {
		alerts[i] = *model.ToDomain()
	}
	return alerts, nil
}

// FindUnresolved finds the unresolved alert for an (entity, alert type)
// pair. Returns (nil, nil) when no such alert exists.
func (r *GormAlertRepository) FindUnresolved(ctx context.Context, entityID uuid.UUID, alertType settlement.AlertType) (*settlement.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ? AND alert_type = ? AND is_resolved = ?", entityID, alertType, false).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnresolvedByEntity finds all unresolved alerts for an entity
func (r *GormAlertRepository) FindUnresolvedByEntity(ctx context.Context, entityID uuid.UUID) ([]settlement.Alert, error) {
	var alertModels []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ? AND is_resolved = ?", entityID, false).
		Order(severityOrder).
		Find(&alertModels).Error; err != nil {
		return nil, err
	}
	alerts := make([]settlement.Alert, len(alertModels))
	for i, model := range alertModels {
		alerts[i] = *model.ToDomain()
	}
	return alerts, nil
}

// Save creates or updates an alert
func (r *GormAlertRepository) Save(ctx context.Context, alert *settlement.Alert) error {
	model := models.AlertModelFromDomain(alert)
	return r.db.WithContext(ctx).Save(model).Error
}

// Count counts alerts matching the filter
func (r *GormAlertRepository) Count(ctx context.Context, filter settlement.AlertFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AlertModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options including pagination and ordering
func (r *GormAlertRepository) applyFilter(query *gorm.DB, filter settlement.AlertFilter) *gorm.DB {
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
		query = query.Order(severityOrder).Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormAlertRepository) applyFilterWithoutPagination(query *gorm.DB, filter settlement.AlertFilter) *gorm.DB {
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.IsRead != nil {
		query = query.Where("is_read = ?", *filter.IsRead)
	}
	if filter.IsResolved != nil {
		query = query.Where("is_resolved = ?", *filter.IsResolved)
	}
	return query
}

// Ensure GormAlertRepository implements AlertRepository
var _ settlement.AlertRepository = (*GormAlertRepository)(nil)
