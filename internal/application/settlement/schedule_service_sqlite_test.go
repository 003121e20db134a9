package settlement

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/infrastructure/persistence"
	"github.com/pharmalink/settlement/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newSqliteScheduleService(t *testing.T) *ScheduleService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "settlement.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ScheduleModel{}))
	return NewScheduleService(persistence.NewGormScheduleRepository(db), nil)
}

func TestScheduleService_UpdateSchedule_StatusChangeOverGorm(t *testing.T) {
	svc := newSqliteScheduleService(t)
	ctx := context.Background()

	created, err := svc.CreateSchedule(ctx, CreateScheduleRequest{
		EntityID:      uuid.New(),
		EntityName:    "Apollo Pharmacy",
		EntityType:    "PHARMACY",
		ScheduleType:  "COLLECTION",
		Frequency:     "WEEKLY",
		NextDueDate:   time.Now().UTC().Add(72 * time.Hour),
		PendingAmount: decimal.NewFromInt(150),
		MinimumAmount: decimal.NewFromInt(100),
		PaymentMethod: "BANK_TRANSFER",
	})
	require.NoError(t, err)

	// Pausing goes through the aggregate's own version bump; the
	// optimistic lock must still match the stored row.
	paused := "PAUSED"
	updated, err := svc.UpdateSchedule(ctx, created.ID, UpdateScheduleRequest{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, "PAUSED", updated.Status)
	assert.Equal(t, created.Version+1, updated.Version)

	active := "ACTIVE"
	resumed, err := svc.UpdateSchedule(ctx, created.ID, UpdateScheduleRequest{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resumed.Status)
	assert.Equal(t, updated.Version+1, resumed.Version)
}

func TestScheduleService_UpdateSchedule_MixedFieldsAndStatusOverGorm(t *testing.T) {
	svc := newSqliteScheduleService(t)
	ctx := context.Background()

	created, err := svc.CreateSchedule(ctx, CreateScheduleRequest{
		EntityID:      uuid.New(),
		EntityName:    "MediSupply Ltd",
		EntityType:    "VENDOR",
		ScheduleType:  "PAYOUT",
		Frequency:     "MONTHLY",
		NextDueDate:   time.Now().UTC().Add(72 * time.Hour),
		PendingAmount: decimal.NewFromInt(500),
		MinimumAmount: decimal.NewFromInt(100),
		PaymentMethod: "BANK_TRANSFER",
	})
	require.NoError(t, err)

	name := "MediSupply Limited"
	paused := "PAUSED"
	updated, err := svc.UpdateSchedule(ctx, created.ID, UpdateScheduleRequest{
		EntityName: &name,
		Status:     &paused,
	})
	require.NoError(t, err)
	assert.Equal(t, "MediSupply Limited", updated.EntityName)
	assert.Equal(t, "PAUSED", updated.Status)
	assert.Equal(t, created.Version+1, updated.Version)

	fetched, err := svc.GetSchedule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "MediSupply Limited", fetched.EntityName)
	assert.Equal(t, "PAUSED", fetched.Status)
}
