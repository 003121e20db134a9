package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newScheduleService(repo *MockScheduleRepository) *ScheduleService {
	return NewScheduleService(repo, nil)
}

func validCreateRequest() CreateScheduleRequest {
	return CreateScheduleRequest{
		EntityID:      uuid.New(),
		EntityName:    "Apollo Pharmacy",
		EntityType:    "PHARMACY",
		ScheduleType:  "COLLECTION",
		Frequency:     "WEEKLY",
		NextDueDate:   time.Now().UTC().AddDate(0, 0, 7),
		PendingAmount: decimal.NewFromFloat(1500),
		MinimumAmount: decimal.NewFromFloat(100),
		PaymentMethod: "BANK_TRANSFER",
	}
}

func TestScheduleService_CreateSchedule_Success(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)

	repo.On("Save", mock.Anything, mock.AnythingOfType("*settlement.Schedule")).Return(nil)

	resp, err := svc.CreateSchedule(context.Background(), validCreateRequest())

	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.Equal(t, "COLLECTION", resp.ScheduleType)
	assert.True(t, resp.PendingAmount.Equal(decimal.NewFromFloat(1500)))
	// Alert settings default when the request omits them
	assert.True(t, resp.AlertSettings.EnableAlerts)
	repo.AssertExpectations(t)
}

func TestScheduleService_CreateSchedule_InvalidEnum(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)

	req := validCreateRequest()
	req.Frequency = "DAILY"

	_, err := svc.CreateSchedule(context.Background(), req)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	repo.AssertNotCalled(t, "Save")
}

func TestScheduleService_CreateSchedule_NegativeAmount(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)

	req := validCreateRequest()
	req.PendingAmount = decimal.NewFromInt(-50)

	_, err := svc.CreateSchedule(context.Background(), req)

	require.Error(t, err)
	repo.AssertNotCalled(t, "Save")
}

func TestScheduleService_GetSchedule_NotFound(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)
	id := uuid.New()

	repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	_, err := svc.GetSchedule(context.Background(), id)

	assert.ErrorIs(t, err, shared.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestScheduleService_ListSchedules(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)

	schedules := []settlement.Schedule{*newCollectionSchedule(1000, 2), *newCollectionSchedule(500, 5)}
	repo.On("FindAll", mock.Anything, mock.AnythingOfType("settlement.ScheduleFilter")).Return(schedules, nil)
	repo.On("Count", mock.Anything, mock.AnythingOfType("settlement.ScheduleFilter")).Return(int64(2), nil)

	responses, total, err := svc.ListSchedules(context.Background(), ScheduleListFilter{ScheduleType: "COLLECTION"})

	require.NoError(t, err)
	assert.Len(t, responses, 2)
	assert.Equal(t, int64(2), total)
	repo.AssertExpectations(t)
}

func TestScheduleService_ListSchedules_InvalidFilter(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)

	_, _, err := svc.ListSchedules(context.Background(), ScheduleListFilter{Status: "BROKEN"})

	require.Error(t, err)
	repo.AssertNotCalled(t, "FindAll")
}

func TestScheduleService_UpdateSchedule_PartialFields(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)
	schedule := newCollectionSchedule(1000, 7)

	repo.On("FindByID", mock.Anything, schedule.ID).Return(schedule, nil)
	repo.On("SaveWithLock", mock.Anything, schedule).Return(nil)

	newName := "Apollo Pharmacy Koramangala"
	minimum := decimal.NewFromFloat(250)
	resp, err := svc.UpdateSchedule(context.Background(), schedule.ID, UpdateScheduleRequest{
		EntityName:    &newName,
		MinimumAmount: &minimum,
	})

	require.NoError(t, err)
	assert.Equal(t, newName, resp.EntityName)
	assert.True(t, resp.MinimumAmount.Equal(minimum))
	// Untouched fields survive
	assert.Equal(t, "WEEKLY", resp.Frequency)
	repo.AssertExpectations(t)
}

func TestScheduleService_UpdateSchedule_StatusTransitions(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)
	schedule := newCollectionSchedule(1000, 7)

	repo.On("FindByID", mock.Anything, schedule.ID).Return(schedule, nil)
	repo.On("SaveWithLock", mock.Anything, schedule).Return(nil)

	paused := "PAUSED"
	resp, err := svc.UpdateSchedule(context.Background(), schedule.ID, UpdateScheduleRequest{Status: &paused})

	require.NoError(t, err)
	assert.Equal(t, "PAUSED", resp.Status)
}

func TestScheduleService_UpdateSchedule_CancelledIsTerminal(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)
	schedule := newCollectionSchedule(1000, 7)
	require.NoError(t, schedule.Cancel())

	repo.On("FindByID", mock.Anything, schedule.ID).Return(schedule, nil)

	active := "ACTIVE"
	_, err := svc.UpdateSchedule(context.Background(), schedule.ID, UpdateScheduleRequest{Status: &active})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	repo.AssertNotCalled(t, "SaveWithLock")
}

func TestScheduleService_Accrue(t *testing.T) {
	repo := new(MockScheduleRepository)
	svc := newScheduleService(repo)
	schedule := newCollectionSchedule(1000, 7)

	repo.On("FindByID", mock.Anything, schedule.ID).Return(schedule, nil)
	repo.On("SaveWithLock", mock.Anything, schedule).Return(nil)

	resp, err := svc.Accrue(context.Background(), schedule.ID, decimal.NewFromFloat(200))

	require.NoError(t, err)
	assert.True(t, resp.PendingAmount.Equal(decimal.NewFromFloat(1200)))
	repo.AssertExpectations(t)
}
