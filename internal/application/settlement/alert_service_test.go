package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAlertService(alertRepo *MockAlertRepository, scheduleRepo *MockScheduleRepository) *AlertService {
	return NewAlertService(alertRepo, scheduleRepo, nil, settlement.DefaultAlertPolicy(), zap.NewNop())
}

func expectScheduleList(repo *MockScheduleRepository, schedules ...settlement.Schedule) {
	repo.On("FindAll", mock.Anything, mock.AnythingOfType("settlement.ScheduleFilter")).Return(schedules, nil)
	// Evaluate re-reads each schedule before writing an alert; hand back
	// the slice element itself so the re-read observes the pass's own
	// mutations.
	for i := range schedules {
		repo.On("FindByID", mock.Anything, schedules[i].ID).Return(&schedules[i], nil)
	}
}

func TestAlertService_Evaluate_OverdueRaisesHighAlert(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	// 2 days overdue with escalationDays=3: high, not yet critical
	schedule := newCollectionSchedule(150, -2)
	expectScheduleList(scheduleRepo, *schedule)
	scheduleRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*settlement.Schedule")).Return(nil)
	alertRepo.On("FindUnresolved", mock.Anything, schedule.EntityID, settlement.AlertTypeCollectionOverdue).Return(nil, nil)
	alertRepo.On("Save", mock.Anything, mock.MatchedBy(func(a *settlement.Alert) bool {
		return a.AlertType == settlement.AlertTypeCollectionOverdue && a.Severity == settlement.SeverityHigh
	})).Return(nil)

	summary, err := svc.Evaluate(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlertsRaised)
	assert.Equal(t, 1, summary.MarkedOverdue)
	alertRepo.AssertExpectations(t)
}

func TestAlertService_Evaluate_EscalatesExistingAlert(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	// 5 days overdue with escalationDays=3: the earlier high alert is
	// refreshed in place to critical, no second alert is created.
	schedule := newCollectionSchedule(150, -5)
	require.NoError(t, schedule.MarkOverdue(time.Now().UTC()))
	schedule.ClearDomainEvents()

	existing, err := settlement.NewAlert(schedule, settlement.AlertTypeCollectionOverdue,
		settlement.SeverityHigh, schedule.PendingAmount, schedule.NextDueDate, 2, "was 2 days overdue")
	require.NoError(t, err)
	existing.ClearDomainEvents()

	expectScheduleList(scheduleRepo, *schedule)
	alertRepo.On("FindUnresolved", mock.Anything, schedule.EntityID, settlement.AlertTypeCollectionOverdue).Return(existing, nil)
	alertRepo.On("Save", mock.Anything, existing).Return(nil)

	summary, err := svc.Evaluate(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.AlertsRaised)
	assert.Equal(t, 1, summary.AlertsRefreshed)
	assert.Equal(t, settlement.SeverityCritical, existing.Severity)
	assert.Equal(t, 5, existing.DaysPastDue)
	alertRepo.AssertExpectations(t)
}

func TestAlertService_Evaluate_DueSoonSeverities(t *testing.T) {
	tests := []struct {
		name      string
		dueInDays int
		severity  settlement.AlertSeverity
	}{
		{"due tomorrow is medium", 1, settlement.SeverityMedium},
		{"due in three days is low", 3, settlement.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alertRepo := new(MockAlertRepository)
			scheduleRepo := new(MockScheduleRepository)
			svc := newAlertService(alertRepo, scheduleRepo)

			schedule := newCollectionSchedule(150, tt.dueInDays)
			expectScheduleList(scheduleRepo, *schedule)
			alertRepo.On("FindUnresolved", mock.Anything, schedule.EntityID, settlement.AlertTypeCollectionDue).Return(nil, nil)
			alertRepo.On("Save", mock.Anything, mock.MatchedBy(func(a *settlement.Alert) bool {
				return a.AlertType == settlement.AlertTypeCollectionDue && a.Severity == tt.severity
			})).Return(nil)

			summary, err := svc.Evaluate(context.Background(), time.Now().UTC())

			require.NoError(t, err)
			assert.Equal(t, 1, summary.AlertsRaised)
			alertRepo.AssertExpectations(t)
		})
	}
}

func TestAlertService_Evaluate_ThresholdBranch(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	// Pending 1000 with minimum 100: past the 2x threshold, due date far
	// away so neither due-soon nor overdue fires.
	schedule := newCollectionSchedule(1000, 20)
	expectScheduleList(scheduleRepo, *schedule)
	alertRepo.On("FindUnresolved", mock.Anything, schedule.EntityID, settlement.AlertTypeAmountThreshold).Return(nil, nil)
	alertRepo.On("Save", mock.Anything, mock.MatchedBy(func(a *settlement.Alert) bool {
		return a.AlertType == settlement.AlertTypeAmountThreshold && a.Severity == settlement.SeverityMedium
	})).Return(nil)

	summary, err := svc.Evaluate(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlertsRaised)
	alertRepo.AssertExpectations(t)
}

func TestAlertService_Evaluate_SkipsPausedAndDisabled(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	paused := newCollectionSchedule(1000, -2)
	require.NoError(t, paused.Pause())
	paused.ClearDomainEvents()

	disabled := newCollectionSchedule(1000, -2)
	disabled.AlertSettings.EnableAlerts = false

	expectScheduleList(scheduleRepo, *paused, *disabled)

	summary, err := svc.Evaluate(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.SchedulesEvaluated)
	assert.Equal(t, 0, summary.AlertsRaised)
	alertRepo.AssertNotCalled(t, "Save")
}

func TestAlertService_Evaluate_IsIdempotent(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	now := time.Now().UTC()
	schedule := newCollectionSchedule(150, 2)
	expectScheduleList(scheduleRepo, *schedule)

	var stored *settlement.Alert
	alertRepo.On("FindUnresolved", mock.Anything, schedule.EntityID, settlement.AlertTypeCollectionDue).
		Return(nil, nil).Once()
	alertRepo.On("Save", mock.Anything, mock.AnythingOfType("*settlement.Alert")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*settlement.Alert) }).
		Return(nil)

	first, err := svc.Evaluate(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, first.AlertsRaised)

	// Second pass finds the alert raised by the first and refreshes it,
	// creating nothing new.
	alertRepo.On("FindUnresolved", mock.Anything, schedule.EntityID, settlement.AlertTypeCollectionDue).
		Return(stored, nil)

	second, err := svc.Evaluate(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.AlertsRaised)
	assert.Equal(t, 1, second.AlertsRefreshed)
}

func TestAlertService_Evaluate_SkipsScheduleSettledMidPass(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	now := time.Now().UTC()
	schedule := newCollectionSchedule(150, -2)
	require.NoError(t, schedule.MarkOverdue(now))
	schedule.ClearDomainEvents()

	// A settlement completes for this schedule after the pass took its
	// snapshot. The re-read sees the newer version and no alert is
	// written for the already-met obligation.
	settled := *schedule
	require.NoError(t, settled.BeginSettlement(uuid.New()))
	require.NoError(t, settled.CompleteSettlement(settled.PendingAmount, now, time.Second))
	settled.ClearDomainEvents()

	scheduleRepo.On("FindAll", mock.Anything, mock.AnythingOfType("settlement.ScheduleFilter")).
		Return([]settlement.Schedule{*schedule}, nil)
	scheduleRepo.On("FindByID", mock.Anything, schedule.ID).Return(&settled, nil)

	summary, err := svc.Evaluate(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.AlertsRaised)
	assert.Equal(t, 0, summary.AlertsRefreshed)
	alertRepo.AssertNotCalled(t, "Save")
}

func TestAlertService_Evaluate_PagesThroughAllSchedules(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	// Quiet schedules: due far out, pending below the threshold, so the
	// pass only counts them.
	fullPage := make([]settlement.Schedule, 500)
	for i := range fullPage {
		fullPage[i] = *newCollectionSchedule(150, 20)
	}
	lastPage := []settlement.Schedule{*newCollectionSchedule(150, 20)}

	scheduleRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(f settlement.ScheduleFilter) bool {
		return f.Page == 1
	})).Return(fullPage, nil).Once()
	scheduleRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(f settlement.ScheduleFilter) bool {
		return f.Page == 2
	})).Return(lastPage, nil).Once()

	summary, err := svc.Evaluate(context.Background(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 501, summary.SchedulesEvaluated)
	scheduleRepo.AssertExpectations(t)
}

func TestAlertService_MarkRead(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	schedule := newCollectionSchedule(1000, -2)
	alert, err := settlement.NewAlert(schedule, settlement.AlertTypeCollectionOverdue,
		settlement.SeverityHigh, schedule.PendingAmount, schedule.NextDueDate, 2, "overdue")
	require.NoError(t, err)

	alertRepo.On("FindByID", mock.Anything, alert.ID).Return(alert, nil)
	alertRepo.On("Save", mock.Anything, alert).Return(nil)

	require.NoError(t, svc.MarkRead(context.Background(), alert.ID))
	assert.True(t, alert.IsRead)
	alertRepo.AssertExpectations(t)
}

func TestAlertService_Resolve_AlreadyResolved(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	schedule := newCollectionSchedule(1000, -2)
	alert, err := settlement.NewAlert(schedule, settlement.AlertTypeCollectionOverdue,
		settlement.SeverityHigh, schedule.PendingAmount, schedule.NextDueDate, 2, "overdue")
	require.NoError(t, err)
	require.NoError(t, alert.Resolve(time.Now().UTC()))

	alertRepo.On("FindByID", mock.Anything, alert.ID).Return(alert, nil)

	err = svc.Resolve(context.Background(), alert.ID)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	alertRepo.AssertNotCalled(t, "Save")
}

func TestAlertService_ResolveForEntity(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	scheduleRepo := new(MockScheduleRepository)
	svc := newAlertService(alertRepo, scheduleRepo)

	schedule := newCollectionSchedule(1000, -2)
	overdueAlert, err := settlement.NewAlert(schedule, settlement.AlertTypeCollectionOverdue,
		settlement.SeverityHigh, schedule.PendingAmount, schedule.NextDueDate, 2, "overdue")
	require.NoError(t, err)
	thresholdAlert, err := settlement.NewAlert(schedule, settlement.AlertTypeAmountThreshold,
		settlement.SeverityMedium, schedule.PendingAmount, schedule.NextDueDate, 0, "threshold")
	require.NoError(t, err)

	alertRepo.On("FindUnresolvedByEntity", mock.Anything, schedule.EntityID).
		Return([]settlement.Alert{*overdueAlert, *thresholdAlert}, nil)
	alertRepo.On("Save", mock.Anything, mock.MatchedBy(func(a *settlement.Alert) bool {
		return a.IsResolved && a.ResolvedAt != nil
	})).Return(nil).Twice()

	at := time.Now().UTC()
	resolved, err := svc.ResolveForEntity(context.Background(), schedule.EntityID, at)

	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	alertRepo.AssertExpectations(t)
}
