package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) FindAll(ctx context.Context, filter settlement.ScheduleFilter) ([]settlement.Schedule, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]settlement.Schedule), args.Error(1)
}

func (m *MockScheduleRepository) Save(ctx context.Context, schedule *settlement.Schedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) SaveWithLock(ctx context.Context, schedule *settlement.Schedule) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *MockScheduleRepository) Count(ctx context.Context, filter settlement.ScheduleFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduleRepository) SumPendingByType(ctx context.Context, scheduleType settlement.ScheduleType) (decimal.Decimal, error) {
	args := m.Called(ctx, scheduleType)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Alert), args.Error(1)
}

func (m *MockAlertRepository) FindAll(ctx context.Context, filter settlement.AlertFilter) ([]settlement.Alert, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]settlement.Alert), args.Error(1)
}

func (m *MockAlertRepository) FindUnresolved(ctx context.Context, entityID uuid.UUID, alertType settlement.AlertType) (*settlement.Alert, error) {
	args := m.Called(ctx, entityID, alertType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Alert), args.Error(1)
}

func (m *MockAlertRepository) FindUnresolvedByEntity(ctx context.Context, entityID uuid.UUID) ([]settlement.Alert, error) {
	args := m.Called(ctx, entityID)
	return args.Get(0).([]settlement.Alert), args.Error(1)
}

func (m *MockAlertRepository) Save(ctx context.Context, alert *settlement.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) Count(ctx context.Context, filter settlement.AlertFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.PaymentTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.PaymentTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByReference(ctx context.Context, reference string) (*settlement.PaymentTransaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.PaymentTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, filter settlement.TransactionFilter) ([]settlement.PaymentTransaction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]settlement.PaymentTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindInFlightBySchedule(ctx context.Context, scheduleID uuid.UUID) (*settlement.PaymentTransaction, error) {
	args := m.Called(ctx, scheduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.PaymentTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindCreatedSince(ctx context.Context, cutoff time.Time) ([]settlement.PaymentTransaction, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]settlement.PaymentTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindInFlight(ctx context.Context) ([]settlement.PaymentTransaction, error) {
	args := m.Called(ctx)
	return args.Get(0).([]settlement.PaymentTransaction), args.Error(1)
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *settlement.PaymentTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) Count(ctx context.Context, filter settlement.TransactionFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) CountByStatus(ctx context.Context, status settlement.TransactionStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Mock Collaborators
// =============================================================================

type MockPaymentRail struct {
	mock.Mock
}

func (m *MockPaymentRail) Name() string {
	return "mock"
}

func (m *MockPaymentRail) SubmitTransfer(ctx context.Context, req *settlement.TransferRequest) (*settlement.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.TransferResult), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// =============================================================================
// Test Fixtures
// =============================================================================

func newCollectionSchedule(pending float64, dueInDays int) *settlement.Schedule {
	s, err := settlement.NewSchedule(
		uuid.New(),
		"Apollo Pharmacy",
		settlement.EntityTypePharmacy,
		settlement.ScheduleTypeCollection,
		settlement.FrequencyWeekly,
		time.Now().UTC().AddDate(0, 0, dueInDays),
		decimal.NewFromFloat(pending),
		decimal.NewFromFloat(100),
		settlement.PaymentMethodBankTransfer,
		settlement.DefaultAlertSettings(),
		false,
	)
	if err != nil {
		panic(err)
	}
	s.ClearDomainEvents()
	return s
}

func newPayoutSchedule(pending float64, dueInDays int) *settlement.Schedule {
	s, err := settlement.NewSchedule(
		uuid.New(),
		"Dr. Mehta",
		settlement.EntityTypeDoctor,
		settlement.ScheduleTypePayout,
		settlement.FrequencyMonthly,
		time.Now().UTC().AddDate(0, 0, dueInDays),
		decimal.NewFromFloat(pending),
		decimal.Zero,
		settlement.PaymentMethodUPI,
		settlement.DefaultAlertSettings(),
		false,
	)
	if err != nil {
		panic(err)
	}
	s.ClearDomainEvents()
	return s
}
