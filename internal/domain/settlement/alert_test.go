package settlement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAlert(t *testing.T) *Alert {
	s := createTestCollectionSchedule(t)
	a, err := NewAlert(s, AlertTypeCollectionOverdue, SeverityHigh,
		s.PendingAmount, s.NextDueDate, 3, "Collection of 1500 is 3 days overdue")
	require.NoError(t, err)
	a.ClearDomainEvents()
	return a
}

// ============================================
// AlertType / AlertSeverity Tests
// ============================================

func TestAlertType_IsValid(t *testing.T) {
	tests := []struct {
		alertType AlertType
		isValid   bool
	}{
		{AlertTypeCollectionDue, true},
		{AlertTypeCollectionOverdue, true},
		{AlertTypePayoutDue, true},
		{AlertTypePayoutOverdue, true},
		{AlertTypeAmountThreshold, true},
		{AlertType("REMINDER"), false},
		{AlertType(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.alertType), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.alertType.IsValid())
		})
	}
}

func TestDueAndOverdueAlertTypes(t *testing.T) {
	assert.Equal(t, AlertTypeCollectionDue, DueAlertType(ScheduleTypeCollection))
	assert.Equal(t, AlertTypePayoutDue, DueAlertType(ScheduleTypePayout))
	assert.Equal(t, AlertTypeCollectionOverdue, OverdueAlertType(ScheduleTypeCollection))
	assert.Equal(t, AlertTypePayoutOverdue, OverdueAlertType(ScheduleTypePayout))
}

func TestAlertSeverity_Rank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
}

// ============================================
// Alert Lifecycle Tests
// ============================================

func TestNewAlert_Success(t *testing.T) {
	s := createTestCollectionSchedule(t)

	a, err := NewAlert(s, AlertTypeCollectionOverdue, SeverityHigh,
		s.PendingAmount, s.NextDueDate, 3, "overdue")

	require.NoError(t, err)
	assert.Equal(t, s.ID, a.ScheduleID)
	assert.Equal(t, s.EntityID, a.EntityID)
	assert.Equal(t, s.EntityName, a.EntityName)
	assert.False(t, a.IsRead)
	assert.False(t, a.IsResolved)
	assert.Equal(t, "COLLECTION", a.Metadata["schedule_type"])
	assert.Equal(t, "BANK_TRANSFER", a.Metadata["payment_method"])

	events := a.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "AlertRaised", events[0].EventType())
}

func TestNewAlert_ValidationErrors(t *testing.T) {
	s := createTestCollectionSchedule(t)

	_, err := NewAlert(s, AlertType("BAD"), SeverityHigh, decimal.Zero, time.Now(), 0, "m")
	assertDomainErrorCode(t, err, "VALIDATION_ERROR")

	_, err = NewAlert(s, AlertTypeCollectionDue, AlertSeverity("EXTREME"), decimal.Zero, time.Now(), 0, "m")
	assertDomainErrorCode(t, err, "VALIDATION_ERROR")

	_, err = NewAlert(s, AlertTypeCollectionDue, SeverityLow, decimal.Zero, time.Now(), -1, "m")
	assertDomainErrorCode(t, err, "VALIDATION_ERROR")
}

func TestAlert_Refresh(t *testing.T) {
	a := createTestAlert(t)
	newDue := a.DueDate.AddDate(0, 0, -1)

	err := a.Refresh(SeverityHigh, decimal.NewFromInt(1800), newDue, 4, "now 4 days overdue")

	require.NoError(t, err)
	assert.True(t, a.Amount.Equal(decimal.NewFromInt(1800)))
	assert.Equal(t, 4, a.DaysPastDue)
	assert.Equal(t, "now 4 days overdue", a.Message)
	assert.Empty(t, a.GetDomainEvents())
}

func TestAlert_Refresh_EscalatesSeverity(t *testing.T) {
	a := createTestAlert(t)

	err := a.Refresh(SeverityCritical, a.Amount, a.DueDate, 8, "critical now")

	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, a.Severity)

	events := a.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "AlertEscalated", events[0].EventType())
}

func TestAlert_Refresh_RejectsResolved(t *testing.T) {
	a := createTestAlert(t)
	require.NoError(t, a.Resolve(time.Now()))

	err := a.Refresh(SeverityCritical, a.Amount, a.DueDate, 10, "m")

	assertDomainErrorCode(t, err, "INVALID_STATE")
}

func TestAlert_MarkRead(t *testing.T) {
	a := createTestAlert(t)

	a.MarkRead()
	assert.True(t, a.IsRead)

	// Idempotent
	a.MarkRead()
	assert.True(t, a.IsRead)
}

func TestAlert_Resolve(t *testing.T) {
	a := createTestAlert(t)
	at := time.Now()

	require.NoError(t, a.Resolve(at))

	assert.True(t, a.IsResolved)
	require.NotNil(t, a.ResolvedAt)
	assert.Equal(t, at.UTC(), *a.ResolvedAt)

	assertDomainErrorCode(t, a.Resolve(time.Now()), "INVALID_STATE")
}

// ============================================
// AlertPolicy Tests
// ============================================

func TestAlertPolicy_OverdueSeverity(t *testing.T) {
	p := DefaultAlertPolicy()

	assert.Equal(t, SeverityHigh, p.OverdueSeverity(2, 7))
	assert.Equal(t, SeverityCritical, p.OverdueSeverity(7, 7))
	assert.Equal(t, SeverityCritical, p.OverdueSeverity(12, 7))
	// Escalation disabled
	assert.Equal(t, SeverityHigh, p.OverdueSeverity(30, 0))
}

func TestAlertPolicy_DueSoonSeverity(t *testing.T) {
	p := DefaultAlertPolicy()

	assert.Equal(t, SeverityMedium, p.DueSoonSeverity(0))
	assert.Equal(t, SeverityMedium, p.DueSoonSeverity(1))
	assert.Equal(t, SeverityLow, p.DueSoonSeverity(2))
	assert.Equal(t, SeverityLow, p.DueSoonSeverity(3))
}

func TestAlertPolicy_ThresholdExceeded(t *testing.T) {
	p := DefaultAlertPolicy()

	assert.True(t, p.ThresholdExceeded(decimal.NewFromInt(200), decimal.NewFromInt(100)))
	assert.False(t, p.ThresholdExceeded(decimal.NewFromInt(199), decimal.NewFromInt(100)))
	// Disabled when no minimum is configured
	assert.False(t, p.ThresholdExceeded(decimal.NewFromInt(10000), decimal.Zero))
}
