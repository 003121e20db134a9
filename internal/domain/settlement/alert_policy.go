package settlement

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertPolicy holds the tunable constants behind alert evaluation.
// The defaults reconstruct the operational behaviour the back office team
// runs with; hosts may override them through configuration.
type AlertPolicy struct {
	// ImminentDays is the days-until-due boundary at or below which a
	// due-soon alert is raised at medium instead of low severity.
	ImminentDays int
	// ThresholdMultiplier scales the schedule's minimum amount; when the
	// pending amount reaches the product an amount-threshold alert fires.
	ThresholdMultiplier decimal.Decimal
}

// DefaultAlertPolicy returns the standard policy
func DefaultAlertPolicy() AlertPolicy {
	return AlertPolicy{
		ImminentDays:        1,
		ThresholdMultiplier: decimal.NewFromInt(2),
	}
}

// OverdueSeverity returns the severity for an overdue alert. Escalation is
// driven by the schedule's own escalation window: critical at or past it,
// high before.
func (p AlertPolicy) OverdueSeverity(daysPastDue, escalationDays int) AlertSeverity {
	if escalationDays > 0 && daysPastDue >= escalationDays {
		return SeverityCritical
	}
	return SeverityHigh
}

// DueSoonSeverity returns the severity for a due-soon alert
func (p AlertPolicy) DueSoonSeverity(daysUntilDue int) AlertSeverity {
	if daysUntilDue <= p.ImminentDays {
		return SeverityMedium
	}
	return SeverityLow
}

// ThresholdExceeded reports whether the pending amount crossed the
// configured multiple of the schedule's minimum amount. Schedules without a
// minimum amount never trip the threshold.
func (p AlertPolicy) ThresholdExceeded(pending, minimum decimal.Decimal) bool {
	if minimum.LessThanOrEqual(decimal.Zero) {
		return false
	}
	return pending.GreaterThanOrEqual(minimum.Mul(p.ThresholdMultiplier))
}

// OverdueMessage builds the operator-facing text for an overdue alert
func OverdueMessage(s *Schedule, daysPastDue int) string {
	verb := "collection from"
	if s.ScheduleType == ScheduleTypePayout {
		verb = "payout to"
	}
	return fmt.Sprintf("%s %s is %d day(s) overdue (%s pending)", capitalizeVerb(verb), s.EntityName, daysPastDue, s.PendingAmount.StringFixed(2))
}

// DueSoonMessage builds the operator-facing text for a due-soon alert
func DueSoonMessage(s *Schedule, daysUntilDue int) string {
	verb := "collection from"
	if s.ScheduleType == ScheduleTypePayout {
		verb = "payout to"
	}
	if daysUntilDue <= 0 {
		return fmt.Sprintf("%s %s is due today (%s pending)", capitalizeVerb(verb), s.EntityName, s.PendingAmount.StringFixed(2))
	}
	return fmt.Sprintf("%s %s is due in %d day(s) (%s pending)", capitalizeVerb(verb), s.EntityName, daysUntilDue, s.PendingAmount.StringFixed(2))
}

// ThresholdMessage builds the operator-facing text for a threshold alert
func ThresholdMessage(s *Schedule) string {
	return fmt.Sprintf("Pending amount %s for %s exceeds the settlement threshold (minimum %s)",
		s.PendingAmount.StringFixed(2), s.EntityName, s.MinimumAmount.StringFixed(2))
}

func capitalizeVerb(v string) string {
	if v == "" {
		return v
	}
	return string(v[0]-'a'+'A') + v[1:]
}
