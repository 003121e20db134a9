package settlement

import "time"

// Frequency represents how often a schedule comes due
type Frequency string

const (
	FrequencyWeekly   Frequency = "WEEKLY"
	FrequencyBiweekly Frequency = "BIWEEKLY"
	FrequencyMonthly  Frequency = "MONTHLY"
)

// IsValid checks if the frequency is a valid Frequency
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// Next returns the due date that follows from. Weekly and biweekly add a
// fixed number of days. Monthly advances one calendar month and clamps to
// the last valid day of the target month, so Jan 31 yields Feb 28 (or
// Feb 29 in a leap year) instead of overflowing into March.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return addMonthClamped(from)
	default:
		return from
	}
}

// addMonthClamped adds one calendar month, clamping the day of month to the
// last day of the target month when the anchor day does not exist there.
func addMonthClamped(from time.Time) time.Time {
	year, month, day := from.Date()
	firstOfNext := time.Date(year, month+1, 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	lastDay := daysInMonth(firstOfNext.Year(), firstOfNext.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

// daysInMonth returns the number of days in the given month
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
