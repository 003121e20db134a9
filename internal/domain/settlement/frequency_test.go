package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrequency_IsValid(t *testing.T) {
	tests := []struct {
		frequency Frequency
		isValid   bool
	}{
		{FrequencyWeekly, true},
		{FrequencyBiweekly, true},
		{FrequencyMonthly, true},
		{Frequency("DAILY"), false},
		{Frequency(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.frequency.IsValid())
		})
	}
}

func TestFrequency_Next_Weekly(t *testing.T) {
	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	next := FrequencyWeekly.Next(from)

	assert.Equal(t, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), next)
}

func TestFrequency_Next_Biweekly(t *testing.T) {
	from := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	next := FrequencyBiweekly.Next(from)

	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), next)
}

func TestFrequency_Next_Monthly(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "mid month",
			from: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 clamps to feb 29 in leap year",
			from: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 clamps to feb 28 in non leap year",
			from: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "mar 31 clamps to apr 30",
			from: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "dec rolls into next year",
			from: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FrequencyMonthly.Next(tt.from))
		})
	}
}

func TestFrequency_Next_PreservesTimeOfDay(t *testing.T) {
	from := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

	next := FrequencyMonthly.Next(from)

	assert.Equal(t, time.Date(2024, 2, 29, 9, 30, 0, 0, time.UTC), next)
}
