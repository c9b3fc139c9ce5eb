package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{name: "pending to running", from: JobStatusPending, to: JobStatusRunning, allowed: true},
		{name: "running to completed", from: JobStatusRunning, to: JobStatusCompleted, allowed: true},
		{name: "running to failed", from: JobStatusRunning, to: JobStatusFailed, allowed: true},
		{name: "pending to completed", from: JobStatusPending, to: JobStatusCompleted, allowed: false},
		{name: "running to pending", from: JobStatusRunning, to: JobStatusPending, allowed: false},
		{name: "completed to running", from: JobStatusCompleted, to: JobStatusRunning, allowed: false},
		{name: "failed to running", from: JobStatusFailed, to: JobStatusRunning, allowed: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.allowed, test.from.CanTransition(test.to))
		})
	}
}

func TestScheduleCronSpec(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		expected string
		wantErr  bool
	}{
		{
			name:     "daily at 3am",
			schedule: Schedule{Frequency: "daily", TimeOfDay: "03:00"},
			expected: "0 3 * * *",
		},
		{
			name:     "hourly",
			schedule: Schedule{Frequency: "hourly"},
			expected: "0 * * * *",
		},
		{
			name:     "weekly on sunday",
			schedule: Schedule{Frequency: "weekly", TimeOfDay: "01:30"},
			expected: "30 1 * * 0",
		},
		{
			name:     "monthly defaults to first day",
			schedule: Schedule{Frequency: "monthly", TimeOfDay: "02:15"},
			expected: "15 2 1 * *",
		},
		{
			name:     "daily with timezone",
			schedule: Schedule{Frequency: "daily", TimeOfDay: "03:00", Timezone: "Europe/Berlin"},
			expected: "CRON_TZ=Europe/Berlin 0 3 * * *",
		},
		{
			name:     "unknown frequency",
			schedule: Schedule{Frequency: "fortnightly"},
			wantErr:  true,
		},
		{
			name:     "invalid timezone",
			schedule: Schedule{Frequency: "daily", Timezone: "Mars/Olympus"},
			wantErr:  true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			spec, err := test.schedule.CronSpec()
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, test.expected, spec)
		})
	}
}

func TestIntervalUnitDays(t *testing.T) {
	tests := []struct {
		unit IntervalUnit
		days int
		ok   bool
	}{
		{unit: UnitDays, days: 1, ok: true},
		{unit: UnitWeeks, days: 7, ok: true},
		{unit: UnitMonths, days: 30, ok: true},
		{unit: UnitYears, days: 365, ok: true},
		{unit: "", days: 1, ok: true},
		{unit: "fortnights", ok: false},
	}

	for _, test := range tests {
		days, ok := test.unit.Days()
		assert.Equal(t, test.ok, ok, string(test.unit))
		if ok {
			assert.Equal(t, test.days, days, string(test.unit))
		}
	}
}
