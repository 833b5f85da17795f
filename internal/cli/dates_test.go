package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

func TestParseDay(t *testing.T) {
	a := &app{now: func() time.Time { return monday }}
	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: day(time.January, 5)},
		{in: "today", want: day(time.January, 5)},
		{in: " Tomorrow ", want: day(time.January, 6)},
		{in: "yesterday", want: day(time.January, 4)},
		{in: "2026-02-28", want: day(time.February, 28)},
		{in: "2026-02-30", wantErr: true},
		{in: "next week", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := a.parseDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestSchedule(t *testing.T) {
	a := &app{now: func() time.Time { return monday }}

	start, p, err := a.schedule(scheduleFlags{start: "2026-01-31", every: "monthly", interval: 2, until: "2026-12-31"})
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, types.FrequencyMonthly, p.Frequency)
	assert.Equal(t, 2, p.Interval)
	assert.Equal(t, types.EndDate{Date: time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)}, p.End)

	_, p, err = a.schedule(scheduleFlags{every: "weekly", interval: 1, count: 4})
	require.NoError(t, err)
	assert.Equal(t, types.MaxOccurrences{Count: 4}, p.End)

	_, p, err = a.schedule(scheduleFlags{interval: 1})
	require.NoError(t, err)
	assert.False(t, p.IsRecurring())

	_, _, err = a.schedule(scheduleFlags{every: "weekly", interval: 1, count: -1})
	assert.ErrorIs(t, err, types.ErrInvalidPattern)
}

func TestDescribePattern(t *testing.T) {
	until := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		p    types.RecurrencePattern
		want string
	}{
		{"zero", types.RecurrencePattern{}, "once"},
		{"none", types.RecurrencePattern{Frequency: types.FrequencyNone, Interval: 3}, "once"},
		{"daily", types.RecurrencePattern{Frequency: types.FrequencyDaily, Interval: 1}, "every day"},
		{"biweekly until", types.RecurrencePattern{Frequency: types.FrequencyWeekly, Interval: 2, End: types.EndDate{Date: until}}, "every 2 weeks until 2026-03-01"},
		{"yearly count", types.RecurrencePattern{Frequency: types.FrequencyYearly, Interval: 1, End: types.MaxOccurrences{Count: 5}}, "every year for 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describePattern(tt.p))
		})
	}
}
