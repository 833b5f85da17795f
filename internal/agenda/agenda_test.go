package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func days(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Day.Format(time.DateOnly) + " " + e.Label
	}
	return out
}

func fixtures() (items []types.Item, habits []types.Habit) {
	items = []types.Item{
		{Meta: types.Meta{ID: "i-dentist", SortOrder: 0}, Title: "dentist", Start: day("2024-03-05")},
		{
			Meta:       types.Meta{ID: "i-rent", SortOrder: 1},
			Title:      "rent",
			Start:      day("2024-01-31"),
			Recurrence: types.RecurrencePattern{Frequency: types.FrequencyMonthly, Interval: 1},
		},
	}
	habits = []types.Habit{
		{
			Meta:       types.Meta{ID: "h-run", SortOrder: 0},
			Name:       "run",
			Start:      day("2024-03-01"),
			Recurrence: types.RecurrencePattern{Frequency: types.FrequencyDaily, Interval: 2, End: types.MaxOccurrences{Count: 3}},
		},
	}
	return items, habits
}

func TestBetween(t *testing.T) {
	items, habits := fixtures()
	entries, err := Between(day("2024-02-28"), day("2024-03-06"),
		From(types.KindItems, items),
		From(types.KindHabits, habits),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-02-29 rent",
		"2024-03-01 run",
		"2024-03-03 run",
		"2024-03-05 dentist",
		"2024-03-05 run",
	}, days(entries))
	assert.Equal(t, types.KindItems, entries[0].Kind)
	assert.Equal(t, "i-rent", entries[0].ID)
}

func TestOn(t *testing.T) {
	items, habits := fixtures()
	entries, err := On(day("2024-03-05").Add(15*time.Hour),
		From(types.KindItems, items),
		From(types.KindHabits, habits),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-05 dentist", "2024-03-05 run"}, days(entries))
}

func TestBetweenReportsInvalidPatterns(t *testing.T) {
	items, _ := fixtures()
	items = append(items, types.Item{
		Meta:       types.Meta{ID: "i-bad", SortOrder: 2},
		Title:      "bad",
		Start:      day("2024-03-01"),
		Recurrence: types.RecurrencePattern{Frequency: types.FrequencyWeekly, Interval: 0},
	})

	entries, err := Between(day("2024-03-01"), day("2024-03-31"), From(types.KindItems, items))
	assert.ErrorIs(t, err, types.ErrInvalidPattern)
	assert.ErrorContains(t, err, "i-bad")
	assert.Equal(t, []string{"2024-03-05 dentist", "2024-03-31 rent"}, days(entries))
}

func TestNext(t *testing.T) {
	items, habits := fixtures()

	tests := []struct {
		name   string
		entity types.Recurring
		after  string
		want   string
		wantOK bool
	}{
		{name: "one-off before", entity: items[0], after: "2024-03-01", want: "2024-03-05", wantOK: true},
		{name: "one-off on day", entity: items[0], after: "2024-03-05"},
		{name: "monthly clamp", entity: items[1], after: "2024-01-31", want: "2024-02-29", wantOK: true},
		{name: "bounded habit", entity: habits[0], after: "2024-03-03", want: "2024-03-05", wantOK: true},
		{name: "bounded habit exhausted", entity: habits[0], after: "2024-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Next(tt.entity, day(tt.after))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.Format(time.DateOnly))
			}
		})
	}
}

func TestGroupByDay(t *testing.T) {
	items, habits := fixtures()
	entries, err := Between(day("2024-03-01"), day("2024-03-05"),
		From(types.KindItems, items),
		From(types.KindHabits, habits),
	)
	require.NoError(t, err)

	groups := GroupByDay(entries)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 1)
	assert.Len(t, groups[2], 2)
	assert.Empty(t, GroupByDay(nil))
}
