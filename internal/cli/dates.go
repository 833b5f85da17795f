package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/almanac/internal/recurrence"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// parseDay accepts YYYY-MM-DD, "today", "tomorrow" or "yesterday" and
// returns local midnight of that day. An empty string means today.
func (a *app) parseDay(s string) (time.Time, error) {
	today := recurrence.Day(a.now())
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, a.now().Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, today, tomorrow or yesterday)", s)
	}
	return t, nil
}

// scheduleFlags are the recurrence flags shared by the add subcommands.
type scheduleFlags struct {
	start    string
	every    string
	interval int
	until    string
	count    int
}

func (a *app) schedule(f scheduleFlags) (time.Time, types.RecurrencePattern, error) {
	start, err := a.parseDay(f.start)
	if err != nil {
		return time.Time{}, types.RecurrencePattern{}, err
	}
	freq, err := types.ParseFrequency(f.every)
	if err != nil {
		return time.Time{}, types.RecurrencePattern{}, err
	}
	if freq == types.FrequencyNone {
		if f.until != "" || f.count != 0 || f.interval != 1 {
			return time.Time{}, types.RecurrencePattern{}, fmt.Errorf("%w: --interval, --until and --count need --every", types.ErrInvalidPattern)
		}
		return start, types.RecurrencePattern{Frequency: types.FrequencyNone}, nil
	}

	var end types.EndCondition
	switch {
	case f.until != "" && f.count != 0:
		return time.Time{}, types.RecurrencePattern{}, fmt.Errorf("%w: --until and --count are mutually exclusive", types.ErrInvalidPattern)
	case f.until != "":
		until, err := a.parseDay(f.until)
		if err != nil {
			return time.Time{}, types.RecurrencePattern{}, err
		}
		end = types.EndDate{Date: until}
	case f.count != 0:
		end = types.MaxOccurrences{Count: f.count}
	}
	p, err := types.NewRecurrencePattern(freq, f.interval, end)
	if err != nil {
		return time.Time{}, types.RecurrencePattern{}, err
	}
	return start, p, nil
}
