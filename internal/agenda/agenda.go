// Package agenda answers "what is on the calendar" for recurring entities:
// it expands each entity's schedule over a date range and merges the
// results into one ordered list.
package agenda

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mesh-intelligence/almanac/internal/recurrence"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Entry is one appearance of an entity on a day.
type Entry struct {
	Day   time.Time `json:"day"`
	Kind  string    `json:"kind"`
	ID    string    `json:"id"`
	Label string    `json:"label"`
	// Order is the entity's position in its own collection.
	Order int `json:"order"`
}

// Source is one kind's entities.
type Source struct {
	Kind     string
	Entities []types.Recurring
}

// From wraps a typed collection as a Source.
func From[T types.Recurring](kind string, entities []T) Source {
	src := Source{Kind: kind, Entities: make([]types.Recurring, len(entities))}
	for i, e := range entities {
		src.Entities[i] = e
	}
	return src
}

// Between returns every entry in [from, to], both days inclusive, ordered
// by day, then by source position, then by each entity's sort order.
// Entities with an invalid pattern are left out and reported in the joined
// error; the entries that could be expanded are still returned.
func Between(from, to time.Time, sources ...Source) ([]Entry, error) {
	type ranked struct {
		Entry
		source int
	}
	var (
		out  []ranked
		errs []error
	)
	for si, src := range sources {
		for _, e := range src.Entities {
			pattern, base := e.Schedule()
			series, err := recurrence.New(pattern, base)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s %s: %w", src.Kind, e.EntityID(), err))
				continue
			}
			for day := range series.InRange(from, to) {
				out = append(out, ranked{
					Entry: Entry{
						Day:   day,
						Kind:  src.Kind,
						ID:    e.EntityID(),
						Label: e.Label(),
						Order: e.Order(),
					},
					source: si,
				})
			}
		}
	}
	slices.SortFunc(out, func(a, b ranked) int {
		if c := a.Day.Compare(b.Day); c != 0 {
			return c
		}
		if c := cmp.Compare(a.source, b.source); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	entries := make([]Entry, len(out))
	for i, r := range out {
		entries[i] = r.Entry
	}
	return entries, errors.Join(errs...)
}

// On returns the entries for the day of t.
func On(t time.Time, sources ...Source) ([]Entry, error) {
	return Between(t, t, sources...)
}

// Next returns the first appearance of e strictly after the day of after.
func Next(e types.Recurring, after time.Time) (time.Time, bool, error) {
	pattern, base := e.Schedule()
	series, err := recurrence.New(pattern, base)
	if err != nil {
		return time.Time{}, false, err
	}
	if !pattern.IsRecurring() {
		// A one-off entity's only appearance is its base day.
		if series.Base().After(recurrence.Day(after.In(series.Base().Location()))) {
			return series.Base(), true, nil
		}
		return time.Time{}, false, nil
	}
	next, ok := series.Next(after)
	return next, ok, nil
}

// GroupByDay splits sorted entries into consecutive per-day groups.
func GroupByDay(entries []Entry) [][]Entry {
	var groups [][]Entry
	for i, e := range entries {
		if i == 0 || !e.Day.Equal(entries[i-1].Day) {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], e)
	}
	return groups
}
