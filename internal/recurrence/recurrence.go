// Package recurrence expands a recurrence pattern anchored at a base date
// into the calendar dates on which a recurring entity appears.
//
// Occurrence k falls at base + k*interval units of the pattern's frequency.
// Each occurrence is computed from the base rather than from its
// predecessor, so a monthly series anchored on the 31st returns to the 31st
// after visiting shorter months. All arithmetic is at day granularity: the
// time of day on every input is discarded, and dates are compared in the
// base date's location.
package recurrence

import (
	"iter"
	"time"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Series is a validated pattern bound to its base date.
type Series struct {
	pattern types.RecurrencePattern
	base    time.Time
}

// New validates the pattern and anchors it at base. It returns
// ErrInvalidPattern for malformed patterns; enumeration never fails.
func New(p types.RecurrencePattern, base time.Time) (Series, error) {
	if err := p.Validate(); err != nil {
		return Series{}, err
	}
	return Series{pattern: p, base: Day(base)}, nil
}

// Base returns the first occurrence.
func (s Series) Base() time.Time { return s.base }

// Next returns the earliest occurrence strictly after the day of after.
// The second result is false when the series is exhausted or does not
// recur.
func (s Series) Next(after time.Time) (time.Time, bool) {
	return Next(s.pattern, s.base, after)
}

// InRange yields the occurrences within [start, end], both inclusive.
func (s Series) InRange(start, end time.Time) iter.Seq[time.Time] {
	return InRange(s.pattern, s.base, start, end)
}

// OccursOn reports whether an occurrence falls on the day of t.
func (s Series) OccursOn(t time.Time) bool {
	return OccursOn(s.pattern, s.base, t)
}

// Day truncates t to midnight of its calendar day in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Occurrence returns occurrence k of a recurring pattern, ignoring end
// conditions. Month and year steps clamp to the last day of a shorter month.
// For a non-recurring pattern it returns the base day.
func Occurrence(p types.RecurrencePattern, base time.Time, k int) time.Time {
	base = Day(base)
	n := k * p.Interval
	switch p.Frequency {
	case types.FrequencyDaily:
		return base.AddDate(0, 0, n)
	case types.FrequencyWeekly:
		return base.AddDate(0, 0, 7*n)
	case types.FrequencyMonthly:
		return addMonths(base, n)
	case types.FrequencyYearly:
		return addMonths(base, 12*n)
	default:
		return base
	}
}

// Next returns the earliest occurrence strictly after the day of after, or
// false if the pattern does not recur or is exhausted by then. The pattern
// must be valid.
func Next(p types.RecurrencePattern, base, after time.Time) (time.Time, bool) {
	if !p.IsRecurring() {
		return time.Time{}, false
	}
	base = Day(base)
	k := firstAfter(p, base, Day(after.In(base.Location())))
	occ := Occurrence(p, base, k)
	if !withinEnd(p, k, occ) {
		return time.Time{}, false
	}
	return occ, true
}

// InRange yields every occurrence on a day within [start, end]. The sequence
// is finite even for unbounded patterns, and it can be ranged over more
// than once. A non-recurring pattern yields only its base day, and only if
// that day is in range. The pattern must be valid.
func InRange(p types.RecurrencePattern, base, start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		anchor := Day(base)
		loc := anchor.Location()
		from := Day(start.In(loc))
		to := Day(end.In(loc))
		if to.Before(from) {
			return
		}
		if !p.IsRecurring() {
			if !anchor.Before(from) && !anchor.After(to) {
				yield(anchor)
			}
			return
		}

		k := 0
		if anchor.Before(from) {
			k = firstAfter(p, anchor, from.AddDate(0, 0, -1))
		}
		for ; ; k++ {
			occ := Occurrence(p, anchor, k)
			if occ.After(to) || !withinEnd(p, k, occ) {
				return
			}
			if !yield(occ) {
				return
			}
		}
	}
}

// OccursOn reports whether an occurrence falls on the day of t.
func OccursOn(p types.RecurrencePattern, base, t time.Time) bool {
	base = Day(base)
	day := Day(t.In(base.Location()))
	if !p.IsRecurring() {
		return day.Equal(base)
	}
	next, ok := Next(p, base, day.AddDate(0, 0, -1))
	return ok && next.Equal(day)
}

// withinEnd reports whether occurrence k at date occ is allowed by the
// pattern's end condition. The base occurrence always counts.
func withinEnd(p types.RecurrencePattern, k int, occ time.Time) bool {
	if k == 0 {
		return true
	}
	switch end := p.End.(type) {
	case types.MaxOccurrences:
		return k < end.Count
	case types.EndDate:
		return !occ.After(Day(end.Date.In(occ.Location())))
	default:
		return true
	}
}

// firstAfter returns the smallest k whose occurrence is after day. The
// estimate below never overshoots, so the loop runs at most a couple of
// times.
func firstAfter(p types.RecurrencePattern, base, day time.Time) int {
	if day.Before(base) {
		return 0
	}
	var k int
	switch p.Frequency {
	case types.FrequencyDaily:
		k = daysBetween(base, day) / p.Interval
	case types.FrequencyWeekly:
		k = daysBetween(base, day) / (7 * p.Interval)
	case types.FrequencyMonthly:
		k = monthsBetween(base, day) / p.Interval
	case types.FrequencyYearly:
		k = monthsBetween(base, day) / (12 * p.Interval)
	}
	for !Occurrence(p, base, k).After(day) {
		k++
	}
	return k
}

// addMonths moves t by n calendar months, clamping the day of month.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// daysBetween counts calendar days from a to b, independent of DST.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Unix()
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC).Unix()
	return int((ub - ua) / 86400)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
