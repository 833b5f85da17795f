package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frequency is the calendar unit a pattern advances by.
type Frequency string

// Recurrence frequencies. The empty string is treated as FrequencyNone so
// the zero RecurrencePattern denotes a one-off entity.
const (
	FrequencyNone    Frequency = "none"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

var validFrequencies = map[Frequency]bool{
	FrequencyNone:    true,
	FrequencyDaily:   true,
	FrequencyWeekly:  true,
	FrequencyMonthly: true,
	FrequencyYearly:  true,
}

// ParseFrequency converts a user-supplied name into a Frequency.
// Returns ErrInvalidPattern for unknown names.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(s)
	if s == "" {
		f = FrequencyNone
	}
	if !validFrequencies[f] {
		return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidPattern, s)
	}
	return f, nil
}

// EndCondition bounds a recurrence. The variants are EndDate and
// MaxOccurrences; a nil EndCondition means the pattern is unbounded. The
// interface is sealed, so a pattern carries at most one bound.
type EndCondition interface {
	endCondition()
}

// EndDate stops a recurrence after the given day (inclusive).
type EndDate struct {
	Date time.Time
}

// MaxOccurrences stops a recurrence after Count occurrences, counting the
// base date as the first.
type MaxOccurrences struct {
	Count int
}

func (EndDate) endCondition()        {}
func (MaxOccurrences) endCondition() {}

// RecurrencePattern describes how an entity repeats: every Interval units of
// Frequency, until End.
type RecurrencePattern struct {
	Frequency Frequency
	Interval  int
	End       EndCondition
}

// NewRecurrencePattern builds and validates a pattern. Invalid patterns are
// rejected here so the recurrence engine never sees them.
func NewRecurrencePattern(freq Frequency, interval int, end EndCondition) (RecurrencePattern, error) {
	p := RecurrencePattern{Frequency: freq, Interval: interval, End: end}
	if err := p.Validate(); err != nil {
		return RecurrencePattern{}, err
	}
	return p, nil
}

// IsRecurring reports whether the pattern produces more than the base
// instance.
func (p RecurrencePattern) IsRecurring() bool {
	return p.Frequency != "" && p.Frequency != FrequencyNone
}

// Validate returns ErrInvalidPattern when the pattern is malformed. A
// non-recurring pattern is always valid; its other fields are ignored.
func (p RecurrencePattern) Validate() error {
	if !p.IsRecurring() {
		return nil
	}
	if !validFrequencies[p.Frequency] {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidPattern, p.Frequency)
	}
	if p.Interval < 1 {
		return fmt.Errorf("%w: interval %d must be at least 1", ErrInvalidPattern, p.Interval)
	}
	switch end := p.End.(type) {
	case nil:
	case EndDate:
		if end.Date.IsZero() {
			return fmt.Errorf("%w: end date is zero", ErrInvalidPattern)
		}
	case MaxOccurrences:
		if end.Count < 1 {
			return fmt.Errorf("%w: max occurrences %d must be at least 1", ErrInvalidPattern, end.Count)
		}
	default:
		return fmt.Errorf("%w: unsupported end condition %T", ErrInvalidPattern, end)
	}
	return nil
}

// patternJSON is the wire form of RecurrencePattern. Until and Count are
// mutually exclusive.
type patternJSON struct {
	Frequency Frequency  `json:"frequency,omitempty"`
	Interval  int        `json:"interval,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
	Count     int        `json:"count,omitempty"`
}

// MarshalJSON encodes the end condition as either "until" or "count".
func (p RecurrencePattern) MarshalJSON() ([]byte, error) {
	out := patternJSON{Frequency: p.Frequency, Interval: p.Interval}
	switch end := p.End.(type) {
	case EndDate:
		d := end.Date
		out.Until = &d
	case MaxOccurrences:
		out.Count = end.Count
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire form. A record carrying both "until" and
// "count" is rejected with ErrInvalidPattern.
func (p *RecurrencePattern) UnmarshalJSON(data []byte) error {
	var in patternJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Until != nil && in.Count != 0 {
		return fmt.Errorf("%w: both until and count set", ErrInvalidPattern)
	}
	*p = RecurrencePattern{Frequency: in.Frequency, Interval: in.Interval}
	switch {
	case in.Until != nil:
		p.End = EndDate{Date: *in.Until}
	case in.Count != 0:
		p.End = MaxOccurrences{Count: in.Count}
	}
	return nil
}
