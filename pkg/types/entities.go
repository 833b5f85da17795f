package types

import "time"

// Kind names. Each kind is one collection locally and one record set
// remotely.
const (
	KindItems            = "items"
	KindCategories       = "categories"
	KindHabits           = "habits"
	KindHabitCompletions = "habit_completions"
	KindRoutines         = "routines"
	KindRoutineProgress  = "routine_progress"
)

// StandardKinds lists all kind names for enumeration.
var StandardKinds = []string{
	KindItems,
	KindCategories,
	KindHabits,
	KindHabitCompletions,
	KindRoutines,
	KindRoutineProgress,
}

// IsKnownKind reports whether name is one of StandardKinds.
func IsKnownKind(name string) bool {
	for _, k := range StandardKinds {
		if k == name {
			return true
		}
	}
	return false
}

// Item is a calendar entry or task. A recurring item appears on every date
// its Recurrence expands to from Start.
type Item struct {
	Meta
	Title      string            `json:"title"`
	Notes      string            `json:"notes,omitempty"`
	CategoryID string            `json:"category_id,omitempty"`
	Start      time.Time         `json:"start"`
	Completed  bool              `json:"completed"`
	Recurrence RecurrencePattern `json:"recurrence"`
}

func (i Item) WithMeta(m Meta) Item {
	i.Meta = m
	return i
}

// Schedule returns the item's pattern anchored at its start day.
func (i Item) Schedule() (RecurrencePattern, time.Time) { return i.Recurrence, i.Start }

func (i Item) Label() string { return i.Title }

// Category groups items. Color is a free-form token the UI interprets.
type Category struct {
	Meta
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func (c Category) WithMeta(m Meta) Category {
	c.Meta = m
	return c
}

// Habit is a recurring behavior tracked by completions.
type Habit struct {
	Meta
	Name       string            `json:"name"`
	Notes      string            `json:"notes,omitempty"`
	Start      time.Time         `json:"start"`
	Recurrence RecurrencePattern `json:"recurrence"`
}

func (h Habit) WithMeta(m Meta) Habit {
	h.Meta = m
	return h
}

func (h Habit) Schedule() (RecurrencePattern, time.Time) { return h.Recurrence, h.Start }

func (h Habit) Label() string { return h.Name }

// HabitCompletion records that a habit was done on a given day. There is at
// most one completion per habit per day; repeated check-ins bump Count.
type HabitCompletion struct {
	Meta
	HabitID string    `json:"habit_id"`
	Day     time.Time `json:"day"`
	Count   int       `json:"count"`
}

func (c HabitCompletion) WithMeta(m Meta) HabitCompletion {
	c.Meta = m
	return c
}

// RoutineTemplate is an ordered checklist that recurs.
type RoutineTemplate struct {
	Meta
	Name       string            `json:"name"`
	Steps      []string          `json:"steps"`
	Start      time.Time         `json:"start"`
	Recurrence RecurrencePattern `json:"recurrence"`
}

func (r RoutineTemplate) WithMeta(m Meta) RoutineTemplate {
	r.Meta = m
	return r
}

func (r RoutineTemplate) Schedule() (RecurrencePattern, time.Time) { return r.Recurrence, r.Start }

func (r RoutineTemplate) Label() string { return r.Name }

// RoutineProgress tracks which steps of a routine were completed on a day.
// CompletedSteps holds indexes into the template's Steps.
type RoutineProgress struct {
	Meta
	TemplateID     string    `json:"template_id"`
	Day            time.Time `json:"day"`
	CompletedSteps []int     `json:"completed_steps"`
}

func (p RoutineProgress) WithMeta(m Meta) RoutineProgress {
	p.Meta = m
	return p
}
