// Package planner wires one manager per entity kind to a shared backend and
// data directory and implements the operations that span kinds.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/almanac/internal/agenda"
	"github.com/mesh-intelligence/almanac/internal/cloud"
	"github.com/mesh-intelligence/almanac/internal/local"
	"github.com/mesh-intelligence/almanac/internal/manager"
	"github.com/mesh-intelligence/almanac/internal/recurrence"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Collection is the kind-independent surface of a manager.
type Collection interface {
	Kind() string
	Len() int
	Load() error
	Delete(id string) error
	Move(from, to int) error
	Sync(ctx context.Context) (manager.SyncResult, error)
	Flush(ctx context.Context) error
	Pending() int
	Close(ctx context.Context) error
}

// Planner holds the six collections.
type Planner struct {
	Items       *manager.Manager[types.Item]
	Categories  *manager.Manager[types.Category]
	Habits      *manager.Manager[types.Habit]
	Completions *manager.Manager[types.HabitCompletion]
	Routines    *manager.Manager[types.RoutineTemplate]
	Progress    *manager.Manager[types.RoutineProgress]

	backend cloud.Backend
	clock   func() time.Time
	logger  *slog.Logger
}

// Open opens the backend cfg selects and a planner over cfg.DataDir. Sync
// settings in opts that are left empty are taken from cfg.
func Open(ctx context.Context, cfg types.Config, opts manager.Options) (*Planner, error) {
	backend, err := cloud.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}
	fromCfg := manager.OptionsFromConfig(cfg)
	if opts.SyncStrategy == "" {
		opts.SyncStrategy = fromCfg.SyncStrategy
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = fromCfg.BatchSize
	}
	if opts.PushPolicy == "" {
		opts.PushPolicy = fromCfg.PushPolicy
	}
	p, err := New(backend, cfg.DataDir, opts)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return p, nil
}

// New builds a planner on backend, persisting collections under dataDir,
// and loads every local collection.
func New(backend cloud.Backend, dataDir string, opts manager.Options) (*Planner, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	p := &Planner{
		Items:       newManager[types.Item](backend, dataDir, types.KindItems, opts),
		Categories:  newManager[types.Category](backend, dataDir, types.KindCategories, opts),
		Habits:      newManager[types.Habit](backend, dataDir, types.KindHabits, opts),
		Completions: newManager[types.HabitCompletion](backend, dataDir, types.KindHabitCompletions, opts),
		Routines:    newManager[types.RoutineTemplate](backend, dataDir, types.KindRoutines, opts),
		Progress:    newManager[types.RoutineProgress](backend, dataDir, types.KindRoutineProgress, opts),
		backend:     backend,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
	for _, c := range p.Collections() {
		if err := c.Load(); err != nil {
			_ = p.closeManagers(context.Background())
			return nil, err
		}
	}
	return p, nil
}

func newManager[T types.Entity[T]](backend cloud.Backend, dataDir, kind string, opts manager.Options) *manager.Manager[T] {
	var persist manager.Persister[T]
	if dataDir != "" {
		persist = local.NewCollection[T](dataDir, kind)
	}
	return manager.New[T](kind, cloud.NewStore[T](backend, kind, nil), persist, opts)
}

// Backend returns the shared remote backend.
func (p *Planner) Backend() cloud.Backend { return p.backend }

// Collections returns the managers in types.StandardKinds order.
func (p *Planner) Collections() []Collection {
	return []Collection{p.Items, p.Categories, p.Habits, p.Completions, p.Routines, p.Progress}
}

// Collection returns the manager for kind.
func (p *Planner) Collection(kind string) (Collection, error) {
	for _, c := range p.Collections() {
		if c.Kind() == kind {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnknownKind, kind)
}

// List returns a snapshot of kind's records in display order.
func (p *Planner) List(kind string) ([]any, error) {
	switch kind {
	case types.KindItems:
		return anys(p.Items.Items()), nil
	case types.KindCategories:
		return anys(p.Categories.Items()), nil
	case types.KindHabits:
		return anys(p.Habits.Items()), nil
	case types.KindHabitCompletions:
		return anys(p.Completions.Items()), nil
	case types.KindRoutines:
		return anys(p.Routines.Items()), nil
	case types.KindRoutineProgress:
		return anys(p.Progress.Items()), nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnknownKind, kind)
}

func anys[T any](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// Recurring returns the scheduled entity of kind with id. Only items,
// habits and routines have schedules.
func (p *Planner) Recurring(kind, id string) (types.Recurring, error) {
	var (
		rec types.Recurring
		ok  bool
	)
	switch kind {
	case types.KindItems:
		rec, ok = p.Items.Get(id)
	case types.KindHabits:
		rec, ok = p.Habits.Get(id)
	case types.KindRoutines:
		rec, ok = p.Routines.Get(id)
	default:
		return nil, fmt.Errorf("%w: %q has no schedule", types.ErrUnknownKind, kind)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", types.ErrNotFound, kind, id)
	}
	return rec, nil
}

// SyncAll syncs every kind concurrently. A failing kind does not stop the
// others; their errors are joined.
func (p *Planner) SyncAll(ctx context.Context) (map[string]manager.SyncResult, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]manager.SyncResult)
		errs    []error
	)
	for _, c := range p.Collections() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Sync(ctx)
			mu.Lock()
			defer mu.Unlock()
			results[c.Kind()] = res
			if err != nil {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()
	return results, errors.Join(errs...)
}

// Flush waits for queued remote work in every kind.
func (p *Planner) Flush(ctx context.Context) error {
	var errs []error
	for _, c := range p.Collections() {
		if err := c.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckIn records that habitID was done on the day of day. The first
// check-in of a day creates a completion; later ones increment its count.
func (p *Planner) CheckIn(habitID string, day time.Time) (types.HabitCompletion, error) {
	if _, ok := p.Habits.Get(habitID); !ok {
		return types.HabitCompletion{}, fmt.Errorf("%w: habit %q", types.ErrNotFound, habitID)
	}
	day = recurrence.Day(day)
	for _, c := range p.Completions.Items() {
		if c.HabitID == habitID && recurrence.Day(c.Day).Equal(day) {
			c.Count++
			return p.Completions.Update(c)
		}
	}
	return p.Completions.Add(types.HabitCompletion{HabitID: habitID, Day: day, Count: 1})
}

// HabitHistory returns the completions recorded for habitID, oldest day
// first.
func (p *Planner) HabitHistory(habitID string) []types.HabitCompletion {
	var out []types.HabitCompletion
	for _, c := range p.Completions.Items() {
		if c.HabitID == habitID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b types.HabitCompletion) int { return a.Day.Compare(b.Day) })
	return out
}

// CompleteItem marks the item done.
func (p *Planner) CompleteItem(id string) (types.Item, error) {
	it, ok := p.Items.Get(id)
	if !ok {
		return types.Item{}, fmt.Errorf("%w: item %q", types.ErrNotFound, id)
	}
	it.Completed = true
	return p.Items.Update(it)
}

// CompleteStep marks step (zero-based) of a routine done on day.
func (p *Planner) CompleteStep(templateID string, day time.Time, step int) (types.RoutineProgress, error) {
	tmpl, ok := p.Routines.Get(templateID)
	if !ok {
		return types.RoutineProgress{}, fmt.Errorf("%w: routine %q", types.ErrNotFound, templateID)
	}
	if step < 0 || step >= len(tmpl.Steps) {
		return types.RoutineProgress{}, fmt.Errorf("%w: step %d, routine has %d", types.ErrInvalidPosition, step, len(tmpl.Steps))
	}
	day = recurrence.Day(day)
	for _, pr := range p.Progress.Items() {
		if pr.TemplateID == templateID && recurrence.Day(pr.Day).Equal(day) {
			if slices.Contains(pr.CompletedSteps, step) {
				return pr, nil
			}
			pr.CompletedSteps = append(slices.Clone(pr.CompletedSteps), step)
			slices.Sort(pr.CompletedSteps)
			return p.Progress.Update(pr)
		}
	}
	return p.Progress.Add(types.RoutineProgress{TemplateID: templateID, Day: day, CompletedSteps: []int{step}})
}

// Agenda lists items, habits and routines appearing in [from, to].
func (p *Planner) Agenda(from, to time.Time) ([]agenda.Entry, error) {
	return agenda.Between(from, to,
		agenda.From(types.KindItems, p.Items.Items()),
		agenda.From(types.KindHabits, p.Habits.Items()),
		agenda.From(types.KindRoutines, p.Routines.Items()),
	)
}

// Close closes every manager, flushing queued remote work, then the
// backend.
func (p *Planner) Close(ctx context.Context) error {
	err := p.closeManagers(ctx)
	return errors.Join(err, p.backend.Close())
}

func (p *Planner) closeManagers(ctx context.Context) error {
	var errs []error
	for _, c := range p.Collections() {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
