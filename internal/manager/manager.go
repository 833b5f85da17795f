// Package manager owns one entity kind's local collection and keeps it in
// step with the remote Store.
//
// Local mutations apply at once: they stamp LastModified, renumber sort
// orders where positions change, persist the collection, and queue remote
// saves and deletes for a background worker according to the sync strategy.
// Sync is the only reconciliation point: it flushes queued work, fetches
// the remote snapshot, merges it last-write-wins, and pushes local records
// back. Background failures are logged, observed and handed to OnError,
// but never retried.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/almanac/internal/reconcile"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Persister stores the local collection. local.Collection implements it.
type Persister[T any] interface {
	Load() ([]T, error)
	Save(items []T) error
}

// Manager is safe for concurrent use.
type Manager[T types.Entity[T]] struct {
	kind   string
	store  types.Store[T]
	local  Persister[T]
	opts   Options
	logger *slog.Logger

	ctx    context.Context // background remote work
	cancel context.CancelFunc
	queue  *queue[T]
	events broadcaster

	mu     sync.Mutex
	items  []T
	closed bool
}

// New returns a Manager for kind. local may be nil, in which case the
// collection lives only in memory.
func New[T types.Entity[T]](kind string, store types.Store[T], local Persister[T], opts Options) *Manager[T] {
	opts = opts.withDefaults(kind)
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager[T]{
		kind:   kind,
		store:  store,
		local:  local,
		opts:   opts,
		logger: opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
	m.queue = newQueue(opts.SyncStrategy, opts.BatchSize, m.runRemote)
	return m
}

// Kind returns the managed kind.
func (m *Manager[T]) Kind() string { return m.kind }

// Load replaces the in-memory collection with the persisted one, ordered by
// sort order.
func (m *Manager[T]) Load() error {
	if m.local == nil {
		return nil
	}
	items, err := m.local.Load()
	if err != nil {
		return fmt.Errorf("loading %s: %w", m.kind, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrClosed
	}
	m.items = reconcile.Sorted(items)
	m.logger.Debug("loaded local collection", "count", len(items))
	return nil
}

// Items returns a snapshot of the collection in display order.
func (m *Manager[T]) Items() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// Len returns the number of records.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Get returns the record with id.
func (m *Manager[T]) Get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.items[i], true
	}
	var zero T
	return zero, false
}

// Add appends entity to the end of the collection. An empty id is assigned
// one; an id already present is rejected with ErrInvalidID. The stored
// record, with its metadata set, is returned.
func (m *Manager[T]) Add(entity T) (T, error) {
	if err := validate(entity); err != nil {
		return entity, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return entity, types.ErrClosed
	}

	meta := entity.Metadata()
	if meta.ID == "" {
		meta.ID = m.opts.NewID()
	} else if m.indexLocked(meta.ID) >= 0 {
		return entity, fmt.Errorf("%w: %s %s already exists", types.ErrInvalidID, m.kind, meta.ID)
	}
	now := m.opts.Clock()
	meta.SortOrder = len(m.items)
	meta.Ref = ""
	meta = meta.Touch(now)
	entity = entity.WithMeta(meta)

	// A sync may have adopted sparse remote orders; close the gaps so the
	// new record lands directly after the last one.
	before := m.items
	next := reconcile.Renumber(append(slices.Clone(before), entity), now)
	entity = next[len(next)-1]
	if err := m.commitLocked(next); err != nil {
		return entity, err
	}
	m.queue.enqueue(remoteOp[T]{kind: opSave, id: meta.ID, entity: entity})
	m.enqueueReordered(before, next)
	m.publish(EventAdded, meta.ID, nil)
	return entity, nil
}

// Update replaces the record with entity's id. Identity, position and
// remote ref are kept from the stored record; LastModified is bumped.
func (m *Manager[T]) Update(entity T) (T, error) {
	if err := validate(entity); err != nil {
		return entity, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return entity, types.ErrClosed
	}

	id := entity.EntityID()
	i := m.indexLocked(id)
	if i < 0 {
		return entity, fmt.Errorf("%w: %s %q", types.ErrNotFound, m.kind, id)
	}
	entity = entity.WithMeta(m.items[i].Metadata().Touch(m.opts.Clock()))

	next := slices.Clone(m.items)
	next[i] = entity
	if err := m.commitLocked(next); err != nil {
		return entity, err
	}
	m.queue.enqueue(remoteOp[T]{kind: opSave, id: id, entity: entity})
	m.publish(EventUpdated, id, nil)
	return entity, nil
}

// Delete removes the record locally and schedules the remote delete. The
// remote delete is fire-and-forget: a failure is reported, not retried.
func (m *Manager[T]) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrClosed
	}

	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s %q", types.ErrNotFound, m.kind, id)
	}
	before := m.items
	removed := before[i]
	next, _ := reconcile.Remove(before, id, m.opts.Clock())
	if err := m.commitLocked(next); err != nil {
		return err
	}

	m.queue.dropPending(id)
	if ref := removed.Metadata().Ref; !ref.IsZero() {
		m.queue.enqueue(remoteOp[T]{kind: opDelete, id: id, ref: ref})
	}
	m.enqueueReordered(before, next)
	m.publish(EventDeleted, id, nil)
	return nil
}

// Move moves the record at position from to position to and renumbers.
func (m *Manager[T]) Move(from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.ErrClosed
	}

	before := m.items
	next, err := reconcile.Move(before, from, to, m.opts.Clock())
	if err != nil {
		return err
	}
	if err := m.commitLocked(next); err != nil {
		return err
	}
	m.enqueueReordered(before, next)
	m.publish(EventMoved, before[from].EntityID(), nil)
	return nil
}

// enqueueReordered queues saves for records whose sort order differs
// between before and next.
func (m *Manager[T]) enqueueReordered(before, next []T) {
	orders := make(map[string]int, len(before))
	for _, rec := range before {
		orders[rec.EntityID()] = rec.Order()
	}
	for _, rec := range next {
		if prev, ok := orders[rec.EntityID()]; ok && prev != rec.Order() {
			m.queue.enqueue(remoteOp[T]{kind: opSave, id: rec.EntityID(), entity: rec})
		}
	}
}

// Sync flushes queued remote work, fetches the remote snapshot, merges it
// into the collection and pushes local records according to the push
// policy. A fetch failure leaves the collection untouched. Individual push
// failures are counted and joined into the returned error; the merge is
// kept either way.
func (m *Manager[T]) Sync(ctx context.Context) (SyncResult, error) {
	start := time.Now()
	res, err := m.sync(ctx)
	m.opts.Observer.ObserveSync(m.kind, res, time.Since(start), err)
	if err != nil {
		m.logger.Warn("sync failed", "fetched", res.Fetched, "pushed", res.Pushed, "failed", res.Failed, "error", err)
	} else {
		m.logger.Info("synced", "fetched", res.Fetched, "merged", res.Merged, "pushed", res.Pushed)
		m.publish(EventSynced, "", nil)
	}
	return res, err
}

func (m *Manager[T]) sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	if m.isClosed() {
		return res, types.ErrClosed
	}
	if err := m.queue.flush(ctx); err != nil {
		return res, fmt.Errorf("flushing %s: %w", m.kind, err)
	}
	remote, err := m.store.FetchAll(ctx)
	if err != nil {
		return res, fmt.Errorf("fetching %s: %w", m.kind, err)
	}
	res.Fetched = len(remote)

	m.mu.Lock()
	merged := adoptRemoteRefs(reconcile.Merge(m.items, remote), remote)
	var push []T
	if m.opts.PushPolicy == types.PushChanged {
		push = reconcile.Pending(merged, remote)
	} else {
		push = slices.Clone(merged)
	}
	err = m.commitLocked(merged)
	m.mu.Unlock()
	if err != nil {
		return res, err
	}
	res.Merged = len(merged)

	var errs []error
	refs := make(map[string]types.RemoteRef, len(push))
	for _, rec := range push {
		start := time.Now()
		saved, err := m.store.Save(ctx, rec)
		m.opts.Observer.ObserveRemote(m.kind, opSave.String(), time.Since(start), err)
		if err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("pushing %s %s: %w", m.kind, rec.EntityID(), err))
			continue
		}
		res.Pushed++
		refs[rec.EntityID()] = saved.Metadata().Ref
	}
	for _, id := range m.applyRefs(refs) {
		// Deleted locally while the push was in flight.
		m.queue.enqueue(remoteOp[T]{kind: opDelete, id: id, ref: refs[id]})
	}
	return res, errors.Join(errs...)
}

// adoptRemoteRefs gives merged records without a ref the ref of their
// remote copy. A local record that ties with the remote keeps its fields
// but must still address the remote object.
func adoptRemoteRefs[T types.Entity[T]](merged, remote []T) []T {
	refs := make(map[string]types.RemoteRef, len(remote))
	for _, rec := range remote {
		if ref := rec.Metadata().Ref; !ref.IsZero() {
			refs[rec.EntityID()] = ref
		}
	}
	for i, rec := range merged {
		meta := rec.Metadata()
		ref, ok := refs[meta.ID]
		if !ok || !meta.Ref.IsZero() {
			continue
		}
		meta.Ref = ref
		merged[i] = rec.WithMeta(meta)
	}
	return merged
}

// Flush releases queued remote work and waits for it to finish.
func (m *Manager[T]) Flush(ctx context.Context) error {
	if m.isClosed() {
		return types.ErrClosed
	}
	return m.queue.flush(ctx)
}

// Pending returns the number of remote operations held back by the sync
// strategy.
func (m *Manager[T]) Pending() int { return m.queue.pendingLen() }

// Subscribe returns a channel of change events and a function that ends
// the subscription. Slow subscribers miss events rather than block
// mutations. The channel is closed on cancel or Close.
func (m *Manager[T]) Subscribe() (<-chan Event, func()) {
	return m.events.subscribe()
}

// Close flushes queued remote work, stops the worker and closes
// subscriptions. Further mutations fail with ErrClosed. Close is
// idempotent.
func (m *Manager[T]) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	err := m.queue.flush(ctx)
	m.queue.close()
	m.cancel()
	m.events.closeAll()
	if err != nil {
		return fmt.Errorf("flushing %s on close: %w", m.kind, err)
	}
	return nil
}

// runRemote executes one background operation on the worker goroutine.
func (m *Manager[T]) runRemote(op remoteOp[T]) {
	start := time.Now()
	switch op.kind {
	case opSave:
		saved, err := m.store.Save(m.ctx, op.entity)
		m.opts.Observer.ObserveRemote(m.kind, op.kind.String(), time.Since(start), err)
		if err != nil {
			m.fail(op, err)
			return
		}
		ref := saved.Metadata().Ref
		if missing := m.applyRefs(map[string]types.RemoteRef{op.id: ref}); len(missing) > 0 {
			// The record was deleted before its save landed.
			m.runRemote(remoteOp[T]{kind: opDelete, id: op.id, ref: ref})
		}
	case opDelete:
		err := m.store.Delete(m.ctx, op.ref)
		m.opts.Observer.ObserveRemote(m.kind, op.kind.String(), time.Since(start), err)
		if err != nil {
			m.fail(op, err)
		}
	}
}

func (m *Manager[T]) fail(op remoteOp[T], err error) {
	m.logger.Error("remote operation failed", "op", op.kind.String(), "id", op.id, "error", err)
	if m.opts.OnError != nil {
		m.opts.OnError(Failure{Kind: m.kind, Op: op.kind.String(), ID: op.id, Err: err})
	}
	m.publish(EventRemoteError, op.id, err)
}

// applyRefs records remote refs on the matching records without touching
// LastModified, and returns the ids no longer in the collection.
func (m *Manager[T]) applyRefs(refs map[string]types.RemoteRef) []string {
	if len(refs) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		missing []string
		next    []T
	)
	for id, ref := range refs {
		i := m.indexLocked(id)
		if i < 0 {
			missing = append(missing, id)
			continue
		}
		meta := m.items[i].Metadata()
		if meta.Ref == ref {
			continue
		}
		if next == nil {
			next = slices.Clone(m.items)
		}
		meta.Ref = ref
		next[i] = next[i].WithMeta(meta)
	}
	slices.Sort(missing)
	if next != nil {
		if err := m.commitLocked(next); err != nil {
			m.logger.Error("persisting remote refs", "error", err)
		}
	}
	return missing
}

// commitLocked persists next and makes it the collection. On a persistence
// failure the collection is left unchanged.
func (m *Manager[T]) commitLocked(next []T) error {
	if m.local != nil {
		if err := m.local.Save(next); err != nil {
			return fmt.Errorf("persisting %s: %w", m.kind, err)
		}
	}
	m.items = next
	return nil
}

func (m *Manager[T]) indexLocked(id string) int {
	return slices.IndexFunc(m.items, func(rec T) bool { return rec.EntityID() == id })
}

func (m *Manager[T]) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager[T]) publish(op, id string, err error) {
	m.events.publish(Event{Kind: m.kind, Op: op, ID: id, Err: err})
}

// validate rejects recurring entities whose pattern is malformed.
func validate(entity any) error {
	if r, ok := entity.(types.Recurring); ok {
		pattern, _ := r.Schedule()
		if err := pattern.Validate(); err != nil {
			return err
		}
	}
	return nil
}
