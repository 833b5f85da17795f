package cloud

import (
	"context"
	"slices"
	"sync"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Memory is an in-process Backend. SetOffline makes every call fail with
// ErrRemoteUnavailable, which simulates losing connectivity.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string]types.Record
	offline bool
	closed  bool
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty memory backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]map[string]types.Record)}
}

// Name implements Backend.
func (m *Memory) Name() string { return types.BackendMemory }

// SetOffline toggles simulated unavailability.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// Len returns the number of records stored for kind.
func (m *Memory) Len(kind string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[kind])
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed {
		return errClosed
	}
	if m.offline {
		return types.ErrRemoteUnavailable
	}
	return nil
}

// Fetch implements Backend. Records come back ordered by id.
func (m *Memory) Fetch(ctx context.Context, kind string) ([]types.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	byID := m.records[kind]
	out := make([]types.Record, 0, len(byID))
	for _, rec := range byID {
		rec.Fields = slices.Clone(rec.Fields)
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b types.Record) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

// Put implements Backend.
func (m *Memory) Put(ctx context.Context, rec types.Record) (types.RemoteRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return "", err
	}
	if rec.Kind == "" || rec.ID == "" {
		return "", types.ErrInvalidID
	}
	byID, ok := m.records[rec.Kind]
	if !ok {
		byID = make(map[string]types.Record)
		m.records[rec.Kind] = byID
	}
	rec.Fields = slices.Clone(rec.Fields)
	byID[rec.ID] = rec
	return MakeRef(rec.Kind, rec.ID), nil
}

// Remove implements Backend.
func (m *Memory) Remove(ctx context.Context, ref types.RemoteRef) error {
	kind, id, err := ParseRef(ref)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	delete(m.records[kind], id)
	return nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
