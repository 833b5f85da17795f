package cloud

import (
	"context"
	"log/slog"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Store adapts a Backend to types.Store for one kind.
type Store[T types.Entity[T]] struct {
	backend Backend
	kind    string
	codec   types.Codec[T]
	logger  *slog.Logger
}

var _ types.Store[types.Item] = (*Store[types.Item])(nil)

// NewStore returns a Store for kind. A nil codec selects JSONCodec.
func NewStore[T types.Entity[T]](backend Backend, kind string, codec types.Codec[T]) *Store[T] {
	if codec == nil {
		codec = JSONCodec[T]{Kind: kind}
	}
	return &Store[T]{
		backend: backend,
		kind:    kind,
		codec:   codec,
		logger:  slog.Default().With("kind", kind, "backend", backend.Name()),
	}
}

// Kind returns the kind this store reads and writes.
func (s *Store[T]) Kind() string { return s.kind }

// FetchAll returns every remote record of the kind with refs populated.
// Records that fail to decode are skipped and logged, so one bad row does
// not hide the rest of the collection.
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	recs, err := s.backend.Fetch(ctx, s.kind)
	if err != nil {
		return nil, classify("fetch "+s.kind, types.ErrTransientFetch, err)
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		entity, err := s.codec.FromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping undecodable remote record", "id", rec.ID, "error", err)
			continue
		}
		m := entity.Metadata()
		m.Ref = MakeRef(s.kind, rec.ID)
		out = append(out, entity.WithMeta(m))
	}
	return out, nil
}

// Save upserts entity and returns it with its ref.
func (s *Store[T]) Save(ctx context.Context, entity T) (T, error) {
	rec, err := s.codec.ToRecord(entity)
	if err != nil {
		return entity, classify("encode "+s.kind, types.ErrSaveRejected, err)
	}
	ref, err := s.backend.Put(ctx, rec)
	if err != nil {
		return entity, classify("save "+s.kind+" "+rec.ID, types.ErrSaveRejected, err)
	}
	m := entity.Metadata()
	m.Ref = ref
	return entity.WithMeta(m), nil
}

// Delete removes the record ref points at. Refs belonging to another kind
// are rejected.
func (s *Store[T]) Delete(ctx context.Context, ref types.RemoteRef) error {
	kind, _, err := ParseRef(ref)
	if err != nil {
		return classify("delete "+s.kind, types.ErrDeleteRejected, err)
	}
	if kind != s.kind {
		return classify("delete "+s.kind, types.ErrDeleteRejected, types.ErrInvalidRef)
	}
	if err := s.backend.Remove(ctx, ref); err != nil {
		return classify("delete "+string(ref), types.ErrDeleteRejected, err)
	}
	return nil
}
