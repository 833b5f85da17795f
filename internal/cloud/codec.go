package cloud

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

var _ types.Codec[types.Item] = JSONCodec[types.Item]{}

// JSONCodec stores the whole entity as JSON in Record.Fields and lifts the
// shared metadata into the record's columns. The remote ref is never
// encoded: it is a property of where the record lives, not of the record.
type JSONCodec[T types.Entity[T]] struct {
	Kind string
}

// ToRecord encodes entity.
func (c JSONCodec[T]) ToRecord(entity T) (types.Record, error) {
	m := entity.Metadata()
	if m.ID == "" {
		return types.Record{}, types.ErrInvalidID
	}
	m.Ref = ""
	fields, err := json.Marshal(entity.WithMeta(m))
	if err != nil {
		return types.Record{}, fmt.Errorf("encoding %s %s: %w", c.Kind, m.ID, err)
	}
	return types.Record{
		Kind:         c.Kind,
		ID:           m.ID,
		LastModified: m.LastModified,
		SortOrder:    m.SortOrder,
		Fields:       fields,
	}, nil
}

// FromRecord decodes rec. The record's columns win over any metadata found
// in Fields.
func (c JSONCodec[T]) FromRecord(rec types.Record) (T, error) {
	var entity T
	if rec.Kind != c.Kind {
		return entity, fmt.Errorf("%w: record kind %q, want %q", types.ErrInvalidData, rec.Kind, c.Kind)
	}
	if len(rec.Fields) > 0 {
		if err := json.Unmarshal(rec.Fields, &entity); err != nil {
			return entity, fmt.Errorf("%w: decoding %s %s: %w", types.ErrInvalidData, rec.Kind, rec.ID, err)
		}
	}
	m := entity.Metadata()
	m.ID = rec.ID
	m.LastModified = rec.LastModified
	m.SortOrder = rec.SortOrder
	m.Ref = ""
	return entity.WithMeta(m), nil
}
