// Package local persists each kind's local collection as a JSONL file in
// the data directory. The file is the offline source of truth: managers
// load it at startup and rewrite it after every mutation.
package local

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Collection reads and writes one kind's file, <dataDir>/<kind>.jsonl.
type Collection[T types.Entity[T]] struct {
	kind string
	path string
}

// NewCollection returns the collection for kind under dataDir.
func NewCollection[T types.Entity[T]](dataDir, kind string) *Collection[T] {
	return &Collection[T]{kind: kind, path: filepath.Join(dataDir, kind+".jsonl")}
}

// Kind returns the collection's kind.
func (c *Collection[T]) Kind() string { return c.kind }

// Path returns the JSONL file path.
func (c *Collection[T]) Path() string { return c.path }

// Load returns the records in file order. Lines that are not valid JSON, do
// not decode into T, or carry no id are skipped. A missing file loads as an
// empty collection.
func (c *Collection[T]) Load() ([]T, error) {
	raw, err := readJSONL(c.path)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, line := range raw {
		var entity T
		if err := json.Unmarshal(line, &entity); err != nil {
			continue
		}
		if entity.EntityID() == "" {
			continue
		}
		out = append(out, entity)
	}
	return out, nil
}

// Save replaces the file with items, in slice order.
func (c *Collection[T]) Save(items []T) error {
	records := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		line, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", c.kind, it.EntityID(), err)
		}
		records = append(records, line)
	}
	return writeJSONL(c.path, records)
}
