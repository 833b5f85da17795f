package reconcile

import (
	"fmt"
	"slices"
	"time"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Renumber returns a copy of items whose sort orders run 0..n-1 in slice
// order. Records whose order changes are touched at now so the new position
// wins the next merge; LastModified never moves backward.
func Renumber[T types.Entity[T]](items []T, now time.Time) []T {
	out := make([]T, len(items))
	for i, rec := range items {
		if rec.Order() == i {
			out[i] = rec
			continue
		}
		m := rec.Metadata().Touch(now)
		m.SortOrder = i
		out[i] = rec.WithMeta(m)
	}
	return out
}

// Sorted returns a copy of items ordered by SortOrder, then id.
func Sorted[T types.Versioned](items []T) []T {
	out := slices.Clone(items)
	slices.SortFunc(out, compareOrder[T])
	return out
}

// Move returns a copy of items with the record at index from moved to index
// to, renumbered. Indexes refer to the slice as given. Returns
// ErrInvalidPosition if either index is out of range.
func Move[T types.Entity[T]](items []T, from, to int, now time.Time) ([]T, error) {
	if from < 0 || from >= len(items) {
		return nil, fmt.Errorf("%w: from %d, have %d records", types.ErrInvalidPosition, from, len(items))
	}
	if to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: to %d, have %d records", types.ErrInvalidPosition, to, len(items))
	}
	out := slices.Clone(items)
	rec := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, rec)
	return Renumber(out, now), nil
}

// Remove returns a renumbered copy of items without the record with the
// given id, and whether it was found.
func Remove[T types.Entity[T]](items []T, id string, now time.Time) ([]T, bool) {
	idx := slices.IndexFunc(items, func(rec T) bool { return rec.EntityID() == id })
	if idx < 0 {
		return slices.Clone(items), false
	}
	out := slices.Delete(slices.Clone(items), idx, idx+1)
	return Renumber(out, now), true
}
