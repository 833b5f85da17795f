package reconcile

import (
	"cmp"
	"slices"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Merge combines local and remote into one collection with each id exactly
// once. For an id on both sides the record with the strictly later
// LastModified wins; on a tie the local record is kept. Records present on
// only one side are kept as they are.
//
// The result is ordered by SortOrder, then id. Sort orders are not
// renumbered: that only happens on explicit reorder (see Renumber).
//
// Duplicate ids within one input are a caller bug; the last one wins.
func Merge[T types.Versioned](local, remote []T) []T {
	byID := make(map[string]T, len(local)+len(remote))
	for _, rec := range local {
		byID[rec.EntityID()] = rec
	}
	for _, rec := range remote {
		cur, ok := byID[rec.EntityID()]
		if ok && !rec.Modified().After(cur.Modified()) {
			continue
		}
		byID[rec.EntityID()] = rec
	}

	merged := make([]T, 0, len(byID))
	for _, rec := range byID {
		merged = append(merged, rec)
	}
	slices.SortFunc(merged, compareOrder[T])
	return merged
}

// Pending returns the local records that the remote side does not have yet
// or holds an older copy of, in local order. It is the minimal push set
// after a merge; pushing every local record is also correct because saves
// are idempotent by id.
func Pending[T types.Versioned](local, remote []T) []T {
	remoteModified := make(map[string]T, len(remote))
	for _, rec := range remote {
		remoteModified[rec.EntityID()] = rec
	}

	var out []T
	for _, rec := range local {
		r, ok := remoteModified[rec.EntityID()]
		if ok && !rec.Modified().After(r.Modified()) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func compareOrder[T types.Versioned](a, b T) int {
	if c := cmp.Compare(a.Order(), b.Order()); c != 0 {
		return c
	}
	return cmp.Compare(a.EntityID(), b.EntityID())
}
