package types

import "time"

// RemoteRef is an opaque handle to the persisted remote counterpart of an
// entity. It is empty until the first successful remote save. Only the Store
// that produced a ref interprets it; everything else threads it through.
type RemoteRef string

// IsZero reports whether the ref has not been assigned yet.
func (r RemoteRef) IsZero() bool { return r == "" }

// Meta carries the fields every versioned entity shares. Entity types embed
// it so the accessor methods below are promoted.
type Meta struct {
	ID           string    `json:"id"`            // UUID v7, assigned at creation.
	LastModified time.Time `json:"last_modified"` // Bumped on every local mutation.
	SortOrder    int       `json:"sort_order"`    // Dense, zero-based display order.
	Ref          RemoteRef `json:"remote_ref,omitempty"`
}

// EntityID returns the stable identity.
func (m Meta) EntityID() string { return m.ID }

// Modified returns the last modification timestamp.
func (m Meta) Modified() time.Time { return m.LastModified }

// Order returns the display position within the collection.
func (m Meta) Order() int { return m.SortOrder }

// Metadata returns the shared fields as a value.
func (m Meta) Metadata() Meta { return m }

// Touch returns a copy with LastModified set to at, unless that would move
// the timestamp backward.
func (m Meta) Touch(at time.Time) Meta {
	if at.After(m.LastModified) {
		m.LastModified = at
	}
	return m
}

// Versioned is the read side of the entity contract. It is all the merge
// needs to know about a record.
type Versioned interface {
	EntityID() string
	Modified() time.Time
	Order() int
}

// Entity is the full contract for a concrete entity type T. WithMeta returns
// a copy of the entity carrying the given shared fields; entity types are
// values, so callers never mutate a record another collection still holds.
type Entity[T any] interface {
	Versioned
	Metadata() Meta
	WithMeta(Meta) T
}

// Recurring is implemented by entities that materialize on the dates a
// recurrence pattern expands to.
type Recurring interface {
	Versioned
	Schedule() (pattern RecurrencePattern, base time.Time)
	Label() string
}
