package types

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the remote persistence collaborator for one entity type. The
// reconciliation engine never calls it; entity managers do.
type Store[T any] interface {
	// FetchAll returns every remote record of the type.
	// Fails with ErrRemoteUnavailable or ErrTransientFetch.
	FetchAll(ctx context.Context) ([]T, error)

	// Save upserts the entity by id and returns it with its RemoteRef set.
	// Saving the same entity twice is harmless.
	// Fails with ErrRemoteUnavailable or ErrSaveRejected.
	Save(ctx context.Context, entity T) (T, error)

	// Delete removes the remote record the ref points at.
	// Fails with ErrRemoteUnavailable or ErrDeleteRejected.
	Delete(ctx context.Context, ref RemoteRef) error
}

// Record is the backend-neutral persisted form of an entity. The indexed
// columns are lifted out of Fields so backends can store them natively.
type Record struct {
	Kind         string          `json:"kind"`
	ID           string          `json:"id"`
	LastModified time.Time       `json:"last_modified"`
	SortOrder    int             `json:"sort_order"`
	Fields       json.RawMessage `json:"fields"`
}

// Codec converts between an entity and its Record.
type Codec[T any] interface {
	ToRecord(entity T) (Record, error)
	FromRecord(rec Record) (T, error)
}
