package cloud

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// Backend persists records for any number of kinds.
type Backend interface {
	// Name returns the backend name from types.Config.Backend.
	Name() string

	// Fetch returns every record of the kind, in no particular order.
	// Records the backend cannot read are logged and skipped.
	Fetch(ctx context.Context, kind string) ([]types.Record, error)

	// Put inserts or replaces the record with the same kind and id and
	// returns its ref.
	Put(ctx context.Context, rec types.Record) (types.RemoteRef, error)

	// Remove deletes the record a ref points at. Removing a record that is
	// already gone succeeds.
	Remove(ctx context.Context, ref types.RemoteRef) error

	// Close releases connections held by the backend.
	Close() error
}

// MakeRef builds the ref every backend hands out for a record.
func MakeRef(kind, id string) types.RemoteRef {
	return types.RemoteRef(kind + "/" + id)
}

// ParseRef splits a ref produced by MakeRef. Returns ErrInvalidRef if the
// ref is malformed.
func ParseRef(ref types.RemoteRef) (kind, id string, err error) {
	kind, id, ok := strings.Cut(string(ref), "/")
	if !ok || kind == "" || id == "" || strings.Contains(id, "/") {
		return "", "", fmt.Errorf("%w: %q", types.ErrInvalidRef, ref)
	}
	return kind, id, nil
}

// classify wraps err in ErrRemoteUnavailable when it looks like a
// connectivity failure and in fallback otherwise. Errors that already carry
// a store sentinel pass through.
func classify(op string, fallback, err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		types.ErrRemoteUnavailable,
		types.ErrTransientFetch,
		types.ErrSaveRejected,
		types.ErrDeleteRejected,
	} {
		if errors.Is(err, sentinel) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, types.ErrRemoteUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, fallback, err)
}

func isUnavailable(err error) bool {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return true
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return true
	case errors.Is(err, errClosed):
		return true
	}
	return false
}

var errClosed = errors.New("backend closed")
