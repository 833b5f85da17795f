package types

import "errors"

// Recurrence errors.
var (
	ErrInvalidPattern = errors.New("invalid recurrence pattern")
)

// Store errors. Backends wrap driver failures in one of these.
var (
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrTransientFetch    = errors.New("transient fetch error")
	ErrSaveRejected      = errors.New("save rejected")
	ErrDeleteRejected    = errors.New("delete rejected")
)

// Collection errors.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrInvalidData     = errors.New("invalid entity data")
	ErrInvalidPosition = errors.New("position out of range")
	ErrUnknownKind     = errors.New("unknown entity kind")
	ErrInvalidRef      = errors.New("invalid remote reference")
	ErrClosed          = errors.New("manager is closed")
)
