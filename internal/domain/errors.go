package domain

import "errors"

// Sentinel errors shared across the store, the application service, and the
// HTTP transport. Callers match with errors.Is; implementations wrap them
// with operation context via fmt.Errorf("...: %w", ...).
var (
	// ErrUnaddressable rejects a record that has neither a direct recipient
	// nor a broadcast role. Nothing is persisted.
	ErrUnaddressable = errors.New("notification has no recipient and no role")

	// ErrNotFound is returned when a mark-read targets an id that does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrStoreUnavailable wraps persistence-layer failures. The caller must not
	// assume the write happened.
	ErrStoreUnavailable = errors.New("notification store unavailable")
)
