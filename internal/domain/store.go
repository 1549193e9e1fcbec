package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the port for notification persistence.
// The PostgreSQL implementation lives in infrastructure/postgres.
type Store interface {
	// Create inserts one record and returns the saved entity with its
	// assigned id and timestamp. Fails with ErrUnaddressable before any
	// write when the input has neither addressing field, and with
	// ErrStoreUnavailable when the backing store rejects the insert.
	Create(ctx context.Context, input CreateInput) (*NotificationRecord, error)

	// MarkRead transitions a record to read=true. The transition is
	// idempotent: marking an already-read record succeeds silently.
	// Fails with ErrNotFound when the id does not exist.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkManyRead is the batch form of MarkRead and applies atomically:
	// either every id is marked read or none is and the error is surfaced.
	MarkManyRead(ctx context.Context, ids []uuid.UUID) error

	// Query returns records addressed to the user directly or broadcast to
	// the user's role, newest first, bounded by limit/offset.
	Query(ctx context.Context, filter QueryFilter) ([]*NotificationRecord, error)

	// CountUnread returns the number of unread records visible to the user.
	CountUnread(ctx context.Context, recipientID, role string) (int64, error)

	// PurgeOlderThan deletes records older than the given number of days
	// (retention cleanup). Returns the number of rows removed.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}
