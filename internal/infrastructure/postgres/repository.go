package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixtrack/notification/internal/domain"
)

// Repository is the PostgreSQL implementation of domain.Store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new postgres Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = "id, recipient_id, for_role, title, message, type, task_id, read, created_at"

// Create inserts one notification record. Unaddressable inputs are rejected
// before touching the store.
func (r *Repository) Create(ctx context.Context, input domain.CreateInput) (*domain.NotificationRecord, error) {
	if !input.Addressable() {
		return nil, fmt.Errorf("insert notification: %w", domain.ErrUnaddressable)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, for_role, title, message, type, task_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+recordColumns,
		nullable(input.RecipientID), nullable(input.ForRole),
		input.Title, input.Message, string(input.Type), nullable(input.TaskID),
	)

	n, err := scanRecord(row)
	if err != nil {
		return nil, unavailable("insert notification", err)
	}
	return n, nil
}

// MarkRead transitions a record to read. Idempotent: the update matches the
// row whether or not it is already read, so only a missing id fails.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return unavailable("mark read", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark read %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkManyRead marks a batch of records read in one transaction. If any id is
// missing the whole batch rolls back; partial application is never reported
// as success.
func (r *Repository) MarkManyRead(ctx context.Context, ids []uuid.UUID) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return unavailable("mark many read", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = ANY($1)`, ids)
	if err != nil {
		return unavailable("mark many read", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("mark many read: %d of %d ids matched: %w",
			tag.RowsAffected(), len(ids), domain.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("mark many read", err)
	}
	return nil
}

// Query returns records addressed to the user directly plus records broadcast
// to the user's role, newest first. Only admin broadcasts exist today, so for
// non-admin roles the role predicate matches nothing and the result collapses
// to direct notifications only.
func (r *Repository) Query(ctx context.Context, f domain.QueryFilter) ([]*domain.NotificationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM notifications
		WHERE recipient_id = $1 OR (for_role IS NOT NULL AND for_role = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, f.RecipientID, f.Role, f.Limit, f.Offset)
	if err != nil {
		return nil, unavailable("query notifications", err)
	}
	defer rows.Close()

	var results []*domain.NotificationRecord
	for rows.Next() {
		n, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable("query notifications", err)
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query notifications", err)
	}
	return results, nil
}

// CountUnread returns the unread badge count across the same visibility rule
// as Query.
func (r *Repository) CountUnread(ctx context.Context, recipientID, role string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE read = FALSE AND (recipient_id = $1 OR (for_role IS NOT NULL AND for_role = $2))
	`, recipientID, role).Scan(&count)
	if err != nil {
		return 0, unavailable("count unread", err)
	}
	return count, nil
}

// PurgeOlderThan deletes records older than the given number of days.
func (r *Repository) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, unavailable("purge notifications", err)
	}
	return tag.RowsAffected(), nil
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*domain.NotificationRecord, error) {
	var n domain.NotificationRecord
	var recipientID, forRole, taskID *string

	err := row.Scan(&n.ID, &recipientID, &forRole, &n.Title, &n.Message,
		&n.Type, &taskID, &n.Read, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	if recipientID != nil {
		n.RecipientID = *recipientID
	}
	if forRole != nil {
		n.ForRole = *forRole
	}
	if taskID != nil {
		n.TaskID = *taskID
	}
	return &n, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
