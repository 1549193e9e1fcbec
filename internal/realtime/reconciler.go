package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fixtrack/notification/internal/domain"
)

// State is the lifecycle phase of a session's reconciler.
type State int

const (
	// StateDisconnected: no subscription active, view empty or discarded.
	StateDisconnected State = iota
	// StateSyncing: bulk fetch in flight.
	StateSyncing
	// StateLive: view merged and authoritative for the session, stream active.
	StateLive
	// StateReconnecting: stream dropped, a full re-sync is pending.
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSyncing:
		return "syncing"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Update is pushed to the transport whenever the session view changes.
// Resync means the whole view was replaced and should be re-read via
// Snapshot; otherwise Record is the single freshly admitted entry.
type Update struct {
	Resync bool
	Record *domain.NotificationRecord
	Unread int
}

// Reconciler maintains a live, per-session view of the notification feed by
// merging an initial bulk fetch with the broker's insert stream. The view is
// never shared across sessions and is discarded when Run returns.
type Reconciler struct {
	store  domain.Store
	broker *Broker
	userID string
	role   string
	limit  int

	retryDelay time.Duration

	mu     sync.Mutex
	state  State
	view   []*domain.NotificationRecord
	seen   map[domain.EventKey]struct{}
	unread int

	updates chan Update
}

// NewReconciler creates a reconciler for one connected session.
func NewReconciler(store domain.Store, broker *Broker, userID, role string, limit int) *Reconciler {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return &Reconciler{
		store:      store,
		broker:     broker,
		userID:     userID,
		role:       role,
		limit:      limit,
		retryDelay: 2 * time.Second,
		state:      StateDisconnected,
		updates:    make(chan Update, subscriberBuffer),
	}
}

// Updates returns the change stream the transport renders from. The channel
// is never closed; consumers stop on their own context.
func (r *Reconciler) Updates() <-chan Update {
	return r.updates
}

// State returns the current lifecycle phase.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns a copy of the current view (newest first) and the unread
// count. The copies are safe to marshal while the reconciler keeps running.
func (r *Reconciler) Snapshot() ([]domain.NotificationRecord, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.NotificationRecord, len(r.view))
	for i, n := range r.view {
		out[i] = *n
	}
	return out, r.unread
}

// Run drives the session state machine until ctx is cancelled: subscribe,
// bulk fetch, merge, then consume the stream; on stream loss, re-enter
// Syncing with a full re-fetch. The subscription is established before the
// fetch so an insert racing the query is observed on the stream — dedupe
// makes the double observation harmless.
func (r *Reconciler) Run(ctx context.Context) {
	defer r.setState(StateDisconnected)

	for ctx.Err() == nil {
		r.setState(StateSyncing)
		sub := r.broker.Subscribe()

		if err := r.sync(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("user", r.userID).Msg("session sync failed, retrying")
			select {
			case <-time.After(r.retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		r.setState(StateLive)
		r.push(Update{Resync: true, Unread: r.unreadCount()})

		if !r.consume(ctx, sub) {
			return
		}
		// Stream dropped: full re-fetch, never replay from the stream alone.
		r.setState(StateReconnecting)
	}
}

// consume processes streamed inserts while Live. Returns false when the
// session ended, true when the subscription was dropped and a re-sync is due.
func (r *Reconciler) consume(ctx context.Context, sub *Subscription) bool {
	for {
		select {
		case n, ok := <-sub.C():
			if !ok {
				return true
			}
			r.admit(n)
		case <-ctx.Done():
			sub.Close()
			return false
		}
	}
}

// sync replaces the view with a fresh role-filtered bulk fetch, deduplicated,
// and recomputes the unread count.
func (r *Reconciler) sync(ctx context.Context) error {
	records, err := r.store.Query(ctx, domain.QueryFilter{
		RecipientID: r.userID,
		Role:        r.role,
		Limit:       r.limit,
	})
	if err != nil {
		return fmt.Errorf("bulk fetch: %w", err)
	}
	records = domain.Dedupe(records)

	seen := make(map[domain.EventKey]struct{}, len(records))
	unread := 0
	for _, n := range records {
		seen[n.Key()] = struct{}{}
		if !n.Read {
			unread++
		}
	}

	r.mu.Lock()
	r.view = records
	r.seen = seen
	r.unread = unread
	r.mu.Unlock()
	return nil
}

// admit applies the access check and the dedupe rule to one streamed record,
// prepending it to the view when it is new. Duplicates increment nothing.
func (r *Reconciler) admit(n *domain.NotificationRecord) {
	if !n.VisibleTo(r.userID, r.role) {
		return
	}

	// The broker hands every session the same pointer; keep a private copy
	// so read-state changes stay confined to this view.
	own := *n

	r.mu.Lock()
	key := own.Key()
	if _, dup := r.seen[key]; dup {
		r.mu.Unlock()
		return
	}
	r.seen[key] = struct{}{}
	r.view = append([]*domain.NotificationRecord{&own}, r.view...)
	if !own.Read {
		r.unread++
	}
	unread := r.unread
	r.mu.Unlock()

	r.push(Update{Record: &own, Unread: unread})
}

// MarkRead optimistically marks a view entry read, persists the transition,
// and rolls the view back if the store rejects it. Marking an already-read
// entry is a no-op.
func (r *Reconciler) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	var target *domain.NotificationRecord
	for _, n := range r.view {
		if n.ID == id {
			target = n
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	if target.Read {
		r.mu.Unlock()
		return nil
	}
	target.Read = true
	r.unread--
	r.mu.Unlock()

	if err := r.store.MarkRead(ctx, id); err != nil {
		r.mu.Lock()
		target.Read = false
		r.unread++
		r.mu.Unlock()
		return fmt.Errorf("mark read: %w", err)
	}

	r.push(Update{Unread: r.unreadCount()})
	return nil
}

// MarkAllRead marks every unread view entry read through the store's atomic
// batch update, rolling back the whole set on failure.
func (r *Reconciler) MarkAllRead(ctx context.Context) error {
	r.mu.Lock()
	var pending []*domain.NotificationRecord
	for _, n := range r.view {
		if !n.Read {
			pending = append(pending, n)
		}
	}
	if len(pending) == 0 {
		r.mu.Unlock()
		return nil
	}
	ids := make([]uuid.UUID, len(pending))
	for i, n := range pending {
		ids[i] = n.ID
		n.Read = true
	}
	r.unread = 0
	r.mu.Unlock()

	if err := r.store.MarkManyRead(ctx, ids); err != nil {
		r.mu.Lock()
		for _, n := range pending {
			n.Read = false
		}
		// += rather than =: inserts admitted since the optimistic step may
		// have raised the count already.
		r.unread += len(pending)
		r.mu.Unlock()
		return fmt.Errorf("mark all read: %w", err)
	}

	r.push(Update{Unread: 0})
	return nil
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Reconciler) unreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

// push hands an update to the transport without ever blocking the state
// machine. A full transport buffer only costs granularity: the consumer can
// always recover the complete view from Snapshot.
func (r *Reconciler) push(u Update) {
	select {
	case r.updates <- u:
	default:
		log.Debug().Str("user", r.userID).Msg("session update buffer full, dropping update")
	}
}
