package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixtrack/notification/internal/domain"
)

// fakeStore serves a fixed query result and records read transitions.
type fakeStore struct {
	mu          sync.Mutex
	queryResult []*domain.NotificationRecord
	queryErr    error
	markReadErr error
	marked      []uuid.UUID
}

func (f *fakeStore) Create(context.Context, domain.CreateInput) (*domain.NotificationRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) MarkRead(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeStore) MarkManyRead(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.marked = append(f.marked, ids...)
	return nil
}

func (f *fakeStore) Query(context.Context, domain.QueryFilter) ([]*domain.NotificationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return append([]*domain.NotificationRecord(nil), f.queryResult...), nil
}

func (f *fakeStore) CountUnread(context.Context, string, string) (int64, error) { return 0, nil }
func (f *fakeStore) PurgeOlderThan(context.Context, int) (int64, error)         { return 0, nil }

func adminRecord(taskID, message string, read bool) *domain.NotificationRecord {
	return &domain.NotificationRecord{
		ID:        uuid.New(),
		ForRole:   domain.RoleAdmin,
		Title:     "title",
		Message:   message,
		Type:      domain.TypeStatusChange,
		TaskID:    taskID,
		Read:      read,
		CreatedAt: time.Now(),
	}
}

// waitFor reads updates until pred matches or the deadline passes.
func waitFor(t *testing.T, r *Reconciler, pred func(Update) bool) Update {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-r.Updates():
			if pred(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for reconciler update")
		}
	}
}

func startLive(t *testing.T, store *fakeStore, broker *Broker) (*Reconciler, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := NewReconciler(store, broker, "admin-1", domain.RoleAdmin, 50)
	go r.Run(ctx)
	waitFor(t, r, func(u Update) bool { return u.Resync })
	require.Equal(t, StateLive, r.State())
	return r, cancel
}

func TestReconciler_SyncDeduplicatesAndCountsUnread(t *testing.T) {
	dup := adminRecord("42", "task 42 completed", false)
	store := &fakeStore{queryResult: []*domain.NotificationRecord{
		dup,
		adminRecord("42", "task 42 completed", false), // same logical event
		adminRecord("7", "task 7 created", true),
	}}
	r, cancel := startLive(t, store, NewBroker())
	defer cancel()

	view, unread := r.Snapshot()
	assert.Len(t, view, 2)
	assert.Equal(t, 1, unread)
	assert.Equal(t, dup.ID, view[0].ID, "first occurrence survives")
}

func TestReconciler_StreamedInsertsWithDuplicates(t *testing.T) {
	// N=2 fetched, M=3 streamed of which K=1 duplicates an existing identity.
	store := &fakeStore{queryResult: []*domain.NotificationRecord{
		adminRecord("1", "a", false),
		adminRecord("2", "b", false),
	}}
	broker := NewBroker()
	r, cancel := startLive(t, store, broker)
	defer cancel()

	broker.Publish(adminRecord("3", "c", false))
	broker.Publish(adminRecord("1", "a", false)) // duplicate of a fetched record
	broker.Publish(adminRecord("4", "d", false))

	waitFor(t, r, func(u Update) bool { return u.Record != nil && u.Record.TaskID == "4" })

	view, unread := r.Snapshot()
	assert.Len(t, view, 4, "final view length is N + (M - K)")
	assert.Equal(t, 4, unread, "duplicates increment nothing")
	assert.Equal(t, "4", view[0].TaskID, "streamed records are prepended newest-first")
}

func TestReconciler_OverlapDeliversOnce(t *testing.T) {
	// The same completion for task 42 arrives via bulk fetch and the stream.
	fetched := adminRecord("42", "task 42 completed", false)
	store := &fakeStore{queryResult: []*domain.NotificationRecord{fetched}}
	broker := NewBroker()
	r, cancel := startLive(t, store, broker)
	defer cancel()

	replay := adminRecord("42", "task 42 completed", false)
	broker.Publish(replay)
	broker.Publish(adminRecord("9", "marker", false))
	waitFor(t, r, func(u Update) bool { return u.Record != nil && u.Record.TaskID == "9" })

	view, _ := r.Snapshot()
	count := 0
	for _, n := range view {
		if n.TaskID == "42" {
			count++
		}
	}
	assert.Equal(t, 1, count, "overlap renders as one feed entry")
}

func TestReconciler_AccessCheckRejectsForeignRecords(t *testing.T) {
	store := &fakeStore{}
	broker := NewBroker()
	r, cancel := startLive(t, store, broker)
	defer cancel()

	other := &domain.NotificationRecord{
		ID: uuid.New(), RecipientID: "tech-2", Title: "t", Message: "assigned",
		Type: domain.TypeTaskAssigned, TaskID: "5", CreatedAt: time.Now(),
	}
	broker.Publish(other)
	broker.Publish(adminRecord("9", "marker", false))
	waitFor(t, r, func(u Update) bool { return u.Record != nil && u.Record.TaskID == "9" })

	view, _ := r.Snapshot()
	require.Len(t, view, 1)
	assert.Equal(t, "9", view[0].TaskID, "another user's direct notification is never admitted")
}

func TestReconciler_MarkReadRollsBackOnStoreFailure(t *testing.T) {
	n := adminRecord("1", "a", false)
	store := &fakeStore{queryResult: []*domain.NotificationRecord{n}}
	r, cancel := startLive(t, store, NewBroker())
	defer cancel()

	store.mu.Lock()
	store.markReadErr = domain.ErrStoreUnavailable
	store.mu.Unlock()

	err := r.MarkRead(context.Background(), n.ID)
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	view, unread := r.Snapshot()
	assert.False(t, view[0].Read, "optimistic read state rolled back")
	assert.Equal(t, 1, unread)
}

func TestReconciler_MarkReadIsIdempotentInView(t *testing.T) {
	n := adminRecord("1", "a", false)
	store := &fakeStore{queryResult: []*domain.NotificationRecord{n}}
	r, cancel := startLive(t, store, NewBroker())
	defer cancel()

	ctx := context.Background()
	require.NoError(t, r.MarkRead(ctx, n.ID))
	require.NoError(t, r.MarkRead(ctx, n.ID))

	_, unread := r.Snapshot()
	assert.Equal(t, 0, unread)
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.marked, 1, "the second call never reaches the store")
}

func TestReconciler_MarkAllReadRollsBackAsASet(t *testing.T) {
	store := &fakeStore{queryResult: []*domain.NotificationRecord{
		adminRecord("1", "a", false),
		adminRecord("2", "b", false),
	}}
	r, cancel := startLive(t, store, NewBroker())
	defer cancel()

	store.mu.Lock()
	store.markReadErr = domain.ErrNotFound
	store.mu.Unlock()

	err := r.MarkAllRead(context.Background())
	require.Error(t, err)

	view, unread := r.Snapshot()
	assert.Equal(t, 2, unread)
	for _, n := range view {
		assert.False(t, n.Read)
	}
}

func TestReconciler_SessionEndReleasesSubscription(t *testing.T) {
	store := &fakeStore{}
	broker := NewBroker()
	r, cancel := startLive(t, store, broker)

	require.Equal(t, 1, broker.SubscriberCount())
	cancel()

	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0 && r.State() == StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconciler_DroppedSubscriptionTriggersResync(t *testing.T) {
	store := &fakeStore{}
	broker := NewBroker()
	r, cancel := startLive(t, store, broker)
	defer cancel()

	// Drop every subscriber the way the broker would drop a slow one, then
	// expect the reconciler to re-enter Syncing and come back Live with a
	// fresh fetch that now contains a record.
	store.mu.Lock()
	store.queryResult = []*domain.NotificationRecord{adminRecord("1", "a", false)}
	store.mu.Unlock()

	broker.mu.Lock()
	for s := range broker.subs {
		delete(broker.subs, s)
		close(s.ch)
	}
	broker.mu.Unlock()

	waitFor(t, r, func(u Update) bool { return u.Resync })
	require.Eventually(t, func() bool { return r.State() == StateLive }, 2*time.Second, 10*time.Millisecond)

	view, _ := r.Snapshot()
	assert.Len(t, view, 1, "reconnect performs a full re-fetch")
}

func TestReconciler_SyncFailureRetries(t *testing.T) {
	store := &fakeStore{queryErr: domain.ErrStoreUnavailable}
	broker := NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewReconciler(store, broker, "admin-1", domain.RoleAdmin, 50)
	r.retryDelay = 10 * time.Millisecond
	go r.Run(ctx)

	// Let the first sync fail, then heal the store.
	time.Sleep(20 * time.Millisecond)
	store.mu.Lock()
	store.queryErr = nil
	store.mu.Unlock()

	waitFor(t, r, func(u Update) bool { return u.Resync })
	assert.Equal(t, StateLive, r.State())
}
