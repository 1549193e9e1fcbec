package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixtrack/notification/internal/domain"
)

func publishOne(b *Broker) {
	b.Publish(&domain.NotificationRecord{
		ID:        uuid.New(),
		ForRole:   domain.RoleAdmin,
		Title:     "t",
		Message:   "m",
		Type:      domain.TypeNewTask,
		CreatedAt: time.Now(),
	})
}

func TestBroker_DeliversToAllSubscribers(t *testing.T) {
	b := NewBroker()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Close()
	defer s2.Close()

	publishOne(b)

	for _, s := range []*Subscription{s1, s2} {
		select {
		case n := <-s.C():
			assert.NotNil(t, n)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the record")
		}
	}
}

func TestBroker_DropsSlowSubscriber(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe()

	// Never drained: once the buffer fills, the next publish disconnects the
	// subscriber instead of blocking the publish path.
	for i := 0; i <= subscriberBuffer; i++ {
		publishOne(b)
	}

	require.Equal(t, 0, b.SubscriberCount())

	// Drain to the close: the channel must be closed, not left dangling.
	for i := 0; i < subscriberBuffer; i++ {
		<-s.C()
	}
	_, ok := <-s.C()
	assert.False(t, ok, "dropped subscription's channel is closed")
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe()

	s.Close()
	s.Close() // second close must not panic

	assert.Equal(t, 0, b.SubscriberCount())
	publishOne(b) // publishing with no subscribers is a no-op
}
