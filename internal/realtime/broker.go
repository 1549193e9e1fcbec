// Package realtime fans newly inserted notification records out to connected
// sessions. The Broker is the in-process publish/subscribe transport; the
// Reconciler keeps one session's view consistent with the store.
// Single-instance model: for multi-instance, replace the Broker with an
// external pub/sub.
package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fixtrack/notification/internal/domain"
)

// subscriberBuffer bounds how far a session may lag behind the publish
// stream before it is dropped and forced through a full re-sync.
const subscriberBuffer = 32

// Subscription is one session's handle on the insert stream. The channel is
// closed by the Broker when the subscriber falls too far behind, which the
// Reconciler treats as a transport disconnect.
type Subscription struct {
	ch     chan *domain.NotificationRecord
	broker *Broker
}

// C returns the stream of inserted records. Closed on disconnect.
func (s *Subscription) C() <-chan *domain.NotificationRecord {
	return s.ch
}

// Close releases the subscription. Safe to call more than once and safe to
// race with the Broker dropping a slow subscriber.
func (s *Subscription) Close() {
	s.broker.remove(s)
}

// Broker delivers every inserted record to every active subscription.
// Broadcast-by-role records cannot be narrowed by recipient id here, so
// subscribers receive the full stream and apply their own access check.
type Broker struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new listener on the insert stream.
func (b *Broker) Subscribe() *Subscription {
	s := &Subscription{
		ch:     make(chan *domain.NotificationRecord, subscriberBuffer),
		broker: b,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish sends n to every subscriber. A subscriber whose buffer is full is
// disconnected rather than blocked on: it will re-fetch from the store, so
// dropping here loses nothing.
func (b *Broker) Publish(n *domain.NotificationRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		select {
		case s.ch <- n:
		default:
			delete(b.subs, s)
			close(s.ch)
			log.Warn().Str("id", n.ID.String()).Msg("slow subscriber dropped from notification stream")
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
}
