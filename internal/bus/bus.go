package bus

import (
	"sync"

	"github.com/bert4lyf/chit-chat/internal/metrics"
)

// Kind is an event kind on a room channel. The names match what clients see
// on the wire.
type Kind string

const (
	KindMessage Kind = "chat.message"
	KindDestroy Kind = "chat.destroy"
)

// Event is a wake-up signal, not a payload: subscribers re-fetch the message
// list when they see KindMessage. MessageID is advisory.
type Event struct {
	Room      string `json:"room"`
	Kind      Kind   `json:"event"`
	MessageID string `json:"message_id,omitempty"`
}

// subscriberBuffer bounds how far a slow consumer may lag before events are
// dropped. Dropping is fine: the message log is the source of truth.
const subscriberBuffer = 16

// Subscription is one consumer's live interest in a room channel. Events
// arrive on C until Close is called, the consumer lags too far behind, or
// the room is destroyed. C is closed after a destroy event: a closed channel
// is terminal, nothing for this room will ever follow.
type Subscription struct {
	C <-chan Event

	bus    *Bus
	room   string
	ch     chan Event
	kinds  map[Kind]bool
	closed bool // guarded by bus.mu
}

// Close tears the subscription down. Safe to call more than once and safe to
// call concurrently with Publish.
func (s *Subscription) Close() {
	s.bus.remove(s)
}

// wants reports whether the subscriber asked for this kind.
// Destroy is always delivered: it is the terminal signal.
func (s *Subscription) wants(k Kind) bool {
	return k == KindDestroy || len(s.kinds) == 0 || s.kinds[k]
}

// Bus fans room events out to live subscribers. Delivery is best-effort and
// at-most-once: there is no replay, no buffering beyond the per-subscriber
// channel, and nothing is retained for consumers that connect later.
type Bus struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{rooms: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers interest in a room channel. An empty kinds list means
// all kinds.
func (b *Bus) Subscribe(room string, kinds ...Kind) *Subscription {
	sub := &Subscription{
		bus:  b,
		room: room,
		ch:   make(chan Event, subscriberBuffer),
	}
	sub.C = sub.ch
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	b.mu.Lock()
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[*Subscription]struct{})
	}
	b.rooms[room][sub] = struct{}{}
	b.mu.Unlock()

	metrics.Subscribers.Inc()
	return sub
}

// Publish delivers the event to every live subscriber of the room. A
// subscriber whose buffer is full misses the event rather than blocking the
// publisher. Publishing KindDestroy tears the whole room channel down: every
// subscription is closed and later publishes for the room reach nobody.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.rooms[evt.Room] {
		if !sub.wants(evt.Kind) {
			continue
		}
		select {
		case sub.ch <- evt:
			metrics.EventsPublished.WithLabelValues(string(evt.Kind)).Inc()
		default:
			metrics.EventsDropped.Inc()
		}
	}

	if evt.Kind == KindDestroy {
		for sub := range b.rooms[evt.Room] {
			sub.closed = true
			close(sub.ch)
			metrics.Subscribers.Dec()
		}
		delete(b.rooms, evt.Room)
	}
}

// remove detaches a subscription and closes its channel exactly once.
func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	metrics.Subscribers.Dec()

	if subs, ok := b.rooms[s.room]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.rooms, s.room)
		}
	}
}
