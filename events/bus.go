// Package events implements the typed publish/subscribe bus observers use
// to learn about login state changes, incoming invitations, delivered and
// failed messages, and notifications, without coupling them to the
// notification or switchboard clients directly.
package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event is implemented by every value published on the bus. It carries no
// behavior; its only purpose is to let Bus accept a closed, named set of
// event types instead of bare any.
type Event interface {
	eventMarker()
}

// Bus fans out published events to every current subscriber. Delivery is
// best-effort: while a subscriber's queue is full, newly published events
// are dropped for it (with a logged warning) rather than stalling the
// publisher, since publishers here are the reader loops of the ns and sb
// packages and must never block on a slow observer.
type Bus struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]chan Event
}

// NewBus builds an empty bus. A nil logger disables overflow-drop logging.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{logger: logger, subs: make(map[string]chan Event)}
}

// Subscribe registers a new observer and returns its channel and a cancel
// function that unregisters it and closes the channel.
func (b *Bus) Subscribe(backlog int) (<-chan Event, func()) {
	if backlog <= 0 {
		backlog = 16
	}
	id := uuid.NewString()
	ch := make(chan Event, backlog)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Publish delivers evt to every current subscriber.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	chans := make([]chan Event, 0, len(b.subs))
	for _, ch := range b.subs {
		chans = append(chans, ch)
	}
	b.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("dropping event for slow subscriber", "event", evt)
		}
	}
}
