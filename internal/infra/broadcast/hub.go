// Package broadcast implements room-based, best-effort event delivery.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/runoshun/sprintcrew/internal/domain"
	"github.com/runoshun/sprintcrew/internal/infra/metrics"
)

// DefaultBuffer is the per-subscriber event buffer.
const DefaultBuffer = 32

// Subscription receives the events of one room.
type Subscription struct {
	ch     chan domain.Event
	room   string
	closed bool
}

// Events returns the delivery channel. It is closed on Unsubscribe.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Room returns the subscribed room.
func (s *Subscription) Room() string {
	return s.room
}

// Hub fans published events out to room subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	logger *slog.Logger
	rooms  map[string]map[*Subscription]struct{}
	mu     sync.RWMutex
	buffer int
	count  int
}

// Ensure Hub implements domain.Broadcaster.
var _ domain.Broadcaster = (*Hub)(nil)

// NewHub creates an empty hub. A non-positive buffer uses DefaultBuffer.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		logger: logger,
		rooms:  make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber for room.
func (h *Hub) Subscribe(room string) *Subscription {
	sub := &Subscription{
		ch:   make(chan domain.Event, h.buffer),
		room: room,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Subscription]struct{})
	}
	h.rooms[room][sub] = struct{}{}
	h.count++
	metrics.SetSubscribers(h.count)
	return sub
}

// Unsubscribe removes sub and closes its channel. It is idempotent.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true

	subs := h.rooms[sub.room]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, sub.room)
	}
	close(sub.ch)
	h.count--
	metrics.SetSubscribers(h.count)
}

// Publish delivers the event to every current subscriber of room.
func (h *Hub) Publish(room, event string, payload any) {
	ev := domain.Event{Room: room, Name: event, Payload: payload}
	metrics.RecordPublished(event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[room] {
		select {
		case sub.ch <- ev:
		default:
			metrics.RecordDropped()
			h.logger.Warn("subscriber buffer full, event dropped", "room", room, "event", event)
		}
	}
}

// Subscribers returns the number of subscribers of room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close unsubscribes everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, subs := range h.rooms {
		for sub := range subs {
			sub.closed = true
			close(sub.ch)
		}
		delete(h.rooms, room)
	}
	h.count = 0
	metrics.SetSubscribers(0)
}
