package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event is what subscribers receive whenever sponsorships or metrics change.
type Event struct {
	Type string    `json:"type"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

// subscriber is one connected browser tab.
type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan Event // buffered to absorb bursts
	done chan struct{}
}

// Hub fans sponsor and metrics events out to every connected subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]*subscriber)}
}

func (h *Hub) add(conn *websocket.Conn) *subscriber {
	sub := &subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Event, 32),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[id]; ok {
		close(sub.done)
		delete(h.subscribers, id)
	}
}

// SubscriberCount reports how many connections are active.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish delivers an event to every subscriber. Slow subscribers whose
// buffers are full miss the event rather than block the publisher.
func (h *Hub) Publish(eventType string, data any) {
	event := Event{Type: eventType, Data: data, At: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.send <- event:
		case <-sub.done:
		default:
		}
	}
}
