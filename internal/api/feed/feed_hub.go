package feed

import (
	"sync"
)

// subscriberBuffer bounds how far a slow client may fall behind before
// it is dropped.
const subscriberBuffer = 16

// Hub broadcasts change-feed payloads to connected subscribers. There
// are no delivery guarantees: a subscriber whose buffer is full is
// disconnected rather than slowing everyone else down.
type Hub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan string]struct{})}
}

// Subscribe registers a new listener and returns its channel plus an
// unsubscribe handle. The channel is closed on unsubscribe or drop.
func (h *Hub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// Broadcast fans the payload out. Subscribers that cannot keep up are
// dropped.
func (h *Hub) Broadcast(payload string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// SubscriberCount reports how many clients are attached.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
