package authstate

import (
	"sync"

	"github.com/FACorreiaa/go-couple-connect/internal/types"
)

// Bus is a minimal in-process broadcast channel for session lifecycle
// events. The auth service publishes; stores subscribe.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(types.SessionEvent)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(types.SessionEvent))}
}

// Subscribe registers a callback and returns an unsubscribe handle.
func (b *Bus) Subscribe(fn func(types.SessionEvent)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every subscriber synchronously.
func (b *Bus) Publish(evt types.SessionEvent) {
	b.mu.Lock()
	fns := make([]func(types.SessionEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
