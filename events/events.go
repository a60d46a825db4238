// Package events provides the observer channel between the sharing core and
// whatever presentation layer is attached to it. Publishing is fire and
// forget: a subscriber that cannot keep up loses events instead of stalling
// a transfer.
package events

import (
	"sync"

	"github.com/Dyastin-0/lanlink/types"
)

type Emitter struct {
	mu   sync.Mutex
	next int
	subs map[int]chan types.Event
}

func New() *Emitter {
	return &Emitter{
		subs: make(map[int]chan types.Event),
	}
}

// Subscribe registers a new listener. The returned cancel func closes the
// channel and must be called exactly once.
func (e *Emitter) Subscribe(buffer int) (<-chan types.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	ch := make(chan types.Event, buffer)

	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = ch
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking. Full subscriber
// buffers drop the event.
func (e *Emitter) Publish(ev types.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
