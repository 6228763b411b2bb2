package orchestrator

import "sync"

// Broadcaster fans events out to every subscriber. There is no
// per-observer filtering: all subscribers see all events.
//
// Delivery is non-blocking. A subscriber that stops draining its
// channel loses events once its buffer fills, rather than stalling the
// run that produced them.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a new observer with the given channel buffer and
// returns its event channel plus a cancel function. Cancelling closes
// the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Emit delivers ev to every current subscriber.
func (b *Broadcaster) Emit(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full; drop for this observer.
		}
	}
}
