package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bus fans events out to subscribers over bounded channels. Publish never
// blocks: when a subscriber's queue is full the event is dropped for that
// subscriber and counted, so one slow observer cannot stall producers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	dropped atomic.Int64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given queue capacity.
// The returned cancel function removes the subscriber and closes its channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber whose queue has room.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			slog.Debug("event dropped for slow subscriber", "type", ev.Type, "agent_id", ev.AgentID)
		}
	}
}

// Dropped returns the total number of events dropped across all subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
