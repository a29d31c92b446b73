package cartstore

import (
	"context"
	"sync"
	"time"

	"storefront-cart/internal/domain"
)

// Action names the kind of change carried by an Event.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionUpdate Action = "update"
	// ActionSync is emitted when the cart was reloaded after another process
	// changed the durable slot.
	ActionSync Action = "sync"
)

// Event is broadcast to every Notifier after a mutation has been persisted
// and delivered to subscribers.
type Event struct {
	Action     Action       `json:"action"`
	ID         string       `json:"id,omitempty"`
	Item       *domain.Item `json:"item,omitempty"`
	Quantity   int          `json:"quantity,omitempty"`
	Count      int          `json:"count"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// Notifier receives update events. Errors are logged by the store and never
// fail the mutation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Bus fans events out to in-process listeners. A listener whose buffer is
// full misses the event instead of blocking the store.
type Bus struct {
	mu        sync.RWMutex
	listeners map[int]chan Event
	next      int
	buffer    int
}

// NewBus creates a Bus whose listener channels hold buffer events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		listeners: make(map[int]chan Event),
		buffer:    buffer,
	}
}

// Notify delivers ev to every listener without blocking.
func (b *Bus) Notify(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Listen registers a listener. The returned cancel func closes the channel
// and may be called more than once.
func (b *Bus) Listen() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Listeners returns the number of registered listeners.
func (b *Bus) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
