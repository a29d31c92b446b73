package cartstore

import (
	"sync"

	"storefront-cart/internal/domain"
)

// Subscriber is called synchronously after every change with a private copy
// of the cart lines. It may query the store but must not mutate it.
type Subscriber func(lines []domain.CartLine)

// Subscription is the disposal handle returned by Store.Subscribe.
type Subscription struct {
	store *Store
	fn    Subscriber
	once  sync.Once
}

// Unsubscribe stops further notifications. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.store.unsubscribe(s)
	})
}

// Subscribe registers fn. Subscribers are notified in registration order.
func (s *Store) Subscribe(fn Subscriber) *Subscription {
	sub := &Subscription{store: s, fn: fn}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subs {
		if existing == sub {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *Store) notify(lines []domain.CartLine) {
	s.mu.RLock()
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(cloneLines(lines))
	}
}
