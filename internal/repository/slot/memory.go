package slot

import (
	"context"
	"sync"

	"storefront-cart/internal/domain"
)

type memoryRepo struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[string]map[chan struct{}]struct{}
}

// Memory is the in-process backend used by tests and SLOT_BACKEND=memory.
type Memory interface {
	Repository
	Watcher
	Pinger
}

func NewMemory() Memory {
	return &memoryRepo{
		data:     make(map[string][]byte),
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (r *memoryRepo) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

func (r *memoryRepo) Save(_ context.Context, key string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = stored
	for ch := range r.watchers[key] {
		signal(ch)
	}
	return nil
}

func (r *memoryRepo) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	r.mu.Lock()
	if r.watchers[key] == nil {
		r.watchers[key] = make(map[chan struct{}]struct{})
	}
	r.watchers[key][ch] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers[key], ch)
		if len(r.watchers[key]) == 0 {
			delete(r.watchers, key)
		}
		close(ch)
		r.mu.Unlock()
	}()
	return ch, nil
}

func (r *memoryRepo) Ping(context.Context) error {
	return nil
}
