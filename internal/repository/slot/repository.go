// Package slot implements the durable key-value slot the cart is mirrored to.
// Every backend stores one opaque payload per key and reports a missing key
// as domain.ErrNotFound.
package slot

import "context"

type Repository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// Watcher is implemented by backends that can signal writes made by other
// processes. The returned channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

// Pinger exposes the readiness check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// signal performs a non-blocking send; a pending signal already covers the
// new change.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
