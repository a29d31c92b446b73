package cartstore

import (
	"context"
	"errors"
	"fmt"

	"storefront-cart/internal/domain"
)

// Reload re-reads the durable slot after another process changed it. A
// corrupt payload keeps the current cart. Subscribers and notifiers hear
// about the reload only when the contents actually differ, which keeps the
// store quiet when the change signal was caused by its own write.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lines, err := s.readSlot(ctx)
	if errors.Is(err, errCorruptSlot) {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("ignoring unreadable cart slot on reload")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if sameLines(s.lines, lines) {
		s.mu.Unlock()
		return false, nil
	}
	s.lines = lines
	s.mu.Unlock()

	snapshot := s.Lines()
	s.notify(snapshot)
	s.broadcast(ctx, Event{
		Action:     ActionSync,
		Count:      domain.TotalQuantity(snapshot),
		OccurredAt: s.now().UTC(),
	})
	s.logger.Info().Str("key", s.key).Int("lines", len(snapshot)).Msg("cart reloaded from slot")
	return true, nil
}

// Follow reloads the cart on every change signal from w until ctx is done or
// the signal channel closes. It blocks; run it in its own goroutine.
func (s *Store) Follow(ctx context.Context, w Watcher) error {
	changes, err := w.Watch(ctx, s.key)
	if err != nil {
		return fmt.Errorf("watch cart slot %q: %w", s.key, err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Warn().Err(err).Str("key", s.key).Msg("cart reload failed")
				s.reportError(err)
			}
		}
	}
}
