// Package cartstore holds the storefront cart: an ordered list of lines
// mirrored to a durable slot and shared with every consumer through a
// subscriber registry.
//
// Every mutation runs to completion before the next one starts: the memory
// update, then the durable write, then subscriber notification in
// registration order, then the update broadcast to notifiers.
package cartstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront-cart/internal/domain"
)

// DefaultKey is the slot key the storefront has always used for its cart.
const DefaultKey = "productButtonArray"

// Slot is the durable key-value port backing the store. Load returns
// domain.ErrNotFound when nothing was saved under key yet.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// Watcher is implemented by slots that can signal changes made by other
// processes.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

// Store is the single source of truth for the cart.
type Store struct {
	slot      Slot
	key       string
	logger    zerolog.Logger
	notifiers []Notifier
	onError   func(error)
	now       func() time.Time

	// writeMu serializes mutations end to end; mu guards lines and subs and
	// is never held while subscribers or notifiers run.
	writeMu sync.Mutex
	mu      sync.RWMutex
	lines   []domain.CartLine
	subs    []*Subscription
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNotifier adds a receiver for update events. Notifiers run while the
// next mutation waits, so they must return quickly.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithErrorHandler registers fn to observe slot and notifier failures.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Store) {
		s.onError = fn
	}
}

// Open builds a Store and loads the previous cart from slot. A missing or
// corrupt payload yields an empty cart; only a failure to reach the slot is
// returned as an error.
func Open(ctx context.Context, slot Slot, opts ...Option) (*Store, error) {
	s := &Store{
		slot:   slot,
		key:    DefaultKey,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	lines, err := s.readSlot(ctx)
	switch {
	case errors.Is(err, errCorruptSlot):
		s.logger.Warn().Err(err).Str("key", s.key).Msg("cart slot unreadable, starting empty")
		lines = nil
	case err != nil:
		return nil, err
	}
	s.lines = lines
	s.logger.Debug().Str("key", s.key).Int("lines", len(lines)).Msg("cart loaded")
	return s, nil
}

// Key returns the slot key the store mirrors to.
func (s *Store) Key() string {
	return s.key
}

// AddOrIncrement adds item with quantity 1, or raises the quantity of its
// existing line by one up to the maximum. An item the slot could not read
// back (blank id, negative price) is a no-op. A non-nil error only reports
// that the durable write failed.
//
// Capped and no-op results leave the slot untouched and notify nobody.
func (s *Store) AddOrIncrement(ctx context.Context, item domain.Item) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res := Result{Action: ActionAdd, ID: item.ID}
	if !storable(item) {
		res.Outcome = OutcomeNoop
		res.TotalQuantity = s.TotalQuantity()
		return res, nil
	}

	s.mu.Lock()
	idx := s.indexOf(item.ID)
	switch {
	case idx < 0:
		s.lines = append(s.lines, domain.NewLine(item))
		res.Outcome = OutcomeAdded
		res.Quantity = domain.MinLineQuantity
	case s.lines[idx].Quantity >= domain.MaxLineQuantity:
		res.Outcome = OutcomeCapped
		res.Quantity = s.lines[idx].Quantity
	default:
		s.lines[idx].Quantity++
		res.Outcome = OutcomeIncremented
		res.Quantity = s.lines[idx].Quantity
	}
	res.TotalQuantity = domain.TotalQuantity(s.lines)
	s.mu.Unlock()

	if !res.Changed() {
		return res, nil
	}
	snapshot := item
	return res, s.commit(ctx, Event{Action: ActionAdd, ID: item.ID, Item: &snapshot})
}

// Remove deletes the line for id. An absent id is a no-op that neither writes
// the slot nor notifies subscribers.
func (s *Store) Remove(ctx context.Context, id string) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.remove(ctx, id)
}

// SetQuantity sets the quantity of the line for id. Zero or less removes the
// line; other values are clamped to [1, 99]. An absent id, or a quantity
// equal to the current one after clamping, is a no-op that neither writes the
// slot nor notifies subscribers.
func (s *Store) SetQuantity(ctx context.Context, id string, quantity int) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if quantity <= 0 {
		return s.remove(ctx, id)
	}

	res := Result{Action: ActionUpdate, ID: id}
	clamped := domain.ClampQuantity(quantity)

	s.mu.Lock()
	idx := s.indexOf(id)
	switch {
	case idx < 0:
		res.Outcome = OutcomeNoop
	case s.lines[idx].Quantity == clamped:
		res.Outcome = OutcomeNoop
		res.Quantity = clamped
	default:
		s.lines[idx].Quantity = clamped
		res.Quantity = clamped
		res.Outcome = OutcomeUpdated
		if clamped != quantity {
			res.Outcome = OutcomeClamped
		}
	}
	res.TotalQuantity = domain.TotalQuantity(s.lines)
	s.mu.Unlock()

	if !res.Changed() {
		return res, nil
	}
	return res, s.commit(ctx, Event{Action: ActionUpdate, ID: id, Quantity: clamped})
}

// remove expects writeMu to be held.
func (s *Store) remove(ctx context.Context, id string) (Result, error) {
	res := Result{Action: ActionRemove, ID: id, Outcome: OutcomeNoop}

	s.mu.Lock()
	if idx := s.indexOf(id); idx >= 0 {
		next := make([]domain.CartLine, 0, len(s.lines)-1)
		next = append(next, s.lines[:idx]...)
		next = append(next, s.lines[idx+1:]...)
		s.lines = next
		res.Outcome = OutcomeRemoved
	}
	res.TotalQuantity = domain.TotalQuantity(s.lines)
	s.mu.Unlock()

	if !res.Changed() {
		return res, nil
	}
	return res, s.commit(ctx, Event{Action: ActionRemove, ID: id})
}

// commit persists the current lines, notifies subscribers and broadcasts ev.
// It expects writeMu to be held.
func (s *Store) commit(ctx context.Context, ev Event) error {
	lines := s.Lines()

	var saveErr error
	payload, err := encodeLines(lines)
	if err == nil {
		err = s.slot.Save(ctx, s.key, payload)
	}
	if err != nil {
		saveErr = fmt.Errorf("save cart slot %q: %w", s.key, err)
		s.logger.Error().Err(err).Str("key", s.key).Str("action", string(ev.Action)).Msg("cart slot write failed")
		s.reportError(saveErr)
	}

	s.notify(lines)

	ev.Count = domain.TotalQuantity(lines)
	ev.OccurredAt = s.now().UTC()
	s.broadcast(ctx, ev)

	s.logger.Debug().
		Str("action", string(ev.Action)).
		Str("id", ev.ID).
		Int("count", ev.Count).
		Msg("cart updated")
	return saveErr
}

func (s *Store) broadcast(ctx context.Context, ev Event) {
	for _, n := range s.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("action", string(ev.Action)).Msg("cart event not delivered")
			s.reportError(fmt.Errorf("notify %s: %w", ev.Action, err))
		}
	}
}

func (s *Store) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// IsPresent reports whether a line with id exists.
func (s *Store) IsPresent(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// LineCount is the number of distinct lines.
func (s *Store) LineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// TotalQuantity is the sum of all line quantities.
func (s *Store) TotalQuantity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TotalQuantity(s.lines)
}

// TotalPrice is the sum of price * quantity over all lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TotalPrice(s.lines)
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLines(s.lines)
}

// Line returns a copy of the line for id.
func (s *Store) Line(id string) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.lines[idx], true
	}
	return domain.CartLine{}, false
}

// indexOf expects mu to be held.
func (s *Store) indexOf(id string) int {
	for i, l := range s.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) readSlot(ctx context.Context) ([]domain.CartLine, error) {
	payload, err := s.slot.Load(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart slot %q: %w", s.key, err)
	}
	return decodeLines(payload)
}

// storable mirrors the entries decodeLines keeps, so every line in memory
// survives a round trip through the slot.
func storable(item domain.Item) bool {
	return strings.TrimSpace(item.ID) != "" && !item.Price.IsNegative()
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if lines == nil {
		return []domain.CartLine{}
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}

func sameLines(a, b []domain.CartLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
