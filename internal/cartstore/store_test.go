package cartstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"storefront-cart/internal/domain"
)

type stubSlot struct {
	mu       sync.Mutex
	data     map[string][]byte
	loadErr  error
	saveErr  error
	saves    int
	lastKey  string
	lastSave []byte
}

func newStubSlot() *stubSlot {
	return &stubSlot{data: make(map[string][]byte)}
}

func (s *stubSlot) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	payload, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return payload, nil
}

func (s *stubSlot) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.lastKey = key
	s.lastSave = payload
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = payload
	return nil
}

func (s *stubSlot) put(key, payload string) {
	s.mu.Lock()
	s.data[key] = []byte(payload)
	s.mu.Unlock()
}

func (s *stubSlot) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func itemA() domain.Item {
	return domain.Item{ID: "A", Title: "Item A", Description: "first", Price: price("10.00"), Image: "https://example.com/a.jpg"}
}

func itemB() domain.Item {
	return domain.Item{ID: "B", Title: "Item B", Description: "second", Price: price("2.50"), Image: "https://example.com/b.jpg"}
}

func openStore(t *testing.T, slot Slot, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), slot, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStoreScenario(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())

	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.TotalQuantity() != 1 || !s.TotalPrice().Equal(price("10.00")) {
		t.Fatalf("after first add got qty=%d total=%s", s.TotalQuantity(), s.TotalPrice())
	}

	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.TotalQuantity() != 2 || !s.TotalPrice().Equal(price("20.00")) {
		t.Fatalf("after second add got qty=%d total=%s", s.TotalQuantity(), s.TotalPrice())
	}

	if _, err := s.SetQuantity(ctx, "A", 5); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if !s.TotalPrice().Equal(price("50.00")) {
		t.Fatalf("after set quantity got total=%s", s.TotalPrice())
	}

	if _, err := s.Remove(ctx, "A"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.LineCount() != 0 || !s.TotalPrice().Equal(decimal.Zero) {
		t.Fatalf("after remove got lines=%d total=%s", s.LineCount(), s.TotalPrice())
	}
}

func TestAddOrIncrementCapsAtMaximum(t *testing.T) {
	ctx := context.Background()
	slot := newStubSlot()
	s := openStore(t, slot)

	for i := 1; i <= 120; i++ {
		res, err := s.AddOrIncrement(ctx, itemA())
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		want := i
		if want > domain.MaxLineQuantity {
			want = domain.MaxLineQuantity
		}
		if s.TotalQuantity() != want {
			t.Fatalf("after %d adds expected %d got %d", i, want, s.TotalQuantity())
		}
		if i > domain.MaxLineQuantity && res.Outcome != OutcomeCapped {
			t.Fatalf("expected capped outcome on add %d, got %s", i, res.Outcome)
		}
	}
	if s.LineCount() != 1 {
		t.Fatalf("expected a single line, got %d", s.LineCount())
	}
	if slot.saveCount() != domain.MaxLineQuantity {
		t.Fatalf("capped adds must not write the slot, got %d saves", slot.saveCount())
	}
}

func TestAddOrIncrementKeepsFirstSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())

	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}
	changed := itemA()
	changed.Title = "Renamed"
	changed.Price = price("99.00")
	res, err := s.AddOrIncrement(ctx, changed)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Outcome != OutcomeIncremented || res.Quantity != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	line, ok := s.Line("A")
	if !ok {
		t.Fatalf("expected line A")
	}
	if line.Title != "Item A" || !line.Price.Equal(price("10.00")) {
		t.Fatalf("line snapshot changed: %+v", line)
	}
}

func TestSetQuantityZeroRemoves(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())
	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := s.SetQuantity(ctx, "A", 0)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if res.Action != ActionRemove || res.Outcome != OutcomeRemoved {
		t.Fatalf("unexpected result %+v", res)
	}
	if s.IsPresent("A") {
		t.Fatalf("expected A to be removed")
	}

	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.SetQuantity(ctx, "A", -3); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if s.IsPresent("A") {
		t.Fatalf("negative quantity should remove the line")
	}
}

func TestSetQuantityClamps(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())
	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := s.SetQuantity(ctx, "A", 500)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if res.Outcome != OutcomeClamped || res.Quantity != domain.MaxLineQuantity {
		t.Fatalf("unexpected result %+v", res)
	}
	if s.TotalQuantity() != domain.MaxLineQuantity {
		t.Fatalf("expected quantity %d, got %d", domain.MaxLineQuantity, s.TotalQuantity())
	}
}

func TestSetQuantityOnMissingIDIsNoop(t *testing.T) {
	ctx := context.Background()
	slot := newStubSlot()
	s := openStore(t, slot)
	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := s.Lines()
	saves := slot.saveCount()

	res, err := s.SetQuantity(ctx, "ghost", 4)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if res.Outcome != OutcomeNoop {
		t.Fatalf("expected noop, got %s", res.Outcome)
	}
	if s.IsPresent("ghost") {
		t.Fatalf("no line should be created for ghost")
	}
	if diff := cmp.Diff(before, s.Lines()); diff != "" {
		t.Fatalf("store changed (-before +after):\n%s", diff)
	}
	if slot.saveCount() != saves {
		t.Fatalf("noop must not write the slot")
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())
	for _, it := range []domain.Item{itemA(), itemB(), itemA()} {
		if _, err := s.AddOrIncrement(ctx, it); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if _, err := s.Remove(ctx, "A"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	once := s.Lines()

	res, err := s.Remove(ctx, "A")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.Outcome != OutcomeNoop {
		t.Fatalf("expected noop on second remove, got %s", res.Outcome)
	}
	if diff := cmp.Diff(once, s.Lines()); diff != "" {
		t.Fatalf("second remove changed state (-once +twice):\n%s", diff)
	}
}

func TestAddThenRemoveRestoresTotalPrice(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())
	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := s.SetQuantity(ctx, "A", 3); err != nil {
		t.Fatalf("set: %v", err)
	}
	before := s.TotalPrice()

	if _, err := s.AddOrIncrement(ctx, itemB()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !s.TotalPrice().Equal(before.Add(price("2.50"))) {
		t.Fatalf("unexpected total %s", s.TotalPrice())
	}
	if _, err := s.Remove(ctx, "B"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !s.TotalPrice().Equal(before) {
		t.Fatalf("expected total %s restored, got %s", before, s.TotalPrice())
	}
	if !s.TotalPrice().Equal(domain.TotalPrice(s.Lines())) {
		t.Fatalf("total price disagrees with lines")
	}
}

func TestRoundTripThroughSlot(t *testing.T) {
	ctx := context.Background()
	slot := newStubSlot()
	s := openStore(t, slot, WithKey("cart"))
	odd := domain.Item{ID: "C", Title: "Odd", Description: "fractional", Price: price("0.1"), Image: ""}
	for _, it := range []domain.Item{itemB(), itemA(), odd, itemA()} {
		if _, err := s.AddOrIncrement(ctx, it); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := s.SetQuantity(ctx, "C", 7); err != nil {
		t.Fatalf("set: %v", err)
	}

	fresh := openStore(t, slot, WithKey("cart"))
	if diff := cmp.Diff(s.Lines(), fresh.Lines()); diff != "" {
		t.Fatalf("reloaded lines differ (-saved +loaded):\n%s", diff)
	}
	if !fresh.TotalPrice().Equal(s.TotalPrice()) {
		t.Fatalf("reloaded total %s != %s", fresh.TotalPrice(), s.TotalPrice())
	}
	if slot.lastKey != "cart" {
		t.Fatalf("expected writes under key cart, got %q", slot.lastKey)
	}
}

func TestAddOrIncrementSkipsUnstorableItems(t *testing.T) {
	ctx := context.Background()
	slot := newStubSlot()
	s := openStore(t, slot, WithKey("cart"))
	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}
	notified := 0
	s.Subscribe(func([]domain.CartLine) { notified++ })
	saves := slot.saveCount()

	for _, it := range []domain.Item{
		{ID: " ", Title: "blank", Price: price("3")},
		{ID: "", Title: "empty", Price: price("3")},
		{ID: "neg", Title: "negative", Price: price("-1")},
	} {
		res, err := s.AddOrIncrement(ctx, it)
		if err != nil {
			t.Fatalf("add %q: %v", it.ID, err)
		}
		if res.Outcome != OutcomeNoop || res.TotalQuantity != 1 {
			t.Fatalf("add %q: expected noop with total 1, got %+v", it.ID, res)
		}
	}
	if slot.saveCount() != saves || notified != 0 {
		t.Fatalf("rejected items must not write or notify: saves %d->%d, notified %d", saves, slot.saveCount(), notified)
	}

	fresh := openStore(t, slot, WithKey("cart"))
	if diff := cmp.Diff(s.Lines(), fresh.Lines()); diff != "" {
		t.Fatalf("reloaded lines differ (-memory +loaded):\n%s", diff)
	}
	if !fresh.TotalPrice().Equal(s.TotalPrice()) {
		t.Fatalf("reloaded total %s != %s", fresh.TotalPrice(), s.TotalPrice())
	}
}

func TestOpenWithCorruptSlotStartsEmpty(t *testing.T) {
	slot := newStubSlot()
	slot.put(DefaultKey, "{not json")

	s := openStore(t, slot)
	if s.LineCount() != 0 {
		t.Fatalf("expected empty cart, got %d lines", s.LineCount())
	}
}

func TestOpenDropsInvalidEntries(t *testing.T) {
	slot := newStubSlot()
	slot.put(DefaultKey, `[
		{"id":"A","title":"A","description":"","price":10.5,"image":"","quantity":2},
		{"id":"","title":"blank","description":"","price":1,"image":"","quantity":1},
		{"id":"Z","title":"zero","description":"","price":1,"image":"","quantity":0},
		{"id":"A","title":"dup","description":"","price":1,"image":"","quantity":1},
		{"id":"N","title":"neg","description":"","price":-1,"image":"","quantity":1},
		{"id":"H","title":"huge","description":"","price":1,"image":"","quantity":250}
	]`)

	s := openStore(t, slot)
	lines := s.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", lines)
	}
	if lines[0].ID != "A" || lines[0].Quantity != 2 || !lines[0].Price.Equal(price("10.5")) {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].ID != "H" || lines[1].Quantity != domain.MaxLineQuantity {
		t.Fatalf("unexpected second line %+v", lines[1])
	}
}

func TestOpenPropagatesSlotFailure(t *testing.T) {
	slot := newStubSlot()
	slot.loadErr = errors.New("connection refused")

	if _, err := Open(context.Background(), slot); err == nil {
		t.Fatalf("expected error when slot is unreachable")
	}
}

func TestSaveFailureKeepsMemoryAndNotifies(t *testing.T) {
	ctx := context.Background()
	slot := newStubSlot()
	var reported []error
	s := openStore(t, slot, WithErrorHandler(func(err error) { reported = append(reported, err) }))
	slot.saveErr = errors.New("disk full")

	notified := 0
	sub := s.Subscribe(func([]domain.CartLine) { notified++ })
	defer sub.Unsubscribe()

	res, err := s.AddOrIncrement(ctx, itemA())
	if err == nil {
		t.Fatalf("expected save error")
	}
	if !errors.Is(err, slot.saveErr) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if res.Outcome != OutcomeAdded || !s.IsPresent("A") {
		t.Fatalf("memory should hold the new line, got %+v", res)
	}
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}
	if len(reported) != 1 {
		t.Fatalf("expected error handler to be called once, got %d", len(reported))
	}
}

func TestLinesReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())
	if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
		t.Fatalf("add: %v", err)
	}

	lines := s.Lines()
	lines[0].Quantity = 42
	lines[0].Title = "mutated"

	line, _ := s.Line("A")
	if line.Quantity != 1 || line.Title != "Item A" {
		t.Fatalf("mutating a snapshot leaked into the store: %+v", line)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())
	c := domain.Item{ID: "C", Title: "C", Price: price("1")}
	for _, it := range []domain.Item{itemB(), c, itemA(), c} {
		if _, err := s.AddOrIncrement(ctx, it); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	var ids []string
	for _, l := range s.Lines() {
		ids = append(ids, l.ID)
	}
	if diff := cmp.Diff([]string{"B", "C", "A"}, ids); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, newStubSlot())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddOrIncrement(ctx, itemA()); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.TotalQuantity() != 50 || s.LineCount() != 1 {
		t.Fatalf("expected 1 line with quantity 50, got lines=%d qty=%d", s.LineCount(), s.TotalQuantity())
	}
}
