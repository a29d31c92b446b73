package product

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"storefront-cart/internal/domain"
)

//go:embed catalog.json
var builtinCatalog []byte

// Static serves products from memory in catalog order.
type Static struct {
	mu       sync.RWMutex
	products []domain.Product
	index    map[string]int
}

// NewStatic copies products into a new repository. Later duplicates of an id
// replace earlier ones in place.
func NewStatic(products []domain.Product) *Static {
	s := &Static{index: make(map[string]int, len(products))}
	for _, p := range products {
		s.put(p)
	}
	return s
}

// NewBuiltin loads the storefront's bundled catalog.
func NewBuiltin() (*Static, error) {
	var products []domain.Product
	if err := json.Unmarshal(builtinCatalog, &products); err != nil {
		return nil, fmt.Errorf("decode builtin catalog: %w", err)
	}
	return NewStatic(products), nil
}

func (s *Static) put(p domain.Product) {
	if i, ok := s.index[p.ID]; ok {
		s.products[i] = p
		return
	}
	s.index[p.ID] = len(s.products)
	s.products = append(s.products, p)
}

func (s *Static) List(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *Static) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p := s.products[i]
	return &p, nil
}

func (s *Static) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(p)
	return &p, nil
}

// Len returns the number of products.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
