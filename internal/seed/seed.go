// Package seed fills an empty cart with demo lines for manual testing.
package seed

import (
	"context"
	"fmt"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/domain"
)

type cartStore interface {
	LineCount() int
	AddOrIncrement(ctx context.Context, item domain.Item) (cartstore.Result, error)
	SetQuantity(ctx context.Context, id string, quantity int) (cartstore.Result, error)
}

type catalog interface {
	List(ctx context.Context) ([]domain.Product, error)
}

// Line picks a catalog product and the quantity to seed it with.
type Line struct {
	ProductID string
	Quantity  int
}

// DefaultLines is the demo cart: a pair of headphones and two charging pads.
var DefaultLines = []Line{
	{ProductID: "1", Quantity: 1},
	{ProductID: "2", Quantity: 2},
}

// Apply adds lines to the cart when it is empty. A cart that already holds
// lines is left alone, so running it twice changes nothing. It returns the
// number of lines seeded.
func Apply(ctx context.Context, store cartStore, products catalog, lines []Line) (int, error) {
	if store.LineCount() > 0 {
		return 0, nil
	}
	all, err := products.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}
	byID := make(map[string]domain.Product, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	seeded := 0
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return seeded, fmt.Errorf("seed product %q: %w", l.ProductID, domain.ErrNotFound)
		}
		if !p.InStock {
			continue
		}
		if _, err := store.AddOrIncrement(ctx, p.CartItem()); err != nil {
			return seeded, fmt.Errorf("seed product %q: %w", l.ProductID, err)
		}
		if l.Quantity > domain.MinLineQuantity {
			if _, err := store.SetQuantity(ctx, p.ID, l.Quantity); err != nil {
				return seeded, fmt.Errorf("seed quantity for %q: %w", l.ProductID, err)
			}
		}
		seeded++
	}
	return seeded, nil
}
