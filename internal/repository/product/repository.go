package product

import (
	"context"

	"storefront-cart/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Writer is implemented by repositories that accept imported products.
type Writer interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
