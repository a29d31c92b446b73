package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry shown on the storefront.
type Product struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	DetailedDescription string            `json:"detailedDescription,omitempty"`
	Price               decimal.Decimal   `json:"price"`
	OriginalPrice       *decimal.Decimal  `json:"originalPrice,omitempty"`
	Image               string            `json:"image"`
	AdditionalImages    []string          `json:"additionalImages,omitempty"`
	Category            string            `json:"category"`
	InStock             bool              `json:"inStock"`
	Rating              float64           `json:"rating"`
	Features            []string          `json:"features,omitempty"`
	Specifications      map[string]string `json:"specifications,omitempty"`
}

// CartItem snapshots the fields a cart line keeps from the product.
func (p Product) CartItem() Item {
	return Item{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
	}
}
