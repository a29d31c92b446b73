package domain

import "github.com/shopspring/decimal"

// Quantity bounds for a single cart line.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 99
)

// Item is the catalog data copied into a cart line when it is first added.
type Item struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

// CartLine is one catalog item plus its quantity. Title, description, image
// and price are frozen at the moment the item was added.
type CartLine struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Quantity    int             `json:"quantity"`
}

// NewLine starts a line for item with the minimum quantity.
func NewLine(item Item) CartLine {
	return CartLine{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		Image:       item.Image,
		Quantity:    MinLineQuantity,
	}
}

// Item returns the snapshot the line was created from.
func (l CartLine) Item() Item {
	return Item{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Image:       l.Image,
	}
}

// Subtotal is price * quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Equal reports whether both lines carry the same data.
func (l CartLine) Equal(o CartLine) bool {
	return l.ID == o.ID &&
		l.Title == o.Title &&
		l.Description == o.Description &&
		l.Image == o.Image &&
		l.Quantity == o.Quantity &&
		l.Price.Equal(o.Price)
}

// ClampQuantity bounds q to [MinLineQuantity, MaxLineQuantity].
func ClampQuantity(q int) int {
	if q < MinLineQuantity {
		return MinLineQuantity
	}
	if q > MaxLineQuantity {
		return MaxLineQuantity
	}
	return q
}

// TotalQuantity sums the quantities of lines.
func TotalQuantity(lines []CartLine) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice sums price * quantity over lines.
func TotalPrice(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
