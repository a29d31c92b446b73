package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-cart/internal/cartstore"
	"storefront-cart/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")

	ErrOutOfStock = errors.New("product out of stock")

	// ErrCheckoutUnavailable is returned by every Checkout call; payment is
	// handled outside this service.
	ErrCheckoutUnavailable = errors.New("checkout not implemented yet")
)

// DefaultTaxRate is applied to the subtotal in Summary.
var DefaultTaxRate = decimal.RequireFromString("0.08")

type Service struct {
	store       cartStore
	productRepo productRepo
	taxRate     decimal.Decimal
}

type cartStore interface {
	AddOrIncrement(ctx context.Context, item domain.Item) (cartstore.Result, error)
	Remove(ctx context.Context, id string) (cartstore.Result, error)
	SetQuantity(ctx context.Context, id string, quantity int) (cartstore.Result, error)
	Lines() []domain.CartLine
	Line(id string) (domain.CartLine, bool)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(store cartStore, productRepo productRepo) *Service {
	return &Service{store: store, productRepo: productRepo, taxRate: DefaultTaxRate}
}

// WithTaxRate returns a copy of s that applies rate in Summary.
func (s *Service) WithTaxRate(rate decimal.Decimal) *Service {
	c := *s
	c.taxRate = rate
	return &c
}

// View is the cart as shown to a shopper.
type View struct {
	Lines         []domain.CartLine `json:"lines"`
	LineCount     int               `json:"lineCount"`
	TotalQuantity int               `json:"totalQuantity"`
	TotalPrice    decimal.Decimal   `json:"totalPrice"`
}

// Summary is the order summary shown next to the cart.
type Summary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Shipping      decimal.Decimal `json:"shipping"`
	FreeShipping  bool            `json:"freeShipping"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	LineCount     int             `json:"lineCount"`
	TotalQuantity int             `json:"totalQuantity"`
}

// Add puts one unit of the catalog product id into the cart.
func (s *Service) Add(ctx context.Context, productID string) (cartstore.Result, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return cartstore.Result{}, ErrProductNotFound
	}
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return cartstore.Result{}, ErrProductNotFound
		}
		return cartstore.Result{}, fmt.Errorf("lookup product %q: %w", productID, err)
	}
	if !p.InStock {
		return cartstore.Result{}, ErrOutOfStock
	}
	return s.store.AddOrIncrement(ctx, p.CartItem())
}

func (s *Service) Remove(ctx context.Context, id string) (cartstore.Result, error) {
	return s.store.Remove(ctx, id)
}

func (s *Service) SetQuantity(ctx context.Context, id string, quantity int) (cartstore.Result, error) {
	return s.store.SetQuantity(ctx, id, quantity)
}

func (s *Service) Get(_ context.Context) View {
	lines := s.store.Lines()
	return View{
		Lines:         lines,
		LineCount:     len(lines),
		TotalQuantity: domain.TotalQuantity(lines),
		TotalPrice:    domain.TotalPrice(lines),
	}
}

// Line returns the cart line for id or domain.ErrNotFound.
func (s *Service) Line(_ context.Context, id string) (domain.CartLine, error) {
	line, ok := s.store.Line(id)
	if !ok {
		return domain.CartLine{}, domain.ErrNotFound
	}
	return line, nil
}

// Summary prices the current cart. Shipping is free; tax is rounded to cents.
func (s *Service) Summary(_ context.Context) Summary {
	lines := s.store.Lines()
	subtotal := domain.TotalPrice(lines)
	tax := subtotal.Mul(s.taxRate).Round(2)
	shipping := decimal.Zero
	return Summary{
		Subtotal:      subtotal,
		Shipping:      shipping,
		FreeShipping:  shipping.IsZero(),
		TaxRate:       s.taxRate,
		Tax:           tax,
		Total:         subtotal.Add(shipping).Add(tax),
		LineCount:     len(lines),
		TotalQuantity: domain.TotalQuantity(lines),
	}
}

// Checkout never places an order and never touches the cart.
func (s *Service) Checkout(_ context.Context) error {
	return ErrCheckoutUnavailable
}
