package product

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-cart/internal/domain"
	productrepo "storefront-cart/internal/repository/product"
)

// AllCategories disables the category filter.
const AllCategories = "All"

// Price ranges accepted by Filter.PriceRange.
const (
	PriceUnder100  = "under-100"
	Price100To500  = "100-500"
	Price500To1000 = "500-1000"
	PriceAbove1000 = "above-1000"
	PriceRangeAll  = "all"
)

// Sort orders accepted by Filter.Sort.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortRating    = "rating"
)

// Filter narrows and orders a product listing. Zero values mean no filter
// and catalog order.
type Filter struct {
	Category   string
	PriceRange string
	Search     string
	Sort       string
}

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, f Filter) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matchCategory(p, f.Category) && matchPrice(p, f.PriceRange) && matchSearch(p, f.Search) {
			out = append(out, p)
		}
	}

	switch f.Sort {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Categories lists distinct categories in the order they first appear.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out, nil
}

// ValidPriceRange reports whether r is a known price range or empty.
func ValidPriceRange(r string) bool {
	switch r {
	case "", PriceRangeAll, PriceUnder100, Price100To500, Price500To1000, PriceAbove1000:
		return true
	}
	return false
}

// ValidSort reports whether o is a known sort order or empty.
func ValidSort(o string) bool {
	switch o {
	case "", SortNewest, SortPriceAsc, SortPriceDesc, SortRating:
		return true
	}
	return false
}

func matchCategory(p domain.Product, category string) bool {
	return category == "" || category == AllCategories || p.Category == category
}

var (
	hundred  = decimal.NewFromInt(100)
	fiveHund = decimal.NewFromInt(500)
	thousand = decimal.NewFromInt(1000)
)

func matchPrice(p domain.Product, r string) bool {
	switch r {
	case PriceUnder100:
		return p.Price.LessThan(hundred)
	case Price100To500:
		return p.Price.GreaterThanOrEqual(hundred) && p.Price.LessThanOrEqual(fiveHund)
	case Price500To1000:
		return p.Price.GreaterThanOrEqual(fiveHund) && p.Price.LessThanOrEqual(thousand)
	case PriceAbove1000:
		return p.Price.GreaterThan(thousand)
	default:
		return true
	}
}

func matchSearch(p domain.Product, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}
