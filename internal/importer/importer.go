package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-cart/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV exports and upserts products. List columns
// (additionalImages, features) are separated by ";" and specifications are
// "name=value" pairs separated by ";".
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

// Run parses CSV rows and upserts products grouped by id. A row with a blank
// id and only an image adds that image to the previous product.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var (
		current  *domain.Product
		imported int
	)

	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		id := pick(record, index, "id")
		if id == "" {
			// Continuation rows (images) belong to the current product.
			if img := pick(record, index, "image"); img != "" && current != nil {
				current.AdditionalImages = append(current.AdditionalImages, img)
			}
			continue
		}

		if current != nil {
			if err := i.save(ctx, current); err != nil {
				return imported, err
			}
			imported++
		}
		p, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		current = p
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, p *domain.Product) error {
	if p.Title == "" {
		return fmt.Errorf("invalid product row (missing title) for id %q", p.ID)
	}
	if _, err := i.productRepo.Upsert(ctx, *p); err != nil {
		return fmt.Errorf("upsert product %q: %w", p.ID, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*domain.Product, error) {
	p := &domain.Product{
		ID:                  pick(record, index, "id"),
		Title:               pick(record, index, "title"),
		Description:         pick(record, index, "description"),
		DetailedDescription: pick(record, index, "detailedDescription"),
		Image:               pick(record, index, "image"),
		AdditionalImages:    splitList(pick(record, index, "additionalImages")),
		Category:            pick(record, index, "category"),
		InStock:             true,
		Features:            splitList(pick(record, index, "features")),
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return nil, fmt.Errorf("price for id %q: %w", p.ID, err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("negative price for id %q", p.ID)
	}
	p.Price = price

	if raw := pick(record, index, "originalPrice"); raw != "" {
		orig, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("originalPrice for id %q: %w", p.ID, err)
		}
		p.OriginalPrice = &orig
	}
	if raw := pick(record, index, "inStock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("inStock for id %q: %w", p.ID, err)
		}
		p.InStock = inStock
	}
	if raw := pick(record, index, "rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("rating for id %q: %w", p.ID, err)
		}
		p.Rating = rating
	}
	if raw := pick(record, index, "specifications"); raw != "" {
		p.Specifications = make(map[string]string)
		for _, pair := range splitList(raw) {
			name, value, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("specification %q for id %q: want name=value", pair, p.ID)
			}
			p.Specifications[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}
	return p, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
