package cartstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-cart/internal/domain"
)

var errCorruptSlot = errors.New("corrupt cart slot")

// slotLine is the persisted shape of a cart line. Price travels as a JSON
// number and is kept as its literal text so no float rounding happens.
type slotLine struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Image       string      `json:"image"`
	Quantity    int         `json:"quantity"`
}

func encodeLines(lines []domain.CartLine) ([]byte, error) {
	out := make([]slotLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, slotLine{
			ID:          l.ID,
			Title:       l.Title,
			Description: l.Description,
			Price:       json.Number(l.Price.String()),
			Image:       l.Image,
			Quantity:    l.Quantity,
		})
	}
	return json.Marshal(out)
}

// decodeLines parses a slot payload. Entries that break the line invariants
// (blank id, quantity below one, negative price, repeated id) are dropped and
// quantities above the maximum are clamped.
func decodeLines(payload []byte) ([]domain.CartLine, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, nil
	}
	var raw []slotLine
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptSlot, err)
	}

	lines := make([]domain.CartLine, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.ID) == "" || r.Quantity < domain.MinLineQuantity {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		price := decimal.Zero
		if r.Price != "" {
			p, err := decimal.NewFromString(r.Price.String())
			if err != nil {
				return nil, fmt.Errorf("%w: price of %q: %v", errCorruptSlot, r.ID, err)
			}
			price = p
		}
		if price.IsNegative() {
			continue
		}
		seen[r.ID] = struct{}{}
		lines = append(lines, domain.CartLine{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Price:       price,
			Image:       r.Image,
			Quantity:    domain.ClampQuantity(r.Quantity),
		})
	}
	return lines, nil
}
