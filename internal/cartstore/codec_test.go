package cartstore

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storefront-cart/internal/domain"
)

func TestEncodeLinesShape(t *testing.T) {
	payload, err := encodeLines([]domain.CartLine{{
		ID: "1", Title: "Headphones", Description: "wireless", Price: price("299.99"), Image: "img.jpg", Quantity: 2,
	}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `[{"id":"1","title":"Headphones","description":"wireless","price":299.99,"image":"img.jpg","quantity":2}]`
	if string(payload) != want {
		t.Fatalf("unexpected payload\n got: %s\nwant: %s", payload, want)
	}

	var generic []map[string]any
	if err := json.Unmarshal(payload, &generic); err != nil {
		t.Fatalf("payload is not plain JSON: %v", err)
	}
	if _, ok := generic[0]["price"].(float64); !ok {
		t.Fatalf("price must be a JSON number, got %T", generic[0]["price"])
	}
}

func TestEncodeEmptyCart(t *testing.T) {
	payload, err := encodeLines(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(payload) != "[]" {
		t.Fatalf("expected [], got %s", payload)
	}
}

func TestDecodeLines(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []domain.CartLine
		corrupt bool
	}{
		{name: "blank", payload: "  ", want: nil},
		{name: "empty array", payload: "[]", want: []domain.CartLine{}},
		{name: "not json", payload: "{", corrupt: true},
		{name: "wrong shape", payload: `{"id":"1"}`, corrupt: true},
		{name: "bad price", payload: `[{"id":"1","price":"abc","quantity":1}]`, corrupt: true},
		{
			name:    "missing price",
			payload: `[{"id":"1","title":"t","quantity":1}]`,
			want:    []domain.CartLine{{ID: "1", Title: "t", Price: price("0"), Quantity: 1}},
		},
		{
			name:    "ignores unknown fields",
			payload: `[{"id":"1","title":"t","price":5,"quantity":3,"category":"audio"}]`,
			want:    []domain.CartLine{{ID: "1", Title: "t", Price: price("5"), Quantity: 3}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeLines([]byte(tc.payload))
			if tc.corrupt {
				if !errors.Is(err, errCorruptSlot) {
					t.Fatalf("expected corrupt slot error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected lines (-want +got):\n%s", diff)
			}
		})
	}
}
