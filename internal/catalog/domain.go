package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion tags serialized product documents for additive evolution.
const SchemaVersion = 1

// Product is a sellable catalog item. StockQuantity may go negative; this
// layer does not block over-selling. UpdatedAt is the sole conflict
// resolution signal during remote merges.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Barcode       string    `json:"barcode,omitempty"`
	Category      string    `json:"category,omitempty"`
	ImageBase64   string    `json:"imageBase64,omitempty"`
	Price         float64   `json:"price"`
	Cost          float64   `json:"cost,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Document renders the product as a flat field map for remote sync payloads.
func (p Product) Document() map[string]any {
	data, _ := json.Marshal(p)
	doc := make(map[string]any)
	_ = json.Unmarshal(data, &doc)
	doc["schemaVersion"] = SchemaVersion
	return doc
}

// ProductFromJSON parses a remote document into a Product. Unknown fields are
// ignored; type mismatches and a missing id are reported as errors so the
// caller can skip the record.
func ProductFromJSON(data []byte) (Product, error) {
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return Product{}, fmt.Errorf("catalog: parse product: %w", err)
	}
	if p.ID == "" {
		return Product{}, errors.New("catalog: parse product: missing id")
	}
	return p, nil
}
