package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion tags serialized change documents for additive evolution.
const SchemaVersion = 1

// Well-known change reasons. The reason field is an open string enum; callers
// may record other values.
const (
	ReasonSale       = "sale"
	ReasonAdjustment = "adjustment"
	ReasonReturn     = "return"
	ReasonDamage     = "damage"
)

// Change is an append-only audit record answering "why did stock change".
// One row is created per stock-affecting operation; rows are never mutated
// or deleted.
type Change struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document renders the change as a flat field map for remote sync payloads.
func (c Change) Document() map[string]any {
	data, _ := json.Marshal(c)
	doc := make(map[string]any)
	_ = json.Unmarshal(data, &doc)
	doc["schemaVersion"] = SchemaVersion
	return doc
}

// ChangeFromJSON parses a serialized change record.
func ChangeFromJSON(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("inventory: parse change: %w", err)
	}
	if c.ID == "" {
		return Change{}, errors.New("inventory: parse change: missing id")
	}
	return c, nil
}
