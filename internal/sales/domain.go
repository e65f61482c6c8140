package sales

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion tags serialized sale documents for additive evolution.
const SchemaVersion = 1

// SaleItem is one line of a sale. The product name is a denormalized copy
// taken at checkout time and is not re-validated against the catalog.
type SaleItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Discount  float64 `json:"discount"`
}

// LineSubtotal returns unit price times quantity before discounts.
func (i SaleItem) LineSubtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// LineTotal returns the line subtotal net of the line discount.
func (i SaleItem) LineTotal() float64 {
	return i.LineSubtotal() - i.Discount
}

// Sale is a completed checkout. Items are immutable after creation. Total
// and PaidTotal are derived independently and intentionally not reconciled;
// partial, over and under payment are representable and left to the caller.
type Sale struct {
	ID              string     `json:"id"`
	Items           []SaleItem `json:"items"`
	Discount        float64    `json:"discount"`
	TaxRatePercent  float64    `json:"taxRatePercent"`
	CashPaid        float64    `json:"cashPaid"`
	CardPaid        float64    `json:"cardPaid"`
	MobileMoneyPaid float64    `json:"mobileMoneyPaid"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Subtotal sums the line totals and subtracts the order-level discount.
func (s Sale) Subtotal() float64 {
	var sum float64
	for _, item := range s.Items {
		sum += item.LineTotal()
	}
	return sum - s.Discount
}

// Tax returns the tax charged on the subtotal.
func (s Sale) Tax() float64 {
	return s.Subtotal() * s.TaxRatePercent / 100
}

// Total returns subtotal plus tax.
func (s Sale) Total() float64 {
	return s.Subtotal() + s.Tax()
}

// PaidTotal sums the three payment tenders.
func (s Sale) PaidTotal() float64 {
	return s.CashPaid + s.CardPaid + s.MobileMoneyPaid
}

// Document renders the sale as a flat field map for remote sync payloads.
func (s Sale) Document() map[string]any {
	data, _ := json.Marshal(s)
	doc := make(map[string]any)
	_ = json.Unmarshal(data, &doc)
	doc["schemaVersion"] = SchemaVersion
	return doc
}

// SaleFromJSON parses a serialized sale record.
func SaleFromJSON(data []byte) (Sale, error) {
	var s Sale
	if err := json.Unmarshal(data, &s); err != nil {
		return Sale{}, fmt.Errorf("sales: parse sale: %w", err)
	}
	if s.ID == "" {
		return Sale{}, errors.New("sales: parse sale: missing id")
	}
	return s, nil
}
