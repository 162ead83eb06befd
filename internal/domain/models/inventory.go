package models

import (
	"strconv"
	"time"
)

// InventoryRecord is one normalized line item recovered from free text.
// Unit is only ever set together with Quantity.
type InventoryRecord struct {
	Sequence int      `json:"sequence" bson:"sequence"`
	Name     string   `json:"name" bson:"name"`
	Unit     string   `json:"unit" bson:"unit"`
	Quantity *float64 `json:"quantity" bson:"quantity,omitempty"`
}

// HasQuantity reports whether a quantity was recognized for the item.
func (r InventoryRecord) HasQuantity() bool {
	return r.Quantity != nil
}

// QuantityText renders the quantity without trailing zeros, or "" when unset.
func (r InventoryRecord) QuantityText() string {
	if r.Quantity == nil {
		return ""
	}
	return strconv.FormatFloat(*r.Quantity, 'f', -1, 64)
}

// Line rebuilds the item as "<name><quantity><unit>", the shape it is usually written in.
func (r InventoryRecord) Line() string {
	return r.Name + r.QuantityText() + r.Unit
}

// ItemFailure describes a candidate string that could not be normalized.
type ItemFailure struct {
	Text   string `json:"text" bson:"text"`
	Reason string `json:"reason" bson:"reason"`
	Err    error  `json:"-" bson:"-"`
}

// InventoryBatch is an archived parse run, keyed by a generated id.
type InventoryBatch struct {
	ID        string            `json:"id" bson:"_id"`
	Source    string            `json:"source" bson:"source"`
	Raw       string            `json:"raw" bson:"raw"`
	Records   []InventoryRecord `json:"records" bson:"records"`
	Failures  []ItemFailure     `json:"failures" bson:"failures"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}
