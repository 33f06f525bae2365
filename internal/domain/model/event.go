// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/spendlens/pkg/validation"
)

// PurchaseEvent is one immutable purchase by a subject. Price and quantity
// are bounded so that amounts and window sums stay finite.
type PurchaseEvent struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id" validate:"required"`
	Category    Category  `json:"category"`
	ProductName string    `json:"product_name"`
	UnitPrice   float64   `json:"unit_price" validate:"gte=0,lte=1e9"`
	Quantity    int       `json:"quantity" validate:"gt=0,lte=1000000"`
	OccurredAt  time.Time `json:"occurred_at" validate:"required"`
}

// Amount is always derived from price and quantity.
func (e PurchaseEvent) Amount() float64 {
	return e.UnitPrice * float64(e.Quantity)
}

// Validate reports whether the event can take part in feature extraction.
func (e PurchaseEvent) Validate() error {
	return validation.Struct(e)
}

// Valid is Validate() == nil.
func (e PurchaseEvent) Valid() bool {
	return e.Validate() == nil
}
