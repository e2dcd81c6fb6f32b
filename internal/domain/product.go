package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNegativePrice is returned when a product price below zero reaches the
// entity layer. The same rule is checked earlier at the request schema level;
// the entity keeps its own guard so an invalid price can never be persisted.
var ErrNegativePrice = errors.New("price must be greater than or equal to zero")

// Product represents a catalog product
type Product struct {
	ID          int64            `json:"id" db:"id"`
	SKU         string           `json:"sku" db:"sku"`
	Title       string           `json:"title" db:"title"`
	Description *string          `json:"description" db:"description"`
	Image       *string          `json:"image" db:"image"`
	Price       decimal.Decimal  `json:"price" db:"price"`
	CategoryID  int64            `json:"category_id" db:"category_id"`
	Category    *CategorySummary `json:"category,omitempty"`
}

// ValidatePrice enforces the non-negative price invariant on the entity
// itself, independently of any schema-level validation.
func (p *Product) ValidatePrice() error {
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
