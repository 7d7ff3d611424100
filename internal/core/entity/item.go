// Package entity provides core domain entities.
package entity

import (
	"context"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

// ItemKind distinguishes the two stock-tracked catalogs.
type ItemKind string

const (
	// ItemKindProduct - goods bought and sold through the inventory module
	ItemKindProduct ItemKind = "product"
	// ItemKindSparePart - parts consumed by maintenance work orders
	ItemKindSparePart ItemKind = "spare_part"
)

// Item is a stock-tracked item (product or spare part).
//
// Stock is the authoritative on-hand quantity. It is set once at creation
// and from then on mutated exclusively through the ledger; no repository
// or handler may write it directly.
type Item struct {
	ID   id.ID    `db:"id" json:"id"`
	Code string   `db:"code" json:"code"`
	Name string   `db:"name" json:"name"`
	Kind ItemKind `db:"kind" json:"kind"`

	// Stock is the current on-hand quantity, invariant: >= 0.
	Stock types.Quantity `db:"stock" json:"stock"`

	// UnitPrice is the reference sale/purchase price.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewItem creates an item with its initial stock. This is the only place
// stock is assigned outside the ledger.
func NewItem(code, name string, kind ItemKind, initialStock types.Quantity) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Kind:      kind,
		Stock:     initialStock,
		UnitPrice: types.ZeroMoney(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch increments version (for optimistic locking).
func (i *Item) Touch() {
	i.Version++
	i.UpdatedAt = time.Now().UTC()
}

// Validate implements Validatable.
func (i *Item) Validate(ctx context.Context) error {
	if i.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if i.Kind != ItemKindProduct && i.Kind != ItemKindSparePart {
		return apperror.NewValidation("unknown item kind").
			WithDetail("field", "kind").
			WithDetail("value", string(i.Kind))
	}

	if i.Stock.IsNegative() {
		return apperror.NewValidation("stock cannot be negative").
			WithDetail("field", "stock")
	}

	return nil
}

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}
