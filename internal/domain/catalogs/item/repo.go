// Package item provides the tracked item catalog (products and spare parts).
package item

import (
	"context"

	"taller/internal/core/entity"
	"taller/internal/domain/ledger"
)

// ListFilter narrows item listings.
type ListFilter struct {
	Kind   *entity.ItemKind
	Search string
	Limit  int
	Offset int
}

// Repository defines persistence for the item catalog. It embeds the
// ledger's ItemStore: the same rows back both the catalog and the ledger,
// but only the ledger writes the stock column.
type Repository interface {
	ledger.ItemStore

	// Create inserts a new item with its initial stock.
	Create(ctx context.Context, i *entity.Item) error

	// Update rewrites descriptive fields. Implementations must not touch
	// the stock column; that write path belongs to the ledger.
	Update(ctx context.Context, i *entity.Item) error

	// GetByCode returns the item with the given code or apperror NOT_FOUND.
	GetByCode(ctx context.Context, code string) (*entity.Item, error)

	// List returns items matching the filter, ordered by code.
	List(ctx context.Context, filter ListFilter) ([]entity.Item, error)
}
