// Package ledger holds and mutates the authoritative stock value per item.
package ledger

import (
	"context"

	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

// ItemStore defines the persistence operations the ledger needs.
type ItemStore interface {
	// GetByID returns the item or apperror NOT_FOUND.
	GetByID(ctx context.Context, itemID id.ID) (*entity.Item, error)

	// GetForUpdate returns the item with a row lock held for the rest of
	// the ambient transaction, serializing mutations on the same item.
	GetForUpdate(ctx context.Context, itemID id.ID) (*entity.Item, error)

	// SetStock persists a new stock value. The expected version guards
	// against lost updates; a mismatch is CONCURRENT_MODIFICATION.
	SetStock(ctx context.Context, itemID id.ID, stock types.Quantity, expectedVersion int) error
}
