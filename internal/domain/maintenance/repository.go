// Package maintenance provides machine work order records.
package maintenance

import (
	"context"

	"taller/internal/core/entity"
	"taller/internal/core/id"
)

// Repository defines persistence for maintenance records.
type Repository interface {
	// Create inserts a new record.
	Create(ctx context.Context, r *entity.MaintenanceRecord) error

	// GetByID returns the record or apperror NOT_FOUND.
	GetByID(ctx context.Context, recordID id.ID) (*entity.MaintenanceRecord, error)

	// Update rewrites a record (status transitions).
	Update(ctx context.Context, r *entity.MaintenanceRecord) error

	// List returns records, newest first.
	List(ctx context.Context, limit, offset int) ([]entity.MaintenanceRecord, error)
}
