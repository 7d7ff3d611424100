// Package movements coordinates the lifecycle of stock movements: purchase
// entries, sale exits, and maintenance spare part usages.
package movements

import (
	"context"
	"encoding/json"
	"time"

	"taller/internal/core/entity"
	"taller/internal/core/id"
)

// Store is plain persistence for movement rows. No business logic; the
// coordinator is tested against an in-memory implementation.
type Store interface {
	// Save inserts a movement with its lines.
	Save(ctx context.Context, m *entity.Movement) error

	// GetByID returns a movement with lines or apperror NOT_FOUND.
	GetByID(ctx context.Context, movementID id.ID) (*entity.Movement, error)

	// Update rewrites a movement and its lines. The stored version must
	// match m.Version-1; a mismatch is CONCURRENT_MODIFICATION.
	Update(ctx context.Context, m *entity.Movement) error

	// Delete removes a movement and its lines.
	Delete(ctx context.Context, movementID id.ID) error

	// ListByItem returns movements that reference the item, newest first.
	ListByItem(ctx context.Context, itemID id.ID) ([]entity.Movement, error)
}

// AuditAction classifies an audited movement mutation.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// Auditor records movement lifecycle changes. Implementations write within
// the ambient transaction so the trail cannot outlive a rollback.
type Auditor interface {
	Log(ctx context.Context, action AuditAction, m *entity.Movement) error
}

// AuditEntry is one recorded mutation of a movement, with the decoded
// snapshot taken at that point.
type AuditEntry struct {
	ID        id.ID
	Action    AuditAction
	Changes   json.RawMessage
	CreatedAt time.Time
}

// AuditReader lists the recorded history of a movement, oldest first.
type AuditReader interface {
	History(ctx context.Context, movementID id.ID) ([]AuditEntry, error)
}
