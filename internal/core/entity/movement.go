package entity

import (
	"context"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/types"
)

// MovementKind defines the stock-affecting event type.
type MovementKind string

const (
	// MovementKindEntry - inventory purchase, increases stock
	MovementKindEntry MovementKind = "entry"
	// MovementKindExit - inventory sale, decreases stock
	MovementKindExit MovementKind = "exit"
	// MovementKindSparePartUsage - maintenance consumption, decreases spare part stock
	MovementKindSparePartUsage MovementKind = "spare_part_usage"
)

// Sign returns the ledger sign for one unit of this movement kind.
func (k MovementKind) Sign() types.Quantity {
	if k == MovementKindEntry {
		return 1
	}
	return -1
}

// MovementLine is one item line of a movement. Quantity is always the
// positive magnitude; the sign comes from the movement kind.
type MovementLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID    id.ID          `db:"item_id" json:"itemId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
}

// SignedDelta returns the stock change this line causes for its item.
func (l MovementLine) SignedDelta(kind MovementKind) types.Quantity {
	return l.Quantity * kind.Sign()
}

// Movement is one committed stock-affecting event: a purchase entry, a sale
// exit, or a spare part usage. Identity (id, kind, referenced items) is
// immutable; quantities may be amended and the movement may be deleted, both
// through the coordinator so the ledger effect is recomputed.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	// Number is the human-readable document number (auto-generated)
	Number string `db:"number" json:"number"`

	Kind MovementKind `db:"kind" json:"kind"`

	// Reference identifies the counterparty: supplier for entries,
	// customer for exits. Empty for spare part usages.
	Reference string `db:"reference" json:"reference,omitempty"`

	// MaintenanceRecordID links a spare part usage to its work order.
	MaintenanceRecordID *id.ID `db:"maintenance_record_id" json:"maintenanceRecordId,omitempty"`

	Lines []MovementLine `db:"-" json:"lines"`

	// Version for optimistic locking (incremented on each amendment)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewMovement creates a movement shell without lines.
func NewMovement(kind MovementKind, reference string) *Movement {
	now := time.Now().UTC()
	return &Movement{
		ID:        id.New(),
		Kind:      kind,
		Reference: reference,
		Lines:     make([]MovementLine, 0),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddLine appends an item line.
func (m *Movement) AddLine(itemID id.ID, quantity types.Quantity, unitPrice types.Money) {
	m.Lines = append(m.Lines, MovementLine{
		LineID:    id.New(),
		LineNo:    len(m.Lines) + 1,
		ItemID:    itemID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
}

// Touch increments version (for optimistic locking).
func (m *Movement) Touch() {
	m.Version++
	m.UpdatedAt = time.Now().UTC()
}

// Deltas returns the net signed stock change per item for this movement.
// An item appearing on several lines is accumulated.
func (m *Movement) Deltas() map[id.ID]types.Quantity {
	deltas := make(map[id.ID]types.Quantity, len(m.Lines))
	for _, line := range m.Lines {
		deltas[line.ItemID] += line.SignedDelta(m.Kind)
	}
	return deltas
}

// Validate implements Validatable.
func (m *Movement) Validate(ctx context.Context) error {
	switch m.Kind {
	case MovementKindEntry, MovementKindExit, MovementKindSparePartUsage:
	default:
		return apperror.NewValidation("unknown movement kind").
			WithDetail("field", "kind").
			WithDetail("value", string(m.Kind))
	}

	if len(m.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	if m.Kind == MovementKindSparePartUsage {
		if len(m.Lines) != 1 {
			return apperror.NewValidation("spare part usage has exactly one line").
				WithDetail("field", "lines")
		}
		if m.MaintenanceRecordID == nil || id.IsNil(*m.MaintenanceRecordID) {
			return apperror.NewValidation("maintenance record is required").
				WithDetail("field", "maintenanceRecordId")
		}
	}

	for i, line := range m.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewInvalidQuantity(line.Quantity.Int64()).
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
