package entity

import (
	"context"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
)

// MaintenanceStatus is the lifecycle state of a maintenance record.
type MaintenanceStatus string

const (
	MaintenanceStatusOpen   MaintenanceStatus = "open"
	MaintenanceStatusClosed MaintenanceStatus = "closed"
)

// MaintenanceRecord is a machine work order. Spare part usages reference it;
// once closed, its usages can no longer be created or amended.
type MaintenanceRecord struct {
	ID id.ID `db:"id" json:"id"`

	// MachineRef identifies the machine being serviced.
	MachineRef string `db:"machine_ref" json:"machineRef"`

	Description string            `db:"description" json:"description,omitempty"`
	Status      MaintenanceStatus `db:"status" json:"status"`

	OpenedAt time.Time  `db:"opened_at" json:"openedAt"`
	ClosedAt *time.Time `db:"closed_at" json:"closedAt,omitempty"`

	Version int `db:"version" json:"version"`
}

// NewMaintenanceRecord opens a new work order for a machine.
func NewMaintenanceRecord(machineRef, description string) *MaintenanceRecord {
	return &MaintenanceRecord{
		ID:          id.New(),
		MachineRef:  machineRef,
		Description: description,
		Status:      MaintenanceStatusOpen,
		OpenedAt:    time.Now().UTC(),
		Version:     1,
	}
}

// IsClosed reports whether the record is finalized.
func (r *MaintenanceRecord) IsClosed() bool {
	return r.Status == MaintenanceStatusClosed
}

// Close finalizes the record.
func (r *MaintenanceRecord) Close() {
	now := time.Now().UTC()
	r.Status = MaintenanceStatusClosed
	r.ClosedAt = &now
	r.Version++
}

// Validate implements Validatable.
func (r *MaintenanceRecord) Validate(ctx context.Context) error {
	if r.MachineRef == "" {
		return apperror.NewValidation("machine reference is required").
			WithDetail("field", "machineRef")
	}

	if r.Status != MaintenanceStatusOpen && r.Status != MaintenanceStatusClosed {
		return apperror.NewValidation("unknown maintenance status").
			WithDetail("field", "status").
			WithDetail("value", string(r.Status))
	}

	return nil
}
