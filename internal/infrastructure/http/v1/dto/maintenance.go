package dto

import (
	"time"

	"taller/internal/core/entity"
)

// OpenMaintenanceRequest represents a request to open a maintenance record.
type OpenMaintenanceRequest struct {
	MachineRef  string `json:"machineRef" binding:"required"`
	Description string `json:"description,omitempty"`
}

// MaintenanceResponse represents a maintenance record in API responses.
type MaintenanceResponse struct {
	ID          string     `json:"id"`
	MachineRef  string     `json:"machineRef"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	OpenedAt    time.Time  `json:"openedAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	Version     int        `json:"version"`
}

// FromMaintenanceRecord converts domain entity to response DTO.
func FromMaintenanceRecord(r *entity.MaintenanceRecord) *MaintenanceResponse {
	return &MaintenanceResponse{
		ID:          r.ID.String(),
		MachineRef:  r.MachineRef,
		Description: r.Description,
		Status:      string(r.Status),
		OpenedAt:    r.OpenedAt,
		ClosedAt:    r.ClosedAt,
		Version:     r.Version,
	}
}
