package dto

import (
	"encoding/json"
	"time"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/internal/domain/movements"
)

// --- Request DTOs ---

// EntryLineRequest is one purchased item line in a create request.
type EntryLineRequest struct {
	ItemID    string `json:"itemId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice string `json:"unitPrice" binding:"required"`
}

// CreateEntryRequest represents a request to record an inventory purchase.
type CreateEntryRequest struct {
	SupplierRef string             `json:"supplierRef,omitempty"`
	Lines       []EntryLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToLines converts request lines to coordinator inputs.
func (r *CreateEntryRequest) ToLines() ([]movements.EntryLine, error) {
	lines := make([]movements.EntryLine, 0, len(r.Lines))
	for i, line := range r.Lines {
		itemID, err := id.Parse(line.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").WithDetail("lineNo", i+1)
		}
		price, err := types.NewMoneyFromString(line.UnitPrice)
		if err != nil {
			return nil, apperror.NewValidation("invalid unit price").WithDetail("lineNo", i+1)
		}
		lines = append(lines, movements.EntryLine{
			ItemID:    itemID,
			Quantity:  types.Quantity(line.Quantity),
			UnitPrice: price,
		})
	}
	return lines, nil
}

// ExitLineRequest is one sold item line in a create request.
type ExitLineRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

// CreateExitRequest represents a request to record an inventory sale.
type CreateExitRequest struct {
	CustomerRef string            `json:"customerRef,omitempty"`
	Lines       []ExitLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToLines converts request lines to coordinator inputs.
func (r *CreateExitRequest) ToLines() ([]movements.ExitLine, error) {
	lines := make([]movements.ExitLine, 0, len(r.Lines))
	for i, line := range r.Lines {
		itemID, err := id.Parse(line.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").WithDetail("lineNo", i+1)
		}
		lines = append(lines, movements.ExitLine{
			ItemID:   itemID,
			Quantity: types.Quantity(line.Quantity),
		})
	}
	return lines, nil
}

// CreateSparePartUsageRequest represents a request to record spare part
// consumption against a maintenance record.
type CreateSparePartUsageRequest struct {
	SparePartID         string `json:"sparePartId" binding:"required"`
	MaintenanceRecordID string `json:"maintenanceRecordId" binding:"required"`
	Quantity            int64  `json:"quantity" binding:"required,gt=0"`
}

// UpdateSparePartUsageRequest amends the consumed quantity.
type UpdateSparePartUsageRequest struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// MovementLineRequest is one replacement line in an amendment request.
type MovementLineRequest struct {
	ItemID    string `json:"itemId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice string `json:"unitPrice,omitempty"`
}

// UpdateMovementRequest replaces the lines of an entry or exit.
type UpdateMovementRequest struct {
	Lines []MovementLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToLines converts request lines to coordinator inputs.
func (r *UpdateMovementRequest) ToLines() ([]movements.LineInput, error) {
	lines := make([]movements.LineInput, 0, len(r.Lines))
	for i, line := range r.Lines {
		itemID, err := id.Parse(line.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").WithDetail("lineNo", i+1)
		}
		price := types.ZeroMoney()
		if line.UnitPrice != "" {
			price, err = types.NewMoneyFromString(line.UnitPrice)
			if err != nil {
				return nil, apperror.NewValidation("invalid unit price").WithDetail("lineNo", i+1)
			}
		}
		lines = append(lines, movements.LineInput{
			ItemID:    itemID,
			Quantity:  types.Quantity(line.Quantity),
			UnitPrice: price,
		})
	}
	return lines, nil
}

// --- Response DTOs ---

// MovementLineResponse represents a movement line in API responses.
type MovementLineResponse struct {
	LineID    string `json:"lineId"`
	LineNo    int    `json:"lineNo"`
	ItemID    string `json:"itemId"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// MovementResponse represents a movement in API responses.
type MovementResponse struct {
	ID                  string                 `json:"id"`
	Number              string                 `json:"number"`
	Kind                string                 `json:"kind"`
	Reference           string                 `json:"reference,omitempty"`
	MaintenanceRecordID string                 `json:"maintenanceRecordId,omitempty"`
	Lines               []MovementLineResponse `json:"lines"`
	Version             int                    `json:"version"`
	CreatedAt           time.Time              `json:"createdAt"`
	UpdatedAt           time.Time              `json:"updatedAt"`
}

// FromMovement converts domain entity to response DTO.
func FromMovement(m *entity.Movement) *MovementResponse {
	resp := &MovementResponse{
		ID:        m.ID.String(),
		Number:    m.Number,
		Kind:      string(m.Kind),
		Reference: m.Reference,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.MaintenanceRecordID != nil {
		resp.MaintenanceRecordID = m.MaintenanceRecordID.String()
	}

	resp.Lines = make([]MovementLineResponse, len(m.Lines))
	for i, line := range m.Lines {
		resp.Lines[i] = MovementLineResponse{
			LineID:    line.LineID.String(),
			LineNo:    line.LineNo,
			ItemID:    line.ItemID.String(),
			Quantity:  line.Quantity.Int64(),
			UnitPrice: line.UnitPrice.String(),
		}
	}

	return resp
}

// StockResponse reports the current stock level of an item.
type StockResponse struct {
	ItemID string `json:"itemId"`
	Stock  int64  `json:"stock"`
}

// AuditEntryResponse is one audited mutation with the movement snapshot
// taken at that point.
type AuditEntryResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Changes   json.RawMessage `json:"changes"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromAuditEntry converts a domain audit entry to response DTO.
func FromAuditEntry(e *movements.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        e.ID.String(),
		Action:    string(e.Action),
		Changes:   e.Changes,
		CreatedAt: e.CreatedAt,
	}
}
