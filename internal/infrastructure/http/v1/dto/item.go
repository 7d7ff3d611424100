package dto

import (
	"time"

	"taller/internal/core/entity"
)

// --- Request DTOs ---

// CreateItemRequest represents a request to create a catalog item.
type CreateItemRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Kind         string `json:"kind" binding:"required,oneof=product spare_part"`
	InitialStock int64  `json:"initialStock" binding:"gte=0"`
	UnitPrice    string `json:"unitPrice,omitempty"`
}

// UpdateItemRequest represents a request to update item attributes.
// Stock is deliberately absent: it only changes through movements.
type UpdateItemRequest struct {
	Name      string `json:"name" binding:"required"`
	UnitPrice string `json:"unitPrice,omitempty"`
}

// --- Response DTOs ---

// ItemResponse represents a catalog item in API responses.
type ItemResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Stock     int64     `json:"stock"`
	UnitPrice string    `json:"unitPrice"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromItem converts domain entity to response DTO.
func FromItem(i *entity.Item) *ItemResponse {
	return &ItemResponse{
		ID:        i.ID.String(),
		Code:      i.Code,
		Name:      i.Name,
		Kind:      string(i.Kind),
		Stock:     i.Stock.Int64(),
		UnitPrice: i.UnitPrice.String(),
		Version:   i.Version,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}
