package handlers

import (
	"github.com/gin-gonic/gin"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/internal/domain/movements"
	"taller/internal/infrastructure/http/v1/dto"
)

// MovementHandler handles HTTP requests for stock movements.
type MovementHandler struct {
	*BaseHandler
	service *movements.Service
	audit   movements.AuditReader
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(base *BaseHandler, service *movements.Service, audit movements.AuditReader) *MovementHandler {
	return &MovementHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// CreateEntry handles POST /movements/entries
func (h *MovementHandler) CreateEntry(c *gin.Context) {
	var req dto.CreateEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.CreateEntry(c.Request.Context(), req.SupplierRef, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(m))
}

// CreateExit handles POST /movements/exits
func (h *MovementHandler) CreateExit(c *gin.Context) {
	var req dto.CreateExitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.CreateExit(c.Request.Context(), req.CustomerRef, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(m))
}

// CreateSparePartUsage handles POST /movements/spare-part-usages
func (h *MovementHandler) CreateSparePartUsage(c *gin.Context) {
	var req dto.CreateSparePartUsageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sparePartID, err := id.Parse(req.SparePartID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid spare part id"))
		return
	}
	recordID, err := id.Parse(req.MaintenanceRecordID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid maintenance record id"))
		return
	}

	m, err := h.service.CreateSparePartUsage(c.Request.Context(), sparePartID, recordID, types.Quantity(req.Quantity))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMovement(m))
}

// Get handles GET /movements/:id
func (h *MovementHandler) Get(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(m))
}

// Update handles PUT /movements/:id - replaces the lines of an entry or exit.
func (h *MovementHandler) Update(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.UpdateMovement(c.Request.Context(), movementID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(m))
}

// UpdateSparePartUsage handles PUT /movements/spare-part-usages/:id
func (h *MovementHandler) UpdateSparePartUsage(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateSparePartUsageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := h.service.UpdateSparePartUsage(c.Request.Context(), movementID, types.Quantity(req.Quantity))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(m))
}

// Delete handles DELETE /movements/:id - reverses the stock effect and
// removes the movement. Rejected when the reversal would drive stock negative.
func (h *MovementHandler) Delete(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if _, err := h.service.DeleteMovement(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// History handles GET /movements/:id/history - the audited change trail.
func (h *MovementHandler) History(c *gin.Context) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	// 404 for movements that never existed; deleted ones keep their trail.
	entries, err := h.audit.History(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if len(entries) == 0 {
		if _, err := h.service.GetByID(c.Request.Context(), movementID); err != nil {
			h.Error(c, err)
			return
		}
	}

	items := make([]dto.AuditEntryResponse, len(entries))
	for i := range entries {
		items[i] = dto.FromAuditEntry(&entries[i])
	}

	h.OK(c, dto.ListResponse{Items: items, Limit: len(items)})
}

// ListByItem handles GET /items/:id/movements
func (h *MovementHandler) ListByItem(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	result, err := h.service.ListByItem(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.MovementResponse, len(result))
	for i := range result {
		items[i] = dto.FromMovement(&result[i])
	}

	h.OK(c, dto.ListResponse{Items: items, Limit: len(items)})
}

// Stock handles GET /items/:id/stock
func (h *MovementHandler) Stock(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	stock, err := h.service.CurrentStock(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockResponse{ItemID: itemID.String(), Stock: stock.Int64()})
}

// RegisterRoutes registers movement routes.
func (h *MovementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/entries", h.CreateEntry)
	rg.POST("/exits", h.CreateExit)
	rg.POST("/spare-part-usages", h.CreateSparePartUsage)
	rg.PUT("/spare-part-usages/:id", h.UpdateSparePartUsage)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/history", h.History)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
