package handlers

import (
	"github.com/gin-gonic/gin"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/domain/maintenance"
	"taller/internal/infrastructure/http/v1/dto"
)

// MaintenanceHandler handles HTTP requests for maintenance records.
type MaintenanceHandler struct {
	*BaseHandler
	service *maintenance.Service
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(base *BaseHandler, service *maintenance.Service) *MaintenanceHandler {
	return &MaintenanceHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Open handles POST /maintenance-records
func (h *MaintenanceHandler) Open(c *gin.Context) {
	var req dto.OpenMaintenanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	record, err := h.service.Open(c.Request.Context(), req.MachineRef, req.Description)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromMaintenanceRecord(record))
}

// Get handles GET /maintenance-records/:id
func (h *MaintenanceHandler) Get(c *gin.Context) {
	recordID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	record, err := h.service.GetByID(c.Request.Context(), recordID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMaintenanceRecord(record))
}

// Close handles POST /maintenance-records/:id/close
func (h *MaintenanceHandler) Close(c *gin.Context) {
	recordID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	record, err := h.service.Close(c.Request.Context(), recordID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMaintenanceRecord(record))
}

// List handles GET /maintenance-records
func (h *MaintenanceHandler) List(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	records := make([]*dto.MaintenanceResponse, len(result))
	for i := range result {
		records[i] = dto.FromMaintenanceRecord(&result[i])
	}

	h.OK(c, dto.ListResponse{Items: records, Limit: limit, Offset: offset})
}

// RegisterRoutes registers maintenance record routes.
func (h *MaintenanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Open)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/close", h.Close)
}
