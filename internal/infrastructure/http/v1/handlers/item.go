package handlers

import (
	"github.com/gin-gonic/gin"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/internal/domain/catalogs/item"
	"taller/internal/infrastructure/http/v1/dto"
)

// ItemHandler handles HTTP requests for catalog items.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

// NewItemHandler creates a new item handler.
func NewItemHandler(base *BaseHandler, service *item.Service) *ItemHandler {
	return &ItemHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	price := types.ZeroMoney()
	if req.UnitPrice != "" {
		var err error
		price, err = types.NewMoneyFromString(req.UnitPrice)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid unit price"))
			return
		}
	}

	created, err := h.service.Create(c.Request.Context(),
		req.Code, req.Name, entity.ItemKind(req.Kind),
		types.Quantity(req.InitialStock), price)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromItem(created))
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	found, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(found))
}

// Update handles PUT /items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	price := types.ZeroMoney()
	if req.UnitPrice != "" {
		price, err = types.NewMoneyFromString(req.UnitPrice)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid unit price"))
			return
		}
	}

	updated, err := h.service.Update(c.Request.Context(), itemID, req.Name, price)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(updated))
}

// List handles GET /items - list with filtering.
func (h *ItemHandler) List(c *gin.Context) {
	filter := item.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if kind := c.Query("kind"); kind != "" {
		k := entity.ItemKind(kind)
		filter.Kind = &k
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.ItemResponse, len(result))
	for i := range result {
		items[i] = dto.FromItem(&result[i])
	}

	h.OK(c, dto.ListResponse{Items: items, Limit: filter.Limit, Offset: filter.Offset})
}

// RegisterRoutes registers item routes.
func (h *ItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
}
