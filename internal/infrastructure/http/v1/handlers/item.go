package handlers

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/domain/catalogs/item"
	"rentory/internal/infrastructure/http/v1/dto"
)

// ItemHandler handles item catalog endpoints.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

// NewItemHandler creates a new item handler.
func NewItemHandler(service *item.Service) *ItemHandler {
	return &ItemHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles item creation.
// POST /api/v1/items
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	it, err := req.ToItem()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, it.ID.String())
}

// Get retrieves one item by id.
// GET /api/v1/items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// GetBySKU retrieves one item by SKU.
// GET /api/v1/items/sku/:sku
func (h *ItemHandler) GetBySKU(c *gin.Context) {
	it, err := h.service.FindBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// Update handles item updates.
// PUT /api/v1/items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	it, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(it); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(c.Request.Context(), it); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// Delete soft-deletes an item.
// DELETE /api/v1/items/:id
func (h *ItemHandler) Delete(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), itemID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// SetDeletionMark sets or clears the deletion mark.
// POST /api/v1/items/:id/deletion-mark
func (h *ItemHandler) SetDeletionMark(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SetDeletionMarkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetDeletionMark(c.Request.Context(), itemID, req.Marked); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "deletion mark updated")
}

// List retrieves items with filtering.
// GET /api/v1/items
func (h *ItemHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToListFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result))
}
