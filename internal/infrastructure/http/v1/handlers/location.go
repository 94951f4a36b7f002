package handlers

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/domain/catalogs/location"
	"rentory/internal/infrastructure/http/v1/dto"
)

// LocationHandler handles location catalog endpoints.
type LocationHandler struct {
	*BaseHandler
	service *location.Service
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(service *location.Service) *LocationHandler {
	return &LocationHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles location creation.
// POST /api/v1/locations
func (h *LocationHandler) Create(c *gin.Context) {
	var req dto.CreateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc := req.ToLocation()
	if err := h.service.Create(c.Request.Context(), loc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, loc.ID.String())
}

// Get retrieves one location by id.
// GET /api/v1/locations/:id
func (h *LocationHandler) Get(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	loc, err := h.service.GetByID(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// Update handles location updates.
// PUT /api/v1/locations/:id
func (h *LocationHandler) Update(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	loc, err := h.service.GetByID(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(loc)
	if err := h.service.Update(c.Request.Context(), loc); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, loc)
}

// Delete soft-deletes a location.
// DELETE /api/v1/locations/:id
func (h *LocationHandler) Delete(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), locationID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// SetDeletionMark sets or clears the deletion mark.
// POST /api/v1/locations/:id/deletion-mark
func (h *LocationHandler) SetDeletionMark(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SetDeletionMarkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.SetDeletionMark(c.Request.Context(), locationID, req.Marked); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "deletion mark updated")
}

// List retrieves locations with filtering.
// GET /api/v1/locations
func (h *LocationHandler) List(c *gin.Context) {
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
