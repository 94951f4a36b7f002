package handlers

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/domain/documents/rental"
	"rentory/internal/infrastructure/http/v1/dto"
)

// RentalHandler handles rental order endpoints, including the return workflow.
type RentalHandler struct {
	*BaseHandler
	service *rental.Service
}

// NewRentalHandler creates a new rental order handler.
func NewRentalHandler(service *rental.Service) *RentalHandler {
	return &RentalHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles rental order creation (draft, no stock reserved).
// POST /api/v1/rental-orders
func (h *RentalHandler) Create(c *gin.Context) {
	var req dto.CreateRentalOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToDocument()
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc.ID.String())
}

// Get retrieves one order with lines.
// GET /api/v1/rental-orders/:id
func (h *RentalHandler) Get(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Update handles updates of an unposted order.
// PUT /api/v1/rental-orders/:id
func (h *RentalHandler) Update(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRentalOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := req.ApplyTo(doc); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.service.Update(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Delete soft-deletes an unposted order.
// DELETE /api/v1/rental-orders/:id
func (h *RentalHandler) Delete(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// ValidateAvailability pre-checks the order against current stock without
// reserving anything.
// POST /api/v1/rental-orders/:id/validate
func (h *RentalHandler) ValidateAvailability(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.ValidateAvailability(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "all lines available")
}

// Post checks the order's stock out. All lines succeed or the posting
// fails listing every shortage.
// POST /api/v1/rental-orders/:id/post
func (h *RentalHandler) Post(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Post(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "document posted")
}

// RegisterReturn brings rented stock back against the order's lines.
// POST /api/v1/rental-orders/:id/returns
func (h *RentalHandler) RegisterReturn(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RegisterReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	returns, err := req.ToReturns()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.RegisterReturn(c.Request.Context(), docID, returns); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// List retrieves rental orders with filtering.
// GET /api/v1/rental-orders
func (h *RentalHandler) List(c *gin.Context) {
	var query dto.RentalListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	base, err := query.ToListFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	locationID, err := query.ParseLocationID()
	if err != nil {
		h.Error(c, err)
		return
	}
	filter := rental.ListFilter{
		ListFilter: base,
		LocationID: locationID,
		Posted:     query.Posted,
		DueBefore:  query.DueBefore,
		DateFrom:   query.DateFrom,
		DateTo:     query.DateTo,
	}
	if query.Status != "" {
		status := rental.Status(query.Status)
		filter.Status = &status
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result))
}
