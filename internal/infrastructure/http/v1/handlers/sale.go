package handlers

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/domain/documents/sale"
	"rentory/internal/infrastructure/http/v1/dto"
)

// SaleHandler handles sale invoice endpoints.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a new sale invoice handler.
func NewSaleHandler(service *sale.Service) *SaleHandler {
	return &SaleHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles sale invoice creation (draft, no stock movement).
// POST /api/v1/sale-invoices
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleInvoiceRequest
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

// Get retrieves one invoice with lines.
// GET /api/v1/sale-invoices/:id
func (h *SaleHandler) Get(c *gin.Context) {
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

// Update handles updates of an unposted invoice.
// PUT /api/v1/sale-invoices/:id
func (h *SaleHandler) Update(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSaleInvoiceRequest
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

// Delete soft-deletes an unposted invoice.
// DELETE /api/v1/sale-invoices/:id
func (h *SaleHandler) Delete(c *gin.Context) {
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

// ValidateAvailability pre-checks the invoice against current stock.
// POST /api/v1/sale-invoices/:id/validate
func (h *SaleHandler) ValidateAvailability(c *gin.Context) {
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

// Post removes the invoice's stock from the ledger.
// POST /api/v1/sale-invoices/:id/post
func (h *SaleHandler) Post(c *gin.Context) {
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

// Unpost is not supported for sale invoices; sold goods are gone. The
// service reports the business rule violation.
// POST /api/v1/sale-invoices/:id/unpost
func (h *SaleHandler) Unpost(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Unpost(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "document unposted")
}

// List retrieves invoices with filtering.
// GET /api/v1/sale-invoices
func (h *SaleHandler) List(c *gin.Context) {
	var query dto.DocumentListQuery
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
	filter := sale.ListFilter{
		ListFilter: base,
		LocationID: locationID,
		Posted:     query.Posted,
		DateFrom:   query.DateFrom,
		DateTo:     query.DateTo,
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(result))
}
