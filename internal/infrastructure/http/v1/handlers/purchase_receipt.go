package handlers

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/domain/documents/purchase_receipt"
	"rentory/internal/infrastructure/http/v1/dto"
)

// PurchaseReceiptHandler handles purchase receipt endpoints.
type PurchaseReceiptHandler struct {
	*BaseHandler
	service *purchase_receipt.Service
}

// NewPurchaseReceiptHandler creates a new purchase receipt handler.
func NewPurchaseReceiptHandler(service *purchase_receipt.Service) *PurchaseReceiptHandler {
	return &PurchaseReceiptHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles purchase receipt creation (draft, no stock movement).
// POST /api/v1/purchase-receipts
func (h *PurchaseReceiptHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseReceiptRequest
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

// Get retrieves one receipt with lines.
// GET /api/v1/purchase-receipts/:id
func (h *PurchaseReceiptHandler) Get(c *gin.Context) {
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

// Update handles updates of an unposted receipt.
// PUT /api/v1/purchase-receipts/:id
func (h *PurchaseReceiptHandler) Update(c *gin.Context) {
	docID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePurchaseReceiptRequest
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

// Delete soft-deletes an unposted receipt.
// DELETE /api/v1/purchase-receipts/:id
func (h *PurchaseReceiptHandler) Delete(c *gin.Context) {
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

// Post records the receipt's stock into the ledger.
// POST /api/v1/purchase-receipts/:id/post
func (h *PurchaseReceiptHandler) Post(c *gin.Context) {
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

// Unpost is not supported for purchase receipts; stock may already be
// allocated downstream. The service reports the business rule violation.
// POST /api/v1/purchase-receipts/:id/unpost
func (h *PurchaseReceiptHandler) Unpost(c *gin.Context) {
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

// List retrieves receipts with filtering.
// GET /api/v1/purchase-receipts
func (h *PurchaseReceiptHandler) List(c *gin.Context) {
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
	filter := purchase_receipt.ListFilter{
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
