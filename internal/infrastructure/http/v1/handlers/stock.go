package handlers

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/domain/ledger"
	"rentory/internal/infrastructure/http/v1/dto"
)

// StockHandler exposes the stock ledger: levels, movement trail, and the
// manual operations that bypass documents (adjustments, write-offs).
type StockHandler struct {
	*BaseHandler
	engine *ledger.Engine
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(engine *ledger.Engine) *StockHandler {
	return &StockHandler{
		BaseHandler: NewBaseHandler(),
		engine:      engine,
	}
}

// CreateLevel initializes tracking for an (item, location) pair.
// POST /api/v1/stock/levels
func (h *StockHandler) CreateLevel(c *gin.Context) {
	var req dto.CreateStockLevelRequest
	if !h.BindJSON(c, &req) {
		return
	}

	itemID, err := id.Parse(req.ItemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	ref := ledger.Reference{
		Type:   entity.ReferenceManualAdjustment,
		ID:     h.GetUserID(c),
		Reason: req.Reason,
		Notes:  req.Notes,
	}
	level, err := h.engine.CreateStockLevel(c.Request.Context(), itemID, locationID, req.InitialQuantity, ref)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, level.ID.String())
}

// GetLevel retrieves one stock level by id.
// GET /api/v1/stock/levels/:id
func (h *StockHandler) GetLevel(c *gin.Context) {
	levelID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	level, err := h.engine.GetStockLevelByID(c.Request.Context(), levelID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// GetLevelByPair retrieves the level for an (item, location) pair.
// GET /api/v1/stock/locations/:locationId/items/:itemId
func (h *StockHandler) GetLevelByPair(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "locationId")
	if !ok {
		return
	}
	itemID, ok := h.ParseIDParam(c, "itemId")
	if !ok {
		return
	}

	level, err := h.engine.GetStockLevel(c.Request.Context(), itemID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, level)
}

// ListLevels lists stock levels at one location.
// GET /api/v1/stock/locations/:locationId/levels
func (h *StockHandler) ListLevels(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "locationId")
	if !ok {
		return
	}

	var query dto.StockLevelQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	levels, err := h.engine.ListStockLevels(c.Request.Context(), locationID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      levels,
		TotalCount: int64(len(levels)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// Adjust changes a level's on-hand quantity by a signed delta.
// POST /api/v1/stock/levels/:id/adjust
func (h *StockHandler) Adjust(c *gin.Context) {
	levelID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ref := ledger.Reference{
		Type:   entity.ReferenceManualAdjustment,
		ID:     h.GetUserID(c),
		Reason: req.Reason,
		Notes:  req.Notes,
	}
	results, err := h.engine.AdjustManually(c.Request.Context(), levelID, req.Delta, ref)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovementResults(results))
}

// WriteOff removes damaged or lost quantity from a level.
// POST /api/v1/stock/levels/:id/write-off
func (h *StockHandler) WriteOff(c *gin.Context) {
	levelID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.WriteOffRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ref := ledger.Reference{
		Type:   entity.ReferenceManualAdjustment,
		ID:     h.GetUserID(c),
		Reason: req.Reason,
		Notes:  req.Notes,
	}
	result, err := h.engine.WriteOff(c.Request.Context(), levelID, req.Quantity, ref)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovementResult(*result))
}

// Transfer moves available stock between two locations.
// POST /api/v1/stock/transfer
func (h *StockHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	fromID, err := id.Parse(req.FromLocationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	toID, err := id.Parse(req.ToLocationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	lines, err := req.LedgerLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	ref := ledger.Reference{
		Type:   entity.ReferenceManualAdjustment,
		ID:     h.GetUserID(c),
		Reason: req.Reason,
		Notes:  req.Notes,
	}
	results, err := h.engine.Transfer(c.Request.Context(), fromID, toID, lines, ref)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovementResults(results))
}

// Deactivate soft-disables a level; quantities are retained for audit.
// POST /api/v1/stock/levels/:id/deactivate
func (h *StockHandler) Deactivate(c *gin.Context) {
	levelID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.engine.DeactivateStockLevel(c.Request.Context(), levelID); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "stock level deactivated")
}

// CheckAvailability validates a batch of lines against current stock
// without reserving anything.
// POST /api/v1/stock/check-availability
func (h *StockHandler) CheckAvailability(c *gin.Context) {
	var req dto.CheckAvailabilityRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := id.Parse(req.LocationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	lines, err := req.LedgerLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	purpose := ledger.PurposeRental
	if req.Purpose == "SALE" {
		purpose = ledger.PurposeSale
	}
	if err := h.engine.ValidateAvailability(c.Request.Context(), locationID, lines, purpose); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "all lines available")
}

// ListMovements lists the movement trail with filtering.
// GET /api/v1/stock/movements
func (h *StockHandler) ListMovements(c *gin.Context) {
	var query dto.MovementQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, total, err := h.engine.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      movements,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// GetTrail lists movements of one stock level, newest first.
// GET /api/v1/stock/levels/:id/movements
func (h *StockHandler) GetTrail(c *gin.Context) {
	levelID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	movements, err := h.engine.GetMovementTrail(c.Request.Context(), levelID, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      movements,
		TotalCount: int64(len(movements)),
		Limit:      limit,
		Offset:     offset,
	})
}

// GetSummary aggregates the trail for one item.
// GET /api/v1/stock/items/:itemId/summary
func (h *StockHandler) GetSummary(c *gin.Context) {
	itemID, ok := h.ParseIDParam(c, "itemId")
	if !ok {
		return
	}

	var query dto.MovementSummaryQuery
	if !h.BindQuery(c, &query) {
		return
	}

	var locationID *id.ID
	if query.LocationID != "" {
		parsed, err := id.Parse(query.LocationID)
		if err != nil {
			h.Error(c, err)
			return
		}
		locationID = &parsed
	}
	var dateRange *ledger.DateRange
	if query.From != nil || query.To != nil {
		dateRange = &ledger.DateRange{}
		if query.From != nil {
			dateRange.From = *query.From
		}
		if query.To != nil {
			dateRange.To = *query.To
		}
	}

	summary, err := h.engine.GetMovementSummary(c.Request.Context(), itemID, locationID, dateRange)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// CheckConsistency replays a level's movement trail and compares the result
// with the stored quantities.
// GET /api/v1/stock/levels/:id/consistency
func (h *StockHandler) CheckConsistency(c *gin.Context) {
	levelID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	level, err := h.engine.GetStockLevelByID(c.Request.Context(), levelID)
	if err != nil {
		h.Error(c, err)
		return
	}
	replayed, consistent, err := h.engine.CheckConsistency(c.Request.Context(), levelID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewConsistencyResponse(level, replayed, consistent))
}
