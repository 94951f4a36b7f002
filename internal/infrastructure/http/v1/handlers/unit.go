package handlers

import (
	"github.com/gin-gonic/gin"

	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/domain/units"
	"rentory/internal/infrastructure/http/v1/dto"
)

// UnitHandler handles serialized inventory unit endpoints.
type UnitHandler struct {
	*BaseHandler
	service *units.Service
}

// NewUnitHandler creates a new unit handler.
func NewUnitHandler(service *units.Service) *UnitHandler {
	return &UnitHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Register attaches a serial number to in-stock quantity.
// POST /api/v1/units
func (h *UnitHandler) Register(c *gin.Context) {
	var req dto.RegisterUnitRequest
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

	unit, err := h.service.Register(c.Request.Context(), itemID, locationID, req.SerialNumber)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, unit.ID.String())
}

// Get retrieves one unit by id.
// GET /api/v1/units/:id
func (h *UnitHandler) Get(c *gin.Context) {
	unitID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	unit, err := h.service.GetByID(c.Request.Context(), unitID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, unit)
}

// List retrieves units with filtering.
// GET /api/v1/units
func (h *UnitHandler) List(c *gin.Context) {
	var query dto.UnitListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	filter, err := query.ToFilter()
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

// Transition moves a unit through its status state machine.
// POST /api/v1/units/:id/transition
func (h *UnitHandler) Transition(c *gin.Context) {
	unitID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.TransitionUnitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	unit, err := h.service.Transition(c.Request.Context(), unitID, entity.UnitStatus(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, unit)
}

// Retire writes a unit off: RETIRED status plus one piece out of stock.
// POST /api/v1/units/:id/retire
func (h *UnitHandler) Retire(c *gin.Context) {
	unitID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RetireUnitRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.Retire(c.Request.Context(), unitID, req.Reason); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "unit retired")
}

// Reconcile compares serialized unit counts with the aggregate level split.
// GET /api/v1/units/reconcile/:locationId/:itemId
func (h *UnitHandler) Reconcile(c *gin.Context) {
	locationID, ok := h.ParseIDParam(c, "locationId")
	if !ok {
		return
	}
	itemID, ok := h.ParseIDParam(c, "itemId")
	if !ok {
		return
	}

	report, err := h.service.Reconcile(c.Request.Context(), itemID, locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
