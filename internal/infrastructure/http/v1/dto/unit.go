package dto

import (
	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/domain/units"
)

// RegisterUnitRequest attaches a serial number to in-stock quantity.
type RegisterUnitRequest struct {
	ItemID       string `json:"itemId" binding:"required,uuid"`
	LocationID   string `json:"locationId" binding:"required,uuid"`
	SerialNumber string `json:"serialNumber" binding:"required"`
}

// TransitionUnitRequest moves a unit through its status state machine.
type TransitionUnitRequest struct {
	Status string `json:"status" binding:"required"`
}

// RetireUnitRequest writes a unit off.
type RetireUnitRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// UnitListQuery narrows unit listings.
type UnitListQuery struct {
	ListQuery

	ItemID     string `form:"itemId" binding:"omitempty,uuid"`
	LocationID string `form:"locationId" binding:"omitempty,uuid"`
	Status     string `form:"status"`
}

// ToFilter converts the query into a units filter.
func (q *UnitListQuery) ToFilter() (units.ListFilter, error) {
	base, err := q.ListQuery.ToListFilter()
	if err != nil {
		return units.ListFilter{}, err
	}
	filter := units.ListFilter{ListFilter: base}

	if q.ItemID != "" {
		parsed, err := parseID("itemId", q.ItemID)
		if err != nil {
			return filter, err
		}
		filter.ItemID = &parsed
	}
	if q.LocationID != "" {
		parsed, err := parseID("locationId", q.LocationID)
		if err != nil {
			return filter, err
		}
		filter.LocationID = &parsed
	}
	if q.Status != "" {
		status := entity.UnitStatus(q.Status)
		if !status.IsValid() {
			return filter, apperror.NewValidation("invalid unit status").WithDetail("value", q.Status)
		}
		filter.Status = &status
	}
	return filter, nil
}
