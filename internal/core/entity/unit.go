package entity

import (
	"context"
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
)

// UnitStatus is the lifecycle state of a serialized inventory unit.
type UnitStatus string

const (
	UnitAvailable   UnitStatus = "AVAILABLE"
	UnitRented      UnitStatus = "RENTED"
	UnitSold        UnitStatus = "SOLD"
	UnitMaintenance UnitStatus = "MAINTENANCE"
	UnitDamaged     UnitStatus = "DAMAGED"
	UnitRetired     UnitStatus = "RETIRED"
)

// IsValid reports whether s is a known unit status.
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitAvailable, UnitRented, UnitSold, UnitMaintenance, UnitDamaged, UnitRetired:
		return true
	}
	return false
}

// unitTransitions lists the allowed status moves.
var unitTransitions = map[UnitStatus][]UnitStatus{
	UnitAvailable:   {UnitRented, UnitSold, UnitMaintenance, UnitDamaged, UnitRetired},
	UnitRented:      {UnitAvailable, UnitDamaged, UnitSold},
	UnitMaintenance: {UnitAvailable, UnitRetired, UnitDamaged},
	UnitDamaged:     {UnitMaintenance, UnitRetired},
	UnitSold:        {},
	UnitRetired:     {},
}

// InventoryUnit is a serialized item instance tracked individually on top of
// the aggregate StockLevel. The sum of unit statuses for an (item, location)
// pair must reconcile with the StockLevel split.
type InventoryUnit struct {
	BaseEntity

	ItemID     id.ID `db:"item_id" json:"itemId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	SerialNumber string     `db:"serial_number" json:"serialNumber"`
	Status       UnitStatus `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewInventoryUnit creates an available unit.
func NewInventoryUnit(itemID, locationID id.ID, serialNumber string) *InventoryUnit {
	now := time.Now().UTC()
	return &InventoryUnit{
		BaseEntity:   NewBaseEntity(),
		ItemID:       itemID,
		LocationID:   locationID,
		SerialNumber: serialNumber,
		Status:       UnitAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate implements Validatable.
func (u *InventoryUnit) Validate(ctx context.Context) error {
	if id.IsNil(u.ItemID) {
		return apperror.NewValidation("item is required").WithDetail("field", "itemId")
	}
	if id.IsNil(u.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if u.SerialNumber == "" {
		return apperror.NewValidation("serial number is required").WithDetail("field", "serialNumber")
	}
	if !u.Status.IsValid() {
		return apperror.NewValidation("invalid unit status").WithDetail("status", string(u.Status))
	}
	return nil
}

// TransitionTo moves the unit to a new status, enforcing the state machine.
func (u *InventoryUnit) TransitionTo(status UnitStatus) error {
	if !status.IsValid() {
		return apperror.NewValidation("invalid unit status").WithDetail("status", string(status))
	}
	for _, allowed := range unitTransitions[u.Status] {
		if allowed == status {
			u.Status = status
			u.UpdatedAt = time.Now().UTC()
			u.Touch()
			return nil
		}
	}
	return apperror.NewBusinessRule(apperror.CodeBusinessRule, "unit status transition not allowed").
		WithDetail("from", string(u.Status)).
		WithDetail("to", string(status))
}
