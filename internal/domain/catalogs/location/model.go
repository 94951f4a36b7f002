// Package location provides the Location catalog.
// Locations are the physical sites stock is tracked against: warehouses,
// rental counters, service centers.
package location

import (
	"context"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
)

// LocationType defines the kind of site.
type LocationType string

const (
	TypeWarehouse     LocationType = "warehouse"
	TypeStore         LocationType = "store"
	TypeServiceCenter LocationType = "service_center"
)

// Location is a physical site holding stock.
type Location struct {
	entity.Catalog

	// Type defines the location category
	Type LocationType `db:"type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// Active locations can appear on new documents
	Active bool `db:"active" json:"active"`

	// IsDefault marks the location preselected on new documents
	IsDefault bool `db:"is_default" json:"isDefault"`

	Description *string `db:"description" json:"description,omitempty"`
}

// NewLocation creates a new Location with required fields.
func NewLocation(code, name string, locType LocationType) *Location {
	return &Location{
		Catalog: entity.NewCatalog(code, name),
		Type:    locType,
		Active:  true,
	}
}

// Validate implements entity.Validatable interface.
func (l *Location) Validate(ctx context.Context) error {
	if err := l.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidLocationType(l.Type) {
		return apperror.NewValidation("invalid location type").
			WithDetail("field", "type").
			WithDetail("value", string(l.Type))
	}

	return nil
}

// CanHoldStock reports whether documents may move stock at this location.
func (l *Location) CanHoldStock() bool {
	return l.Active && !l.DeletionMark
}

func isValidLocationType(t LocationType) bool {
	switch t {
	case TypeWarehouse, TypeStore, TypeServiceCenter:
		return true
	}
	return false
}
