// Package units tracks serialized inventory units on top of the aggregate
// stock ledger.
package units

import (
	"context"

	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/domain"
)

// Repository defines storage operations for inventory units.
type Repository interface {
	Create(ctx context.Context, unit *entity.InventoryUnit) error
	GetByID(ctx context.Context, unitID id.ID) (*entity.InventoryUnit, error)
	GetBySerial(ctx context.Context, itemID id.ID, serialNumber string) (*entity.InventoryUnit, error)
	Update(ctx context.Context, unit *entity.InventoryUnit) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*entity.InventoryUnit], error)

	// CountByStatus aggregates unit counts for one (item, location) pair.
	CountByStatus(ctx context.Context, itemID, locationID id.ID) (map[entity.UnitStatus]int64, error)
}

// ListFilter narrows unit listings.
type ListFilter struct {
	domain.ListFilter

	ItemID     *id.ID
	LocationID *id.ID
	Status     *entity.UnitStatus
}
