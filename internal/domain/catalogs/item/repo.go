package item

import (
	"context"

	"rentory/internal/core/id"
	"rentory/internal/domain"
)

// Repository defines the interface for Item persistence.
type Repository interface {
	domain.CatalogRepository[*Item]

	// FindBySKU retrieves an item by SKU.
	FindBySKU(ctx context.Context, sku string) (*Item, error)

	// FindByBarcode retrieves an item by barcode.
	FindByBarcode(ctx context.Context, barcode string) (*Item, error)

	// GetMany fetches items for all ids in one query. Missing ids are
	// absent from the result.
	GetMany(ctx context.Context, ids []id.ID) ([]*Item, error)
}
