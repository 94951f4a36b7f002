package catalog_repo

import (
	"rentory/internal/domain/catalogs/location"
	"rentory/internal/infrastructure/storage/postgres"
)

const locationsTable = "cat_locations"

// LocationRepo implements location.Repository.
type LocationRepo struct {
	*BaseCatalogRepo[*location.Location]
}

// NewLocationRepo creates a new location repository.
func NewLocationRepo(txManager *postgres.TxManager) *LocationRepo {
	return &LocationRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			locationsTable,
			postgres.ExtractDBColumns[location.Location](),
			func() *location.Location { return &location.Location{} },
		),
	}
}

// Ensure interface compliance.
var _ location.Repository = (*LocationRepo)(nil)
