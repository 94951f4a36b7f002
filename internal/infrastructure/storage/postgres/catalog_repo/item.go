package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rentory/internal/core/id"
	"rentory/internal/domain/catalogs/item"
	"rentory/internal/infrastructure/storage/postgres"
)

const itemsTable = "cat_items"

// ItemRepo implements item.Repository.
type ItemRepo struct {
	*BaseCatalogRepo[*item.Item]
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			itemsTable,
			postgres.ExtractDBColumns[item.Item](),
			func() *item.Item { return &item.Item{} },
		),
	}
}

// Ensure interface compliance.
var _ item.Repository = (*ItemRepo)(nil)

// FindBySKU retrieves an item by SKU.
func (r *ItemRepo) FindBySKU(ctx context.Context, sku string) (*item.Item, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[item.Item]()...).
		From(itemsTable).
		Where(squirrel.Eq{"sku": sku}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// FindByBarcode retrieves an item by barcode.
func (r *ItemRepo) FindByBarcode(ctx context.Context, barcode string) (*item.Item, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[item.Item]()...).
		From(itemsTable).
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// GetMany fetches items for all ids in one query. Missing ids are simply
// absent from the result.
func (r *ItemRepo) GetMany(ctx context.Context, ids []id.ID) ([]*item.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.Builder().
		Select(postgres.ExtractDBColumns[item.Item]()...).
		From(itemsTable).
		Where(squirrel.Eq{"id": ids})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*item.Item
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	return items, nil
}
