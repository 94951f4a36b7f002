package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rentory/internal/core/id"
	"rentory/internal/domain"
	"rentory/internal/domain/documents/rental"
	"rentory/internal/infrastructure/storage/postgres"
)

const (
	rentalOrdersTable     = "doc_rental_orders"
	rentalOrderLinesTable = "doc_rental_order_lines"
)

// RentalOrderRepo implements rental.Repository.
type RentalOrderRepo struct {
	*BaseDocumentRepo[*rental.RentalOrder]
}

// NewRentalOrderRepo creates a new rental order repository.
func NewRentalOrderRepo(txManager *postgres.TxManager) *RentalOrderRepo {
	return &RentalOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			rentalOrdersTable,
			postgres.ExtractDBColumns[rental.RentalOrder](),
			func() *rental.RentalOrder { return &rental.RentalOrder{} },
		),
	}
}

// Ensure interface compliance.
var _ rental.Repository = (*RentalOrderRepo)(nil)

// GetLines retrieves document lines ordered by line number.
func (r *RentalOrderRepo) GetLines(ctx context.Context, docID id.ID) ([]rental.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "item_id", "quantity",
			"returned_quantity", "damaged_quantity",
			"daily_rate", "days_planned", "amount").
		From(rentalOrderLinesTable).
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []rental.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces the document's line set.
func (r *RentalOrderRepo) SaveLines(ctx context.Context, docID id.ID, lines []rental.Line) error {
	del := r.Builder().Delete(rentalOrderLinesTable).Where(squirrel.Eq{"doc_id": docID})
	sql, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	ins := r.Builder().Insert(rentalOrderLinesTable).
		Columns("doc_id", "line_id", "line_no", "item_id", "quantity",
			"returned_quantity", "damaged_quantity",
			"daily_rate", "days_planned", "amount")
	for _, l := range lines {
		ins = ins.Values(docID, l.LineID, l.LineNo, l.ItemID, l.Quantity,
			l.ReturnedQuantity, l.DamagedQuantity,
			l.DailyRate, l.DaysPlanned, l.Amount)
	}

	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// List retrieves rental orders with filtering.
func (r *RentalOrderRepo) List(ctx context.Context, filter rental.ListFilter) (domain.ListResult[*rental.RentalOrder], error) {
	var extra []squirrel.Sqlizer
	if filter.LocationID != nil {
		extra = append(extra, squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Status != nil {
		extra = append(extra, squirrel.Eq{"status": *filter.Status})
	}
	if filter.Posted != nil {
		extra = append(extra, squirrel.Eq{"posted": *filter.Posted})
	}
	if filter.DueBefore != nil {
		extra = append(extra, squirrel.LtOrEq{"due_date": *filter.DueBefore})
	}
	if filter.DateFrom != nil {
		extra = append(extra, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		extra = append(extra, squirrel.LtOrEq{"date": *filter.DateTo})
	}
	return r.list(ctx, filter.ListFilter, extra)
}
