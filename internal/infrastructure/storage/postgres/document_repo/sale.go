package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rentory/internal/core/id"
	"rentory/internal/domain"
	"rentory/internal/domain/documents/sale"
	"rentory/internal/infrastructure/storage/postgres"
)

const (
	saleInvoicesTable     = "doc_sale_invoices"
	saleInvoiceLinesTable = "doc_sale_invoice_lines"
)

// SaleInvoiceRepo implements sale.Repository.
type SaleInvoiceRepo struct {
	*BaseDocumentRepo[*sale.SaleInvoice]
}

// NewSaleInvoiceRepo creates a new sale invoice repository.
func NewSaleInvoiceRepo(txManager *postgres.TxManager) *SaleInvoiceRepo {
	return &SaleInvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			saleInvoicesTable,
			postgres.ExtractDBColumns[sale.SaleInvoice](),
			func() *sale.SaleInvoice { return &sale.SaleInvoice{} },
		),
	}
}

// Ensure interface compliance.
var _ sale.Repository = (*SaleInvoiceRepo)(nil)

// GetLines retrieves document lines ordered by line number.
func (r *SaleInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]sale.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "item_id", "quantity", "unit_price", "amount").
		From(saleInvoiceLinesTable).
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sale.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces the document's line set.
func (r *SaleInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []sale.Line) error {
	del := r.Builder().Delete(saleInvoiceLinesTable).Where(squirrel.Eq{"doc_id": docID})
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

	ins := r.Builder().Insert(saleInvoiceLinesTable).
		Columns("doc_id", "line_id", "line_no", "item_id", "quantity", "unit_price", "amount")
	for _, l := range lines {
		ins = ins.Values(docID, l.LineID, l.LineNo, l.ItemID, l.Quantity, l.UnitPrice, l.Amount)
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

// List retrieves sale invoices with filtering.
func (r *SaleInvoiceRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.SaleInvoice], error) {
	var extra []squirrel.Sqlizer
	if filter.LocationID != nil {
		extra = append(extra, squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Posted != nil {
		extra = append(extra, squirrel.Eq{"posted": *filter.Posted})
	}
	if filter.DateFrom != nil {
		extra = append(extra, squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		extra = append(extra, squirrel.LtOrEq{"date": *filter.DateTo})
	}
	return r.list(ctx, filter.ListFilter, extra)
}
