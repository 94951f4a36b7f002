package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"rentory/internal/core/id"
	"rentory/internal/domain"
	"rentory/internal/domain/documents/purchase_receipt"
	"rentory/internal/infrastructure/storage/postgres"
)

const (
	purchaseReceiptsTable     = "doc_purchase_receipts"
	purchaseReceiptLinesTable = "doc_purchase_receipt_lines"
)

// PurchaseReceiptRepo implements purchase_receipt.Repository.
type PurchaseReceiptRepo struct {
	*BaseDocumentRepo[*purchase_receipt.PurchaseReceipt]
}

// NewPurchaseReceiptRepo creates a new purchase receipt repository.
func NewPurchaseReceiptRepo(txManager *postgres.TxManager) *PurchaseReceiptRepo {
	return &PurchaseReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			purchaseReceiptsTable,
			postgres.ExtractDBColumns[purchase_receipt.PurchaseReceipt](),
			func() *purchase_receipt.PurchaseReceipt { return &purchase_receipt.PurchaseReceipt{} },
		),
	}
}

// Ensure interface compliance.
var _ purchase_receipt.Repository = (*PurchaseReceiptRepo)(nil)

// GetLines retrieves document lines ordered by line number.
func (r *PurchaseReceiptRepo) GetLines(ctx context.Context, docID id.ID) ([]purchase_receipt.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "item_id", "quantity", "unit_cost", "amount").
		From(purchaseReceiptLinesTable).
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchase_receipt.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// SaveLines replaces the document's line set.
func (r *PurchaseReceiptRepo) SaveLines(ctx context.Context, docID id.ID, lines []purchase_receipt.Line) error {
	del := r.Builder().Delete(purchaseReceiptLinesTable).Where(squirrel.Eq{"doc_id": docID})
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

	ins := r.Builder().Insert(purchaseReceiptLinesTable).
		Columns("doc_id", "line_id", "line_no", "item_id", "quantity", "unit_cost", "amount")
	for _, l := range lines {
		ins = ins.Values(docID, l.LineID, l.LineNo, l.ItemID, l.Quantity, l.UnitCost, l.Amount)
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

// List retrieves purchase receipts with filtering.
func (r *PurchaseReceiptRepo) List(ctx context.Context, filter purchase_receipt.ListFilter) (domain.ListResult[*purchase_receipt.PurchaseReceipt], error) {
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
