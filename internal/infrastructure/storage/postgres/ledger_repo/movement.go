package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/internal/domain/ledger"
	"rentory/internal/infrastructure/storage/postgres"
)

const movementColumns = `id, stock_level_id, item_id, location_id,
	movement_type, reference_type, reference_id,
	quantity_change, quantity_before, quantity_after,
	reason, notes, transaction_line_id, created_by, created_at`

// MovementRepo implements ledger.MovementRepository. The trail is
// append-only; there are no update or delete statements here.
type MovementRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMovementRepo creates a new stock movement repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Ensure interface compliance.
var _ ledger.MovementRepository = (*MovementRepo)(nil)

// CreateBatch inserts all movements in one batched write. Uses the COPY
// protocol when inside a transaction, multi-row INSERT otherwise.
func (r *MovementRepo) CreateBatch(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	columns := []string{
		"id", "stock_level_id", "item_id", "location_id",
		"movement_type", "reference_type", "reference_id",
		"quantity_change", "quantity_before", "quantity_after",
		"reason", "notes", "transaction_line_id", "created_by", "created_at",
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.ID, m.StockLevelID, m.ItemID, m.LocationID,
				m.MovementType, m.ReferenceType, m.ReferenceID,
				m.QuantityChange, m.QuantityBefore, m.QuantityAfter,
				m.Reason, m.Notes, m.TransactionLineID, m.CreatedBy, m.CreatedAt,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{movementsTable}, columns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(columns...)
	for _, m := range movements {
		q = q.Values(
			m.ID, m.StockLevelID, m.ItemID, m.LocationID,
			m.MovementType, m.ReferenceType, m.ReferenceID,
			m.QuantityChange, m.QuantityBefore, m.QuantityAfter,
			m.Reason, m.Notes, m.TransactionLineID, m.CreatedBy, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// ListByStockLevel returns the trail for one level in creation order.
func (r *MovementRepo) ListByStockLevel(ctx context.Context, levelID id.ID, limit, offset int) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementColumns).From(movementsTable).
		Where(squirrel.Eq{"stock_level_id": levelID}).
		OrderBy("created_at", "id")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	return movements, nil
}

// List returns movements matching the filter, newest first, plus the total
// match count for pagination.
func (r *MovementRepo) List(ctx context.Context, filter ledger.MovementFilter) ([]entity.StockMovement, int64, error) {
	conditions := r.filterConditions(filter)

	countQ := r.builder.Select("COUNT(*)").From(movementsTable)
	for _, c := range conditions {
		countQ = countQ.Where(c)
	}
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	q := r.builder.Select(movementColumns).From(movementsTable)
	for _, c := range conditions {
		q = q.Where(c)
	}
	q = q.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select movements: %w", err)
	}
	return movements, total, nil
}

func (r *MovementRepo) filterConditions(filter ledger.MovementFilter) []squirrel.Sqlizer {
	var conditions []squirrel.Sqlizer

	if filter.StockLevelID != nil {
		conditions = append(conditions, squirrel.Eq{"stock_level_id": *filter.StockLevelID})
	}
	if filter.ItemID != nil {
		conditions = append(conditions, squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.LocationID != nil {
		conditions = append(conditions, squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.MovementType != nil {
		conditions = append(conditions, squirrel.Eq{"movement_type": *filter.MovementType})
	}
	if filter.ReferenceType != nil {
		conditions = append(conditions, squirrel.Eq{"reference_type": *filter.ReferenceType})
	}
	if filter.ReferenceID != "" {
		conditions = append(conditions, squirrel.Eq{"reference_id": filter.ReferenceID})
	}
	if filter.FromDate != nil {
		conditions = append(conditions, squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		conditions = append(conditions, squirrel.LtOrEq{"created_at": *filter.ToDate})
	}
	return conditions
}

// Summarize aggregates movements for an item, optionally bounded by
// location and date range.
func (r *MovementRepo) Summarize(ctx context.Context, itemID id.ID, locationID *id.ID, dateRange *ledger.DateRange) (ledger.MovementSummary, error) {
	summary := ledger.MovementSummary{
		ByType: make(map[entity.MovementType]int64),
	}

	conditions := []squirrel.Sqlizer{squirrel.Eq{"item_id": itemID}}
	if locationID != nil {
		conditions = append(conditions, squirrel.Eq{"location_id": *locationID})
	}
	if dateRange != nil {
		if !dateRange.From.IsZero() {
			conditions = append(conditions, squirrel.GtOrEq{"created_at": dateRange.From})
		}
		if !dateRange.To.IsZero() {
			conditions = append(conditions, squirrel.LtOrEq{"created_at": dateRange.To})
		}
	}

	totalsQ := r.builder.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN quantity_change > 0 THEN quantity_change ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN quantity_change < 0 THEN -quantity_change ELSE 0 END), 0)",
		"COALESCE(SUM(quantity_change), 0)",
	).From(movementsTable)
	for _, c := range conditions {
		totalsQ = totalsQ.Where(c)
	}

	sql, args, err := totalsQ.ToSql()
	if err != nil {
		return summary, fmt.Errorf("build totals: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	var increases, decreases, net int64
	err = querier.QueryRow(ctx, sql, args...).Scan(&summary.TotalMovements, &increases, &decreases, &net)
	if err != nil && err != pgx.ErrNoRows {
		return summary, fmt.Errorf("summarize totals: %w", err)
	}
	summary.TotalIncreases = types.Quantity(increases)
	summary.TotalDecreases = types.Quantity(decreases)
	summary.NetChange = types.Quantity(net)

	byTypeQ := r.builder.Select("movement_type", "COUNT(*)").From(movementsTable)
	for _, c := range conditions {
		byTypeQ = byTypeQ.Where(c)
	}
	byTypeQ = byTypeQ.GroupBy("movement_type")

	sql, args, err = byTypeQ.ToSql()
	if err != nil {
		return summary, fmt.Errorf("build by-type: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return summary, fmt.Errorf("summarize by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mType entity.MovementType
		var count int64
		if err := rows.Scan(&mType, &count); err != nil {
			return summary, fmt.Errorf("scan by-type row: %w", err)
		}
		summary.ByType[mType] = count
	}
	return summary, rows.Err()
}
