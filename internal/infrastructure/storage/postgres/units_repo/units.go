// Package units_repo provides the PostgreSQL implementation of the
// serialized inventory unit repository.
package units_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/domain"
	"rentory/internal/domain/units"
	"rentory/internal/infrastructure/storage/postgres"
)

const unitsTable = "inventory_units"

const unitColumns = `id, deletion_mark, version, item_id, location_id,
	serial_number, status, created_at, updated_at`

// UnitRepo implements units.Repository.
type UnitRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewUnitRepo creates a new inventory unit repository.
func NewUnitRepo(txManager *postgres.TxManager) *UnitRepo {
	return &UnitRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Ensure interface compliance.
var _ units.Repository = (*UnitRepo)(nil)

// Create inserts a new unit. The (item_id, serial_number) unique index
// turns a concurrent double-register into a Duplicate error.
func (r *UnitRepo) Create(ctx context.Context, unit *entity.InventoryUnit) error {
	q := r.builder.Insert(unitsTable).Columns(
		"id", "deletion_mark", "version", "item_id", "location_id",
		"serial_number", "status", "created_at", "updated_at",
	).Values(
		unit.ID, unit.DeletionMark, unit.Version, unit.ItemID, unit.LocationID,
		unit.SerialNumber, unit.Status, unit.CreatedAt, unit.UpdatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("inventory unit", "serial_number", unit.SerialNumber)
		}
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

// GetByID retrieves a unit by ID.
func (r *UnitRepo) GetByID(ctx context.Context, unitID id.ID) (*entity.InventoryUnit, error) {
	q := r.builder.Select(unitColumns).From(unitsTable).
		Where(squirrel.Eq{"id": unitID}).
		Limit(1)
	return r.findOne(ctx, q, unitID.String())
}

// GetBySerial retrieves a unit by item and serial number.
func (r *UnitRepo) GetBySerial(ctx context.Context, itemID id.ID, serialNumber string) (*entity.InventoryUnit, error) {
	q := r.builder.Select(unitColumns).From(unitsTable).
		Where(squirrel.Eq{"item_id": itemID, "serial_number": serialNumber}).
		Limit(1)
	return r.findOne(ctx, q, serialNumber)
}

func (r *UnitRepo) findOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*entity.InventoryUnit, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var unit entity.InventoryUnit
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &unit, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory unit", key)
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &unit, nil
}

// Update modifies a unit with optimistic locking.
func (r *UnitRepo) Update(ctx context.Context, unit *entity.InventoryUnit) error {
	// TransitionTo already bumped the in-memory version; the row still
	// holds the previous one.
	expectedVersion := unit.Version - 1

	q := r.builder.Update(unitsTable).
		Set("location_id", unit.LocationID).
		Set("status", unit.Status).
		Set("deletion_mark", unit.DeletionMark).
		Set("updated_at", time.Now().UTC()).
		Set("version", unit.Version).
		Where(squirrel.Eq{"id": unit.ID}).
		Where(squirrel.Eq{"version": expectedVersion})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("inventory unit", unit.ID.String())
	}
	return nil
}

// List retrieves units with filtering.
func (r *UnitRepo) List(ctx context.Context, filter units.ListFilter) (domain.ListResult[*entity.InventoryUnit], error) {
	result := domain.ListResult[*entity.InventoryUnit]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(unitColumns).From(unitsTable)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"serial_number": "%" + filter.Search + "%"})
	}
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count units: %w", err)
	}

	q = q.OrderBy("serial_number")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select units: %w", err)
	}
	return result, nil
}

// CountByStatus aggregates unit counts for one (item, location) pair.
func (r *UnitRepo) CountByStatus(ctx context.Context, itemID, locationID id.ID) (map[entity.UnitStatus]int64, error) {
	q := r.builder.Select("status", "COUNT(*)").From(unitsTable).
		Where(squirrel.Eq{"item_id": itemID, "location_id": locationID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		GroupBy("status")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.UnitStatus]int64)
	for rows.Next() {
		var status entity.UnitStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
