// Package ledger_repo provides PostgreSQL implementations for the stock
// ledger repositories.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/domain/ledger"
	"rentory/internal/infrastructure/storage/postgres"
)

const (
	levelsTable    = "stock_levels"
	movementsTable = "stock_movements"
)

const levelColumns = `id, item_id, location_id,
	quantity_on_hand, quantity_available, quantity_on_rent,
	active, version, created_at, updated_at, created_by, updated_by`

// LevelRepo implements ledger.LevelRepository.
type LevelRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLevelRepo creates a new stock level repository.
func NewLevelRepo(txManager *postgres.TxManager) *LevelRepo {
	return &LevelRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Ensure interface compliance.
var _ ledger.LevelRepository = (*LevelRepo)(nil)

// Get returns the level for an (item, location) pair.
func (r *LevelRepo) Get(ctx context.Context, itemID, locationID id.ID) (*entity.StockLevel, error) {
	q := r.builder.Select(levelColumns).From(levelsTable).
		Where(squirrel.Eq{"item_id": itemID, "location_id": locationID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level entity.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock level", itemID.String()+"@"+locationID.String())
		}
		return nil, fmt.Errorf("get level: %w", err)
	}
	return &level, nil
}

// GetByID returns the level by primary key.
func (r *LevelRepo) GetByID(ctx context.Context, levelID id.ID) (*entity.StockLevel, error) {
	return r.getByID(ctx, levelID, false)
}

// GetByIDForUpdate returns the level by primary key with a row lock.
func (r *LevelRepo) GetByIDForUpdate(ctx context.Context, levelID id.ID) (*entity.StockLevel, error) {
	return r.getByID(ctx, levelID, true)
}

func (r *LevelRepo) getByID(ctx context.Context, levelID id.ID, forUpdate bool) (*entity.StockLevel, error) {
	q := r.builder.Select(levelColumns).From(levelsTable).
		Where(squirrel.Eq{"id": levelID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var level entity.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock level", levelID.String())
		}
		return nil, fmt.Errorf("get level: %w", err)
	}
	return &level, nil
}

// Create inserts a new level. The (item_id, location_id) unique index turns
// a concurrent double-create into a Conflict error.
func (r *LevelRepo) Create(ctx context.Context, level *entity.StockLevel) error {
	q := r.builder.Insert(levelsTable).Columns(
		"id", "item_id", "location_id",
		"quantity_on_hand", "quantity_available", "quantity_on_rent",
		"active", "version", "created_at", "updated_at", "created_by", "updated_by",
	).Values(
		level.ID, level.ItemID, level.LocationID,
		level.QuantityOnHand, level.QuantityAvailable, level.QuantityOnRent,
		level.Active, level.Version, level.CreatedAt, level.UpdatedAt,
		level.CreatedBy, level.UpdatedBy,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict("stock level already exists for item and location").
				WithDetail("item_id", level.ItemID.String()).
				WithDetail("location_id", level.LocationID.String())
		}
		return fmt.Errorf("insert level: %w", err)
	}
	return nil
}

// GetManyForUpdate fetches levels for all given items at one location with
// row locks. ORDER BY item_id makes concurrent batches acquire locks in the
// same order, which prevents lock-order deadlocks.
func (r *LevelRepo) GetManyForUpdate(ctx context.Context, locationID id.ID, itemIDs []id.ID) ([]*entity.StockLevel, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE location_id = $1 AND item_id = ANY($2)
		ORDER BY item_id
		FOR UPDATE
	`, levelColumns, levelsTable)

	var levels []*entity.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, locationID, itemIDs); err != nil {
		return nil, fmt.Errorf("select levels for update: %w", err)
	}
	return levels, nil
}

// UpdateQuantities bulk-writes the quantity columns of all given levels in
// one statement, guarded by the optimistic version column. On success the
// in-memory versions are bumped to match the rows.
func (r *LevelRepo) UpdateQuantities(ctx context.Context, levels []*entity.StockLevel) error {
	if len(levels) == 0 {
		return nil
	}

	now := time.Now().UTC()

	var sb strings.Builder
	args := make([]any, 0, len(levels)*6+1)
	args = append(args, now)
	for i, level := range levels {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := len(args)
		fmt.Fprintf(&sb, "($%d::uuid, $%d::bigint, $%d::bigint, $%d::bigint, $%d::int, $%d::text)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args,
			level.ID, level.QuantityOnHand, level.QuantityAvailable,
			level.QuantityOnRent, level.Version, level.UpdatedBy,
		)
	}

	sql := fmt.Sprintf(`
		UPDATE %s AS s SET
			quantity_on_hand = v.on_hand,
			quantity_available = v.available,
			quantity_on_rent = v.on_rent,
			version = s.version + 1,
			updated_at = $1,
			updated_by = v.updated_by
		FROM (VALUES %s) AS v(id, on_hand, available, on_rent, version, updated_by)
		WHERE s.id = v.id AND s.version = v.version
	`, levelsTable, sb.String())

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update quantities: %w", err)
	}
	if tag.RowsAffected() != int64(len(levels)) {
		return apperror.NewConcurrentModification("stock level", fmt.Sprintf("%d of %d rows", tag.RowsAffected(), len(levels)))
	}

	for _, level := range levels {
		level.Version++
		level.UpdatedAt = now
	}
	return nil
}

// SetActive flips the soft-deactivation flag.
func (r *LevelRepo) SetActive(ctx context.Context, levelID id.ID, active bool) error {
	q := r.builder.Update(levelsTable).
		Set("active", active).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": levelID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock level", levelID.String())
	}
	return nil
}

// ListByLocation returns levels for one location.
func (r *LevelRepo) ListByLocation(ctx context.Context, locationID id.ID, filter ledger.LevelFilter) ([]*entity.StockLevel, error) {
	q := r.builder.Select(levelColumns).From(levelsTable).
		Where(squirrel.Eq{"location_id": locationID})

	if len(filter.ItemIDs) > 0 {
		q = q.Where(squirrel.Eq{"item_id": filter.ItemIDs})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity_on_hand": int64(0)})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}

	q = q.OrderBy("item_id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []*entity.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("select levels: %w", err)
	}
	return levels, nil
}
