package ledger

import (
	"context"

	"rentory/internal/core/entity"
	"rentory/internal/core/id"
)

// LevelRepository defines storage operations for stock levels.
//
// Mutating operations are only ever invoked inside an engine transaction;
// GetManyForUpdate must take row locks so availability checks hold until
// commit.
type LevelRepository interface {
	// Get returns the level for an (item, location) pair.
	// Returns a NotFound AppError when the pair has no level yet.
	Get(ctx context.Context, itemID, locationID id.ID) (*entity.StockLevel, error)

	// GetByID returns the level by primary key.
	GetByID(ctx context.Context, levelID id.ID) (*entity.StockLevel, error)

	// GetByIDForUpdate returns the level by primary key with a row lock.
	GetByIDForUpdate(ctx context.Context, levelID id.ID) (*entity.StockLevel, error)

	// Create inserts a new level. Returns a Conflict AppError when a level
	// for the same (item, location) pair already exists.
	Create(ctx context.Context, level *entity.StockLevel) error

	// GetManyForUpdate fetches levels for all given items at one location in
	// a single locked query (FOR UPDATE), ordered by item id so concurrent
	// batches acquire locks in the same order.
	GetManyForUpdate(ctx context.Context, locationID id.ID, itemIDs []id.ID) ([]*entity.StockLevel, error)

	// UpdateQuantities bulk-writes the quantity columns of all given levels
	// in one statement, guarded by the optimistic version column. Returns a
	// ConcurrentModification AppError when any row was changed underneath.
	UpdateQuantities(ctx context.Context, levels []*entity.StockLevel) error

	// SetActive flips the soft-deactivation flag.
	SetActive(ctx context.Context, levelID id.ID, active bool) error

	// ListByLocation returns levels for one location.
	ListByLocation(ctx context.Context, locationID id.ID, filter LevelFilter) ([]*entity.StockLevel, error)
}

// MovementRepository defines storage operations for the append-only trail.
// There is deliberately no update or delete.
type MovementRepository interface {
	// CreateBatch inserts all movements in one batched write (COPY when
	// inside a transaction).
	CreateBatch(ctx context.Context, movements []entity.StockMovement) error

	// ListByStockLevel returns the trail for one level in creation order.
	ListByStockLevel(ctx context.Context, levelID id.ID, limit, offset int) ([]entity.StockMovement, error)

	// List returns movements matching the filter, newest first, plus the
	// total match count for pagination.
	List(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, int64, error)

	// Summarize aggregates movements for an item, optionally bounded by
	// location and date range.
	Summarize(ctx context.Context, itemID id.ID, locationID *id.ID, dateRange *DateRange) (MovementSummary, error)
}

// ItemReader is the port through which the engine checks item master data.
// Implemented by the item catalog service.
type ItemReader interface {
	// GetMany fetches item info for all ids in one lookup. Missing ids are
	// simply absent from the result map (not an error).
	GetMany(ctx context.Context, ids []id.ID) (map[id.ID]ItemInfo, error)
}

// LocationChecker is the port through which the engine verifies the target
// location exists. Implemented by the location catalog service.
type LocationChecker interface {
	Exists(ctx context.Context, locationID id.ID) (bool, error)
}
