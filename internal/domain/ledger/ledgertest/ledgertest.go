// Package ledgertest provides in-memory implementations of the allocation
// engine's ports for tests in packages that post through a real engine.
package ledgertest

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/internal/domain/ledger"
	"rentory/pkg/logger"
)

// TxManager runs the function directly; there is no transaction to roll
// back, so callers must not rely on partial-write rollback.
type TxManager struct{}

// RunInTransaction implements tx.Manager.
func (TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// LevelRepo is an in-memory ledger.LevelRepository.
type LevelRepo struct {
	mu     sync.Mutex
	levels map[id.ID]*entity.StockLevel
}

// NewLevelRepo creates an empty level store.
func NewLevelRepo() *LevelRepo {
	return &LevelRepo{levels: make(map[id.ID]*entity.StockLevel)}
}

func copyLevel(l *entity.StockLevel) *entity.StockLevel {
	cp := *l
	return &cp
}

// Seed plants a level directly, bypassing the engine.
func (r *LevelRepo) Seed(l *entity.StockLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[l.ID] = copyLevel(l)
}

// Get implements ledger.LevelRepository.
func (r *LevelRepo) Get(ctx context.Context, itemID, locationID id.ID) (*entity.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.levels {
		if l.ItemID == itemID && l.LocationID == locationID {
			return copyLevel(l), nil
		}
	}
	return nil, apperror.NewNotFound("stock level", itemID.String())
}

// GetByID implements ledger.LevelRepository.
func (r *LevelRepo) GetByID(ctx context.Context, levelID id.ID) (*entity.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.levels[levelID]; ok {
		return copyLevel(l), nil
	}
	return nil, apperror.NewNotFound("stock level", levelID.String())
}

// GetByIDForUpdate implements ledger.LevelRepository.
func (r *LevelRepo) GetByIDForUpdate(ctx context.Context, levelID id.ID) (*entity.StockLevel, error) {
	return r.GetByID(ctx, levelID)
}

// Create implements ledger.LevelRepository.
func (r *LevelRepo) Create(ctx context.Context, level *entity.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.levels {
		if l.ItemID == level.ItemID && l.LocationID == level.LocationID {
			return apperror.NewDuplicate("stock level", "item/location", level.ItemID.String())
		}
	}
	r.levels[level.ID] = copyLevel(level)
	return nil
}

// GetManyForUpdate implements ledger.LevelRepository.
func (r *LevelRepo) GetManyForUpdate(ctx context.Context, locationID id.ID, itemIDs []id.ID) ([]*entity.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[id.ID]bool, len(itemIDs))
	for _, itemID := range itemIDs {
		wanted[itemID] = true
	}
	var out []*entity.StockLevel
	for _, l := range r.levels {
		if l.LocationID == locationID && wanted[l.ItemID] {
			out = append(out, copyLevel(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ItemID[:], out[j].ItemID[:]) < 0
	})
	return out, nil
}

// UpdateQuantities implements ledger.LevelRepository.
func (r *LevelRepo) UpdateQuantities(ctx context.Context, levels []*entity.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range levels {
		stored, ok := r.levels[l.ID]
		if !ok {
			return apperror.NewNotFound("stock level", l.ID.String())
		}
		if stored.Version != l.Version {
			return apperror.NewConcurrentModification("stock level", l.ID.String())
		}
	}
	for _, l := range levels {
		cp := copyLevel(l)
		cp.Version++
		r.levels[l.ID] = cp
		l.Version = cp.Version
	}
	return nil
}

// SetActive implements ledger.LevelRepository.
func (r *LevelRepo) SetActive(ctx context.Context, levelID id.ID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.levels[levelID]
	if !ok {
		return apperror.NewNotFound("stock level", levelID.String())
	}
	l.Active = active
	return nil
}

// ListByLocation implements ledger.LevelRepository.
func (r *LevelRepo) ListByLocation(ctx context.Context, locationID id.ID, filter ledger.LevelFilter) ([]*entity.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[id.ID]bool, len(filter.ItemIDs))
	for _, itemID := range filter.ItemIDs {
		wanted[itemID] = true
	}
	var out []*entity.StockLevel
	for _, l := range r.levels {
		if l.LocationID != locationID {
			continue
		}
		if len(filter.ItemIDs) > 0 && !wanted[l.ItemID] {
			continue
		}
		if filter.ActiveOnly && !l.Active {
			continue
		}
		if filter.ExcludeZero && l.QuantityOnHand.IsZero() {
			continue
		}
		out = append(out, copyLevel(l))
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ItemID[:], out[j].ItemID[:]) < 0
	})
	return out, nil
}

// MovementRepo is an in-memory ledger.MovementRepository.
type MovementRepo struct {
	mu        sync.Mutex
	movements []entity.StockMovement
}

// CreateBatch implements ledger.MovementRepository.
func (r *MovementRepo) CreateBatch(ctx context.Context, movements []entity.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movements...)
	return nil
}

// ListByStockLevel implements ledger.MovementRepository.
func (r *MovementRepo) ListByStockLevel(ctx context.Context, levelID id.ID, limit, offset int) ([]entity.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.StockLevelID == levelID {
			out = append(out, m)
		}
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// List implements ledger.MovementRepository.
func (r *MovementRepo) List(ctx context.Context, filter ledger.MovementFilter) ([]entity.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range r.movements {
		if filter.StockLevelID != nil && m.StockLevelID != *filter.StockLevelID {
			continue
		}
		if filter.ItemID != nil && m.ItemID != *filter.ItemID {
			continue
		}
		if filter.LocationID != nil && m.LocationID != *filter.LocationID {
			continue
		}
		if filter.MovementType != nil && m.MovementType != *filter.MovementType {
			continue
		}
		if filter.ReferenceType != nil && m.ReferenceType != *filter.ReferenceType {
			continue
		}
		if filter.ReferenceID != "" && m.ReferenceID != filter.ReferenceID {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

// Summarize implements ledger.MovementRepository.
func (r *MovementRepo) Summarize(ctx context.Context, itemID id.ID, locationID *id.ID, dateRange *ledger.DateRange) (ledger.MovementSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := ledger.MovementSummary{ByType: make(map[entity.MovementType]int64)}
	for _, m := range r.movements {
		if m.ItemID != itemID {
			continue
		}
		if locationID != nil && m.LocationID != *locationID {
			continue
		}
		summary.TotalMovements++
		summary.ByType[m.MovementType]++
		summary.NetChange += m.QuantityChange
		if m.QuantityChange.IsPositive() {
			summary.TotalIncreases += m.QuantityChange
		} else {
			summary.TotalDecreases += m.QuantityChange.Abs()
		}
	}
	return summary, nil
}

// Items is an in-memory ledger.ItemReader.
type Items struct {
	items map[id.ID]ledger.ItemInfo
}

// NewItems creates an empty item registry.
func NewItems() *Items {
	return &Items{items: make(map[id.ID]ledger.ItemInfo)}
}

// Add registers an item and returns its id.
func (r *Items) Add(info ledger.ItemInfo) id.ID {
	if id.IsNil(info.ID) {
		info.ID = id.New()
	}
	r.items[info.ID] = info
	return info.ID
}

// GetMany implements ledger.ItemReader.
func (r *Items) GetMany(ctx context.Context, ids []id.ID) (map[id.ID]ledger.ItemInfo, error) {
	out := make(map[id.ID]ledger.ItemInfo, len(ids))
	for _, itemID := range ids {
		if info, ok := r.items[itemID]; ok {
			out[itemID] = info
		}
	}
	return out, nil
}

// Locations is an in-memory ledger.LocationChecker.
type Locations struct {
	known map[id.ID]bool
}

// NewLocations creates a checker knowing the given location ids.
func NewLocations(ids ...id.ID) *Locations {
	known := make(map[id.ID]bool, len(ids))
	for _, locID := range ids {
		known[locID] = true
	}
	return &Locations{known: known}
}

// Exists implements ledger.LocationChecker.
func (r *Locations) Exists(ctx context.Context, locationID id.ID) (bool, error) {
	return r.known[locationID], nil
}

// Fixture bundles an engine wired to in-memory stores.
type Fixture struct {
	Engine    *ledger.Engine
	Levels    *LevelRepo
	Movements *MovementRepo
	Items     *Items
	Location  id.ID
}

// NewFixture builds an engine over fresh in-memory stores with one known
// location.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	locationID := id.New()
	levels := NewLevelRepo()
	movements := &MovementRepo{}
	items := NewItems()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	return &Fixture{
		Engine:    ledger.NewEngine(levels, movements, items, NewLocations(locationID), TxManager{}, log),
		Levels:    levels,
		Movements: movements,
		Items:     items,
		Location:  locationID,
	}
}

// AddItem registers a catalog item with the given flags.
func (f *Fixture) AddItem(rentable, sellable bool) id.ID {
	return f.Items.Add(ledger.ItemInfo{Name: "test item", Rentable: rentable, Sellable: sellable, Active: true})
}

// SeedLevel plants a level with an explicit quantity split.
func (f *Fixture) SeedLevel(itemID id.ID, onHand, available, onRent int64) *entity.StockLevel {
	level := entity.NewStockLevel(itemID, f.Location, 0, "test")
	level.QuantityOnHand = types.NewQuantityFromInt(onHand)
	level.QuantityAvailable = types.NewQuantityFromInt(available)
	level.QuantityOnRent = types.NewQuantityFromInt(onRent)
	f.Levels.Seed(level)
	return level
}
