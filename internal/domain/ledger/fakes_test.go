package ledger

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
)

// In-memory fakes implementing the engine's ports. GetManyForUpdate returns
// copies so an aborted batch never leaks partial mutations, mirroring a
// rolled-back transaction.

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLevelRepo struct {
	mu     sync.Mutex
	levels map[id.ID]*entity.StockLevel

	// beforeUpdate runs before UpdateQuantities applies, for simulating
	// concurrent writers.
	beforeUpdate func()
}

func newFakeLevelRepo() *fakeLevelRepo {
	return &fakeLevelRepo{levels: make(map[id.ID]*entity.StockLevel)}
}

func copyLevel(l *entity.StockLevel) *entity.StockLevel {
	cp := *l
	return &cp
}

func (r *fakeLevelRepo) seed(l *entity.StockLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[l.ID] = copyLevel(l)
}

func (r *fakeLevelRepo) Get(ctx context.Context, itemID, locationID id.ID) (*entity.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.levels {
		if l.ItemID == itemID && l.LocationID == locationID {
			return copyLevel(l), nil
		}
	}
	return nil, apperror.NewNotFound("stock level", itemID.String())
}

func (r *fakeLevelRepo) GetByID(ctx context.Context, levelID id.ID) (*entity.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.levels[levelID]; ok {
		return copyLevel(l), nil
	}
	return nil, apperror.NewNotFound("stock level", levelID.String())
}

func (r *fakeLevelRepo) GetByIDForUpdate(ctx context.Context, levelID id.ID) (*entity.StockLevel, error) {
	return r.GetByID(ctx, levelID)
}

func (r *fakeLevelRepo) Create(ctx context.Context, level *entity.StockLevel) error {
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

func (r *fakeLevelRepo) GetManyForUpdate(ctx context.Context, locationID id.ID, itemIDs []id.ID) ([]*entity.StockLevel, error) {
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

func (r *fakeLevelRepo) UpdateQuantities(ctx context.Context, levels []*entity.StockLevel) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
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

func (r *fakeLevelRepo) SetActive(ctx context.Context, levelID id.ID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.levels[levelID]
	if !ok {
		return apperror.NewNotFound("stock level", levelID.String())
	}
	l.Active = active
	return nil
}

func (r *fakeLevelRepo) ListByLocation(ctx context.Context, locationID id.ID, filter LevelFilter) ([]*entity.StockLevel, error) {
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

type fakeMovementRepo struct {
	mu        sync.Mutex
	movements []entity.StockMovement
}

func (r *fakeMovementRepo) CreateBatch(ctx context.Context, movements []entity.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *fakeMovementRepo) ListByStockLevel(ctx context.Context, levelID id.ID, limit, offset int) ([]entity.StockMovement, error) {
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

func (r *fakeMovementRepo) List(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, int64, error) {
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

func (r *fakeMovementRepo) Summarize(ctx context.Context, itemID id.ID, locationID *id.ID, dateRange *DateRange) (MovementSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := MovementSummary{ByType: make(map[entity.MovementType]int64)}
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

type fakeItems struct {
	items map[id.ID]ItemInfo
}

func newFakeItems() *fakeItems {
	return &fakeItems{items: make(map[id.ID]ItemInfo)}
}

func (r *fakeItems) add(info ItemInfo) id.ID {
	if id.IsNil(info.ID) {
		info.ID = id.New()
	}
	r.items[info.ID] = info
	return info.ID
}

func (r *fakeItems) GetMany(ctx context.Context, ids []id.ID) (map[id.ID]ItemInfo, error) {
	out := make(map[id.ID]ItemInfo, len(ids))
	for _, itemID := range ids {
		if info, ok := r.items[itemID]; ok {
			out[itemID] = info
		}
	}
	return out, nil
}

type fakeLocations struct {
	known map[id.ID]bool
}

func newFakeLocations(ids ...id.ID) *fakeLocations {
	known := make(map[id.ID]bool, len(ids))
	for _, locID := range ids {
		known[locID] = true
	}
	return &fakeLocations{known: known}
}

func (r *fakeLocations) Exists(ctx context.Context, locationID id.ID) (bool, error) {
	return r.known[locationID], nil
}
