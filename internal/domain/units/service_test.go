package units

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/internal/domain"
	"rentory/internal/domain/ledger/ledgertest"
	"rentory/pkg/logger"
)

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

type fakeRepo struct {
	mu    sync.Mutex
	units map[id.ID]*entity.InventoryUnit
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{units: make(map[id.ID]*entity.InventoryUnit)}
}

func copyUnit(u *entity.InventoryUnit) *entity.InventoryUnit {
	cp := *u
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, unit *entity.InventoryUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units {
		if u.ItemID == unit.ItemID && u.SerialNumber == unit.SerialNumber {
			return apperror.NewDuplicate("inventory unit", "serial_number", unit.SerialNumber)
		}
	}
	r.units[unit.ID] = copyUnit(unit)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, unitID id.ID) (*entity.InventoryUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.units[unitID]; ok {
		return copyUnit(u), nil
	}
	return nil, apperror.NewNotFound("inventory unit", unitID.String())
}

func (r *fakeRepo) GetBySerial(ctx context.Context, itemID id.ID, serialNumber string) (*entity.InventoryUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.units {
		if u.ItemID == itemID && u.SerialNumber == serialNumber {
			return copyUnit(u), nil
		}
	}
	return nil, apperror.NewNotFound("inventory unit", serialNumber)
}

func (r *fakeRepo) Update(ctx context.Context, unit *entity.InventoryUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[unit.ID]; !ok {
		return apperror.NewNotFound("inventory unit", unit.ID.String())
	}
	r.units[unit.ID] = copyUnit(unit)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*entity.InventoryUnit], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.ListResult[*entity.InventoryUnit]{}
	for _, u := range r.units {
		if filter.ItemID != nil && u.ItemID != *filter.ItemID {
			continue
		}
		if filter.LocationID != nil && u.LocationID != *filter.LocationID {
			continue
		}
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		result.Items = append(result.Items, copyUnit(u))
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func (r *fakeRepo) CountByStatus(ctx context.Context, itemID, locationID id.ID) (map[entity.UnitStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[entity.UnitStatus]int64)
	for _, u := range r.units {
		if u.ItemID == itemID && u.LocationID == locationID {
			counts[u.Status]++
		}
	}
	return counts, nil
}

type fixture struct {
	service *Service
	repo    *fakeRepo
	ledger  *ledgertest.Fixture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lf := ledgertest.NewFixture(t)
	repo := newFakeRepo()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	return &fixture{
		service: NewService(repo, lf.Engine, ledgertest.TxManager{}, log),
		repo:    repo,
		ledger:  lf,
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("new unit starts available", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)

		unit, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)
		assert.Equal(t, entity.UnitAvailable, unit.Status)
		assert.Equal(t, "SN-001", unit.SerialNumber)
	})

	t.Run("duplicate serial for same item refused", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		_, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)

		_, err = f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	})

	t.Run("same serial on another item allowed", func(t *testing.T) {
		f := newFixture(t)
		itemA := f.ledger.AddItem(true, false)
		itemB := f.ledger.AddItem(true, false)
		_, err := f.service.Register(ctx, itemA, f.ledger.Location, "SN-001")
		require.NoError(t, err)

		_, err = f.service.Register(ctx, itemB, f.ledger.Location, "SN-001")
		assert.NoError(t, err)
	})

	t.Run("empty serial rejected", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)

		_, err := f.service.Register(ctx, itemID, f.ledger.Location, "")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}

func TestTransition(t *testing.T) {
	ctx := context.Background()

	t.Run("available to rented and back", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		unit, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)

		unit, err = f.service.Transition(ctx, unit.ID, entity.UnitRented)
		require.NoError(t, err)
		assert.Equal(t, entity.UnitRented, unit.Status)

		unit, err = f.service.Transition(ctx, unit.ID, entity.UnitAvailable)
		require.NoError(t, err)
		assert.Equal(t, entity.UnitAvailable, unit.Status)
	})

	t.Run("sold is terminal", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(false, true)
		unit, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-002")
		require.NoError(t, err)

		_, err = f.service.Transition(ctx, unit.ID, entity.UnitSold)
		require.NoError(t, err)

		_, err = f.service.Transition(ctx, unit.ID, entity.UnitAvailable)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
	})

	t.Run("damaged cannot go straight to available", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		unit, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-003")
		require.NoError(t, err)

		_, err = f.service.Transition(ctx, unit.ID, entity.UnitDamaged)
		require.NoError(t, err)

		_, err = f.service.Transition(ctx, unit.ID, entity.UnitAvailable)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)

		unit, err = f.service.Transition(ctx, unit.ID, entity.UnitMaintenance)
		require.NoError(t, err)
		assert.Equal(t, entity.UnitMaintenance, unit.Status)
	})
}

func TestRetire(t *testing.T) {
	ctx := context.Background()

	t.Run("retirement writes one piece off", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		f.ledger.SeedLevel(itemID, 5, 5, 0)
		unit, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)

		require.NoError(t, f.service.Retire(ctx, unit.ID, "cracked housing"))

		stored, err := f.service.GetByID(ctx, unit.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.UnitRetired, stored.Status)

		level, err := f.ledger.Levels.Get(ctx, itemID, f.ledger.Location)
		require.NoError(t, err)
		assert.Equal(t, qty(4), level.QuantityOnHand)
		assert.Equal(t, qty(4), level.QuantityAvailable)

		trail, err := f.ledger.Movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementDamageLoss, trail[0].MovementType)
		assert.Equal(t, "cracked housing", trail[0].Reason)
	})

	t.Run("reason is required", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		unit, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)

		err = f.service.Retire(ctx, unit.ID, "")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("rented unit cannot be retired", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		f.ledger.SeedLevel(itemID, 5, 4, 1)
		unit, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)
		_, err = f.service.Transition(ctx, unit.ID, entity.UnitRented)
		require.NoError(t, err)

		err = f.service.Retire(ctx, unit.ID, "lost")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("matching counts are in sync", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		f.ledger.SeedLevel(itemID, 3, 2, 1)

		_, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)
		_, err = f.service.Register(ctx, itemID, f.ledger.Location, "SN-002")
		require.NoError(t, err)
		rented, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-003")
		require.NoError(t, err)
		_, err = f.service.Transition(ctx, rented.ID, entity.UnitRented)
		require.NoError(t, err)

		report, err := f.service.Reconcile(ctx, itemID, f.ledger.Location)
		require.NoError(t, err)
		assert.True(t, report.InSync)
		assert.Equal(t, int64(2), report.UnitsAvailable)
		assert.Equal(t, int64(1), report.UnitsRented)
		assert.Equal(t, int64(0), report.UnitsOther)
	})

	t.Run("missed transition reported", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		f.ledger.SeedLevel(itemID, 2, 1, 1)

		_, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)
		_, err = f.service.Register(ctx, itemID, f.ledger.Location, "SN-002")
		require.NoError(t, err)

		report, err := f.service.Reconcile(ctx, itemID, f.ledger.Location)
		require.NoError(t, err)
		assert.False(t, report.InSync)
		assert.Equal(t, int64(2), report.UnitsAvailable)
		assert.Equal(t, qty(1), report.LevelAvailable)
	})

	t.Run("retired units count as other", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.ledger.AddItem(true, false)
		f.ledger.SeedLevel(itemID, 2, 2, 0)

		_, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-001")
		require.NoError(t, err)
		retired, err := f.service.Register(ctx, itemID, f.ledger.Location, "SN-002")
		require.NoError(t, err)
		require.NoError(t, f.service.Retire(ctx, retired.ID, "worn out"))

		report, err := f.service.Reconcile(ctx, itemID, f.ledger.Location)
		require.NoError(t, err)
		assert.True(t, report.InSync)
		assert.Equal(t, int64(1), report.UnitsAvailable)
		assert.Equal(t, int64(1), report.UnitsOther)
		assert.Equal(t, qty(1), report.LevelAvailable)
	})
}
