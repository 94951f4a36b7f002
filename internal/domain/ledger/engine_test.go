package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/pkg/logger"
)

func qty(v int64) types.Quantity { return types.NewQuantityFromInt(v) }

type engineFixture struct {
	engine    *Engine
	levels    *fakeLevelRepo
	movements *fakeMovementRepo
	items     *fakeItems
	locations *fakeLocations
	location  id.ID
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	locationID := id.New()
	items := newFakeItems()
	levels := newFakeLevelRepo()
	movements := &fakeMovementRepo{}
	locations := newFakeLocations(locationID)
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	return &engineFixture{
		engine:    NewEngine(levels, movements, items, locations, fakeTxManager{}, log),
		levels:    levels,
		movements: movements,
		items:     items,
		locations: locations,
		location:  locationID,
	}
}

func (f *engineFixture) addLocation() id.ID {
	locID := id.New()
	f.locations.known[locID] = true
	return locID
}

func (f *engineFixture) addItem(rentable, sellable bool) id.ID {
	return f.items.add(ItemInfo{Name: "test item", Rentable: rentable, Sellable: sellable, Active: true})
}

// seedLevel plants a level with an explicit quantity split.
func (f *engineFixture) seedLevel(itemID id.ID, onHand, available, onRent int64) *entity.StockLevel {
	return f.seedLevelAt(itemID, f.location, onHand, available, onRent)
}

func (f *engineFixture) seedLevelAt(itemID, locationID id.ID, onHand, available, onRent int64) *entity.StockLevel {
	level := entity.NewStockLevel(itemID, locationID, 0, "test")
	level.QuantityOnHand = qty(onHand)
	level.QuantityAvailable = qty(available)
	level.QuantityOnRent = qty(onRent)
	f.levels.seed(level)
	return level
}

func txRef(refID string) Reference {
	return Reference{Type: entity.ReferenceTransaction, ID: refID, Reason: "posting"}
}

func TestApplyPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("creates level lazily with initial stock movement", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)

		results, err := f.engine.ApplyPurchase(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(10)}}, txRef("PR-1"))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, qty(0), results[0].Before)
		assert.Equal(t, qty(10), results[0].After)
		assert.Equal(t, qty(10), results[0].OnHand)

		level, err := f.levels.Get(ctx, itemID, f.location)
		require.NoError(t, err)
		assert.Equal(t, qty(10), level.QuantityOnHand)
		assert.Equal(t, qty(10), level.QuantityAvailable)
		assert.True(t, level.Active)

		trail, err := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementInitialStock, trail[0].MovementType)
	})

	t.Run("subsequent receipt records purchase movement", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		level := f.seedLevel(itemID, 5, 5, 0)

		_, err := f.engine.ApplyPurchase(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(3)}}, txRef("PR-2"))
		require.NoError(t, err)

		got, err := f.levels.GetByID(ctx, level.ID)
		require.NoError(t, err)
		assert.Equal(t, qty(8), got.QuantityOnHand)
		assert.Equal(t, qty(8), got.QuantityAvailable)

		trail, _ := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementPurchase, trail[0].MovementType)
		assert.Equal(t, qty(5), trail[0].QuantityBefore)
		assert.Equal(t, qty(8), trail[0].QuantityAfter)
	})

	t.Run("unknown items reported together", func(t *testing.T) {
		f := newFixture(t)
		ghost1, ghost2 := id.New(), id.New()

		_, err := f.engine.ApplyPurchase(ctx, f.location, []Line{
			{ItemID: ghost1, Quantity: qty(1)},
			{ItemID: ghost2, Quantity: qty(1)},
		}, txRef("PR-3"))

		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeNotFound, appErr.Code)
		assert.Equal(t, 2, appErr.Details["count"])
	})

	t.Run("unknown location rejected", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)

		_, err := f.engine.ApplyPurchase(ctx, id.New(), []Line{{ItemID: itemID, Quantity: qty(1)}}, txRef("PR-4"))
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestApplyRentalCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("moves stock from available to on rent", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		level := f.seedLevel(itemID, 10, 10, 0)

		results, err := f.engine.ApplyRentalCheckout(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(4)}}, txRef("RO-1"))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, qty(10), results[0].Before)
		assert.Equal(t, qty(6), results[0].After)
		assert.Equal(t, qty(4), results[0].OnRent)

		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.Equal(t, qty(10), got.QuantityOnHand)
		assert.Equal(t, qty(6), got.QuantityAvailable)
		assert.Equal(t, qty(4), got.QuantityOnRent)

		trail, _ := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementRentalOut, trail[0].MovementType)
		assert.Equal(t, qty(-4), trail[0].QuantityChange)
	})

	t.Run("shortage fails the whole batch and reports every failing line", func(t *testing.T) {
		f := newFixture(t)
		okItem := f.addItem(true, false)
		short1 := f.addItem(true, false)
		short2 := f.addItem(true, false)
		okLevel := f.seedLevel(okItem, 10, 10, 0)
		f.seedLevel(short1, 2, 2, 0)
		f.seedLevel(short2, 1, 0, 1)

		_, err := f.engine.ApplyRentalCheckout(ctx, f.location, []Line{
			{ItemID: okItem, Quantity: qty(1)},
			{ItemID: short1, Quantity: qty(5)},
			{ItemID: short2, Quantity: qty(1)},
		}, txRef("RO-2"))

		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		lines, ok := appErr.Details["lines"].([]shortage)
		require.True(t, ok)
		assert.Len(t, lines, 2)

		// nothing may have been applied, including the valid line
		got, _ := f.levels.GetByID(ctx, okLevel.ID)
		assert.Equal(t, qty(10), got.QuantityAvailable)
		trail, _ := f.movements.ListByStockLevel(ctx, okLevel.ID, 0, 0)
		assert.Empty(t, trail)
	})

	t.Run("missing level counts as zero availability", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)

		_, err := f.engine.ApplyRentalCheckout(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(1)}}, txRef("RO-3"))

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	})

	t.Run("non-rentable item rejected before availability", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(false, true)
		f.seedLevel(itemID, 10, 10, 0)

		_, err := f.engine.ApplyRentalCheckout(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(1)}}, txRef("RO-4"))

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("duplicate lines merge before allocation", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		level := f.seedLevel(itemID, 10, 10, 0)

		results, err := f.engine.ApplyRentalCheckout(ctx, f.location, []Line{
			{ItemID: itemID, Quantity: qty(2)},
			{ItemID: itemID, Quantity: qty(3)},
		}, txRef("RO-5"))
		require.NoError(t, err)
		require.Len(t, results, 1)

		trail, _ := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.Len(t, trail, 1)
		assert.Equal(t, qty(-5), trail[0].QuantityChange)
	})

	t.Run("concurrent modification surfaces as conflict", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		level := f.seedLevel(itemID, 10, 10, 0)

		f.levels.beforeUpdate = func() {
			f.levels.mu.Lock()
			f.levels.levels[level.ID].Version++
			f.levels.mu.Unlock()
		}

		_, err := f.engine.ApplyRentalCheckout(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(1)}}, txRef("RO-6"))
		assert.True(t, apperror.IsConcurrentModification(err))
	})
}

func TestApplyRentalReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("good return releases stock back to available", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		level := f.seedLevel(itemID, 10, 6, 4)

		results, err := f.engine.ApplyRentalReturn(ctx, f.location, []ReturnLine{
			{Line: Line{ItemID: itemID, Quantity: qty(3)}, Condition: ConditionGood},
		}, txRef("RR-1"))
		require.NoError(t, err)
		require.Len(t, results, 1)

		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.Equal(t, qty(10), got.QuantityOnHand)
		assert.Equal(t, qty(9), got.QuantityAvailable)
		assert.Equal(t, qty(1), got.QuantityOnRent)
	})

	t.Run("damaged return records return plus write-off", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		level := f.seedLevel(itemID, 10, 6, 4)

		results, err := f.engine.ApplyRentalReturn(ctx, f.location, []ReturnLine{
			{Line: Line{ItemID: itemID, Quantity: qty(2)}, Condition: ConditionDamaged},
		}, txRef("RR-2"))
		require.NoError(t, err)
		require.Len(t, results, 2)

		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.Equal(t, qty(8), got.QuantityOnHand)
		assert.Equal(t, qty(6), got.QuantityAvailable)
		assert.Equal(t, qty(2), got.QuantityOnRent)

		trail, _ := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.Len(t, trail, 2)
		assert.Equal(t, entity.MovementRentalReturn, trail[0].MovementType)
		assert.Equal(t, qty(2), trail[0].QuantityChange)
		assert.Equal(t, entity.MovementDamageLoss, trail[1].MovementType)
		assert.Equal(t, qty(-2), trail[1].QuantityChange)
		assert.Equal(t, trail[0].QuantityAfter, trail[1].QuantityBefore)
	})

	t.Run("return exceeding on-rent fails listing every item", func(t *testing.T) {
		f := newFixture(t)
		item1 := f.addItem(true, false)
		item2 := f.addItem(true, false)
		f.seedLevel(item1, 10, 8, 2)
		f.seedLevel(item2, 5, 5, 0)

		_, err := f.engine.ApplyRentalReturn(ctx, f.location, []ReturnLine{
			{Line: Line{ItemID: item1, Quantity: qty(3)}, Condition: ConditionGood},
			{Line: Line{ItemID: item2, Quantity: qty(1)}, Condition: ConditionGood},
		}, txRef("RR-3"))

		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		lines, ok := appErr.Details["lines"].([]map[string]any)
		require.True(t, ok)
		assert.Len(t, lines, 2)
	})

	t.Run("mixed conditions for one item checked against total on-rent", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		level := f.seedLevel(itemID, 10, 5, 5)

		results, err := f.engine.ApplyRentalReturn(ctx, f.location, []ReturnLine{
			{Line: Line{ItemID: itemID, Quantity: qty(3)}, Condition: ConditionGood},
			{Line: Line{ItemID: itemID, Quantity: qty(2)}, Condition: ConditionDamaged},
		}, txRef("RR-4"))
		require.NoError(t, err)
		assert.Len(t, results, 3)

		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.Equal(t, qty(8), got.QuantityOnHand)
		assert.Equal(t, qty(8), got.QuantityAvailable)
		assert.Equal(t, qty(0), got.QuantityOnRent)
	})
}

func TestApplySale(t *testing.T) {
	ctx := context.Background()

	t.Run("sale removes from available and on hand", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(false, true)
		level := f.seedLevel(itemID, 10, 7, 3)

		_, err := f.engine.ApplySale(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(4)}}, txRef("SI-1"))
		require.NoError(t, err)

		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.Equal(t, qty(6), got.QuantityOnHand)
		assert.Equal(t, qty(3), got.QuantityAvailable)
		assert.Equal(t, qty(3), got.QuantityOnRent)
	})

	t.Run("on-rent stock cannot be sold", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(false, true)
		f.seedLevel(itemID, 10, 2, 8)

		_, err := f.engine.ApplySale(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(5)}}, txRef("SI-2"))

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	})

	t.Run("non-sellable item rejected", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		f.seedLevel(itemID, 10, 10, 0)

		_, err := f.engine.ApplySale(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(1)}}, txRef("SI-3"))

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}

func TestValidateAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("reports every shortage without writing anything", func(t *testing.T) {
		f := newFixture(t)
		okItem := f.addItem(true, false)
		shortItem := f.addItem(true, false)
		missingItem := f.addItem(true, false)
		f.seedLevel(okItem, 10, 10, 0)
		f.seedLevel(shortItem, 3, 1, 2)

		err := f.engine.ValidateAvailability(ctx, f.location, []Line{
			{ItemID: okItem, Quantity: qty(2)},
			{ItemID: shortItem, Quantity: qty(2)},
			{ItemID: missingItem, Quantity: qty(1)},
		}, PurposeRental)

		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		lines, ok := appErr.Details["lines"].([]shortage)
		require.True(t, ok)
		assert.Len(t, lines, 2)
		assert.Empty(t, f.movements.movements)
	})

	t.Run("passes when every line fits", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, false)
		f.seedLevel(itemID, 10, 10, 0)

		err := f.engine.ValidateAvailability(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(10)}}, PurposeRental)
		assert.NoError(t, err)
	})
}

func TestAdjustManually(t *testing.T) {
	ctx := context.Background()
	adjRef := Reference{Type: entity.ReferenceInventoryCount, ID: "IC-1", Reason: "cycle count"}

	t.Run("positive adjustment adds to available", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		level := f.seedLevel(itemID, 10, 6, 4)

		results, err := f.engine.AdjustManually(ctx, level.ID, qty(5), adjRef)
		require.NoError(t, err)
		require.Len(t, results, 1)

		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.Equal(t, qty(15), got.QuantityOnHand)
		assert.Equal(t, qty(11), got.QuantityAvailable)
		assert.Equal(t, qty(4), got.QuantityOnRent)

		trail, _ := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementAdjustmentPositive, trail[0].MovementType)
	})

	t.Run("negative adjustment scales on-rent proportionally", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		level := f.seedLevel(itemID, 100, 80, 20)

		_, err := f.engine.AdjustManually(ctx, level.ID, qty(-50), adjRef)
		require.NoError(t, err)

		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.Equal(t, qty(50), got.QuantityOnHand)
		assert.Equal(t, qty(40), got.QuantityAvailable)
		assert.Equal(t, qty(10), got.QuantityOnRent)

		trail, _ := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.Len(t, trail, 2)
		assert.Equal(t, entity.MovementSystemCorrection, trail[0].MovementType)
		assert.Equal(t, qty(10), trail[0].QuantityChange)
		assert.Equal(t, entity.MovementAdjustmentNegative, trail[1].MovementType)
		assert.Equal(t, qty(-50), trail[1].QuantityChange)
		assert.Equal(t, trail[0].QuantityAfter, trail[1].QuantityBefore)
	})

	t.Run("adjustment below zero on hand rejected", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		level := f.seedLevel(itemID, 10, 10, 0)

		_, err := f.engine.AdjustManually(ctx, level.ID, qty(-11), adjRef)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("zero delta rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.AdjustManually(ctx, id.New(), 0, adjRef)
		require.Error(t, err)
	})
}

func TestWriteOff(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	itemID := f.addItem(true, false)
	level := f.seedLevel(itemID, 10, 8, 2)

	result, err := f.engine.WriteOff(ctx, level.ID, qty(3),
		Reference{Type: entity.ReferenceMaintenance, ID: "MT-1", Reason: "damaged beyond repair"})
	require.NoError(t, err)
	assert.Equal(t, qty(8), result.Before)
	assert.Equal(t, qty(5), result.After)

	got, _ := f.levels.GetByID(ctx, level.ID)
	assert.Equal(t, qty(7), got.QuantityOnHand)
	assert.Equal(t, qty(5), got.QuantityAvailable)
	assert.Equal(t, qty(2), got.QuantityOnRent)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	transferRef := Reference{Type: entity.ReferenceManualAdjustment, ID: "mgr-1", Reason: "rebalancing"}

	t.Run("moves available stock and creates the destination level lazily", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		source := f.seedLevel(itemID, 10, 10, 0)
		destLoc := f.addLocation()

		results, err := f.engine.Transfer(ctx, f.location, destLoc, []Line{{ItemID: itemID, Quantity: qty(4)}}, transferRef)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, qty(10), results[0].Before)
		assert.Equal(t, qty(6), results[0].After)
		assert.Equal(t, qty(0), results[1].Before)
		assert.Equal(t, qty(4), results[1].After)

		got, _ := f.levels.GetByID(ctx, source.ID)
		assert.Equal(t, qty(6), got.QuantityOnHand)
		assert.Equal(t, qty(6), got.QuantityAvailable)

		dest, err := f.levels.Get(ctx, itemID, destLoc)
		require.NoError(t, err)
		assert.Equal(t, qty(4), dest.QuantityOnHand)
		assert.Equal(t, qty(4), dest.QuantityAvailable)
		assert.True(t, dest.Active)

		outTrail, _ := f.movements.ListByStockLevel(ctx, source.ID, 0, 0)
		require.Len(t, outTrail, 1)
		assert.Equal(t, entity.MovementTransferOut, outTrail[0].MovementType)
		assert.Equal(t, qty(-4), outTrail[0].QuantityChange)

		inTrail, _ := f.movements.ListByStockLevel(ctx, dest.ID, 0, 0)
		require.Len(t, inTrail, 1)
		assert.Equal(t, entity.MovementTransferIn, inTrail[0].MovementType)
		assert.Equal(t, qty(4), inTrail[0].QuantityChange)
		assert.Equal(t, outTrail[0].ReferenceID, inTrail[0].ReferenceID)
	})

	t.Run("existing destination level receives on top of its stock", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		f.seedLevel(itemID, 5, 5, 0)
		destLoc := f.addLocation()
		dest := f.seedLevelAt(itemID, destLoc, 3, 1, 2)

		_, err := f.engine.Transfer(ctx, f.location, destLoc, []Line{{ItemID: itemID, Quantity: qty(2)}}, transferRef)
		require.NoError(t, err)

		got, _ := f.levels.GetByID(ctx, dest.ID)
		assert.Equal(t, qty(5), got.QuantityOnHand)
		assert.Equal(t, qty(3), got.QuantityAvailable)
		assert.Equal(t, qty(2), got.QuantityOnRent)
	})

	t.Run("same source and destination rejected", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		f.seedLevel(itemID, 10, 10, 0)

		_, err := f.engine.Transfer(ctx, f.location, f.location, []Line{{ItemID: itemID, Quantity: qty(1)}}, transferRef)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("unknown destination location rejected", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		f.seedLevel(itemID, 10, 10, 0)

		_, err := f.engine.Transfer(ctx, f.location, id.New(), []Line{{ItemID: itemID, Quantity: qty(1)}}, transferRef)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("shortages across lines reported together", func(t *testing.T) {
		f := newFixture(t)
		short1 := f.addItem(true, true)
		short2 := f.addItem(true, true)
		level1 := f.seedLevel(short1, 3, 1, 2)
		f.seedLevel(short2, 0, 0, 0)
		destLoc := f.addLocation()

		_, err := f.engine.Transfer(ctx, f.location, destLoc, []Line{
			{ItemID: short1, Quantity: qty(2)},
			{ItemID: short2, Quantity: qty(1)},
		}, transferRef)

		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		lines, ok := appErr.Details["lines"].([]shortage)
		require.True(t, ok)
		assert.Len(t, lines, 2)

		got, _ := f.levels.GetByID(ctx, level1.ID)
		assert.Equal(t, qty(1), got.QuantityAvailable)
		assert.Empty(t, f.movements.movements)
	})

	t.Run("both sides replay consistently after a transfer", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		destLoc := f.addLocation()

		_, err := f.engine.ApplyPurchase(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(20)}}, txRef("PR-1"))
		require.NoError(t, err)
		_, err = f.engine.Transfer(ctx, f.location, destLoc, []Line{{ItemID: itemID, Quantity: qty(8)}}, transferRef)
		require.NoError(t, err)

		source, err := f.levels.Get(ctx, itemID, f.location)
		require.NoError(t, err)
		dest, err := f.levels.Get(ctx, itemID, destLoc)
		require.NoError(t, err)

		for _, levelID := range []id.ID{source.ID, dest.ID} {
			state, ok, err := f.engine.CheckConsistency(ctx, levelID)
			require.NoError(t, err)
			assert.True(t, ok, "replayed state %+v must match stored level", state)
		}
	})
}

func TestCreateStockLevel(t *testing.T) {
	ctx := context.Background()
	importRef := Reference{Type: entity.ReferenceBulkImport, ID: "IMP-1", Reason: "opening balance"}

	t.Run("creates level with opening stock movement", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)

		level, err := f.engine.CreateStockLevel(ctx, itemID, f.location, qty(25), importRef)
		require.NoError(t, err)
		assert.Equal(t, qty(25), level.QuantityOnHand)
		assert.Equal(t, qty(25), level.QuantityAvailable)

		trail, _ := f.movements.ListByStockLevel(ctx, level.ID, 0, 0)
		require.Len(t, trail, 1)
		assert.Equal(t, entity.MovementInitialStock, trail[0].MovementType)
	})

	t.Run("duplicate pair conflicts", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		f.seedLevel(itemID, 0, 0, 0)

		_, err := f.engine.CreateStockLevel(ctx, itemID, f.location, qty(1), importRef)
		assert.True(t, apperror.IsConflict(err))
	})
}

func TestDeactivateStockLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("empty level deactivates", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		level := f.seedLevel(itemID, 0, 0, 0)

		require.NoError(t, f.engine.DeactivateStockLevel(ctx, level.ID))
		got, _ := f.levels.GetByID(ctx, level.ID)
		assert.False(t, got.Active)
	})

	t.Run("level with stock is refused", func(t *testing.T) {
		f := newFixture(t)
		itemID := f.addItem(true, true)
		level := f.seedLevel(itemID, 5, 5, 0)

		err := f.engine.DeactivateStockLevel(ctx, level.ID)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
	})
}

// TestTrailConsistency drives a realistic operation mix through the engine
// and verifies the movement trail replays to the exact stored quantities.
func TestTrailConsistency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	itemID := f.addItem(true, true)

	_, err := f.engine.ApplyPurchase(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(100)}}, txRef("PR-1"))
	require.NoError(t, err)

	_, err = f.engine.ApplyRentalCheckout(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(30)}}, txRef("RO-1"))
	require.NoError(t, err)

	_, err = f.engine.ApplyRentalReturn(ctx, f.location, []ReturnLine{
		{Line: Line{ItemID: itemID, Quantity: qty(20)}, Condition: ConditionGood},
		{Line: Line{ItemID: itemID, Quantity: qty(5)}, Condition: ConditionDamaged},
	}, txRef("RR-1"))
	require.NoError(t, err)

	_, err = f.engine.ApplySale(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(10)}}, txRef("SI-1"))
	require.NoError(t, err)

	level, err := f.levels.Get(ctx, itemID, f.location)
	require.NoError(t, err)

	_, err = f.engine.AdjustManually(ctx, level.ID, qty(-15),
		Reference{Type: entity.ReferenceInventoryCount, ID: "IC-1", Reason: "cycle count"})
	require.NoError(t, err)

	state, ok, err := f.engine.CheckConsistency(ctx, level.ID)
	require.NoError(t, err)
	assert.True(t, ok, "replayed state %+v must match stored level", state)

	level, _ = f.levels.GetByID(ctx, level.ID)
	assert.Equal(t, level.QuantityOnHand, level.QuantityAvailable+level.QuantityOnRent)
}

func TestGetMovementSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	itemID := f.addItem(true, true)

	_, err := f.engine.ApplyPurchase(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(50)}}, txRef("PR-1"))
	require.NoError(t, err)
	_, err = f.engine.ApplyRentalCheckout(ctx, f.location, []Line{{ItemID: itemID, Quantity: qty(20)}}, txRef("RO-1"))
	require.NoError(t, err)

	summary, err := f.engine.GetMovementSummary(ctx, itemID, &f.location, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalMovements)
	assert.Equal(t, qty(50), summary.TotalIncreases)
	assert.Equal(t, qty(20), summary.TotalDecreases)
	assert.Equal(t, qty(30), summary.NetChange)
	assert.Equal(t, int64(1), summary.ByType[entity.MovementInitialStock])
	assert.Equal(t, int64(1), summary.ByType[entity.MovementRentalOut])
}
