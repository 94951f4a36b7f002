package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"rentory/internal/core/appctx"
	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/tx"
	"rentory/internal/core/types"
	"rentory/pkg/logger"
)

// AllocationPurpose selects which item capability a batch is checked against.
type AllocationPurpose string

const (
	PurposeRental AllocationPurpose = "RENTAL"
	PurposeSale   AllocationPurpose = "SALE"
)

// Reference attributes a batch of movements to the business event that
// caused it.
type Reference struct {
	Type   entity.ReferenceType
	ID     string
	Reason string
	Notes  string
}

func (r Reference) validate() error {
	if !r.Type.IsValid() {
		return apperror.NewValidation("invalid reference type").
			WithDetail("reference_type", string(r.Type))
	}
	if r.Reason == "" {
		return apperror.NewValidation("movement reason is required")
	}
	return nil
}

// Engine is the allocation engine: the single write path into the stock
// ledger. Every operation runs as one transaction that locks the affected
// stock levels, validates the full batch, and either applies all lines and
// their movement records or none of them.
type Engine struct {
	levels    LevelRepository
	movements MovementRepository
	items     ItemReader
	locations LocationChecker
	txManager tx.Manager
	log       *logger.Logger
}

// NewEngine creates the allocation engine.
func NewEngine(
	levels LevelRepository,
	movements MovementRepository,
	items ItemReader,
	locations LocationChecker,
	txManager tx.Manager,
	log *logger.Logger,
) *Engine {
	return &Engine{
		levels:    levels,
		movements: movements,
		items:     items,
		locations: locations,
		txManager: txManager,
		log:       log.WithComponent("ledger.engine"),
	}
}

// --- batch normalization ---

// normalizeLines validates quantities, merges duplicate item lines by
// summing, and sorts by item id so every batch locks rows in the same order.
func normalizeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one line is required")
	}
	merged := make(map[id.ID]*Line, len(lines))
	order := make([]id.ID, 0, len(lines))
	for i, l := range lines {
		if id.IsNil(l.ItemID) {
			return nil, apperror.NewValidation("line item id is required").
				WithDetail("line_index", i)
		}
		if !l.Quantity.IsPositive() {
			return nil, apperror.NewValidation("line quantity must be positive").
				WithDetail("line_index", i).
				WithDetail("item_id", l.ItemID.String()).
				WithDetail("quantity", l.Quantity.Float64())
		}
		if existing, ok := merged[l.ItemID]; ok {
			existing.Quantity += l.Quantity
			if existing.TransactionLineID == nil {
				existing.TransactionLineID = l.TransactionLineID
			}
			continue
		}
		cp := l
		merged[l.ItemID] = &cp
		order = append(order, l.ItemID)
	}
	sort.Slice(order, func(i, j int) bool {
		return bytes.Compare(order[i][:], order[j][:]) < 0
	})
	out := make([]Line, 0, len(order))
	for _, itemID := range order {
		out = append(out, *merged[itemID])
	}
	return out, nil
}

type returnKey struct {
	item      id.ID
	condition ReturnCondition
}

// normalizeReturnLines merges duplicates per (item, condition) and sorts by
// item id. Both conditions of one item stay adjacent so the level is
// mutated once per item in lock order.
func normalizeReturnLines(lines []ReturnLine) ([]ReturnLine, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one line is required")
	}
	merged := make(map[returnKey]*ReturnLine, len(lines))
	order := make([]returnKey, 0, len(lines))
	for i, l := range lines {
		if l.Condition != ConditionGood && l.Condition != ConditionDamaged {
			return nil, apperror.NewValidation("invalid return condition").
				WithDetail("line_index", i).
				WithDetail("condition", string(l.Condition))
		}
		if id.IsNil(l.ItemID) {
			return nil, apperror.NewValidation("line item id is required").
				WithDetail("line_index", i)
		}
		if !l.Quantity.IsPositive() {
			return nil, apperror.NewValidation("line quantity must be positive").
				WithDetail("line_index", i).
				WithDetail("item_id", l.ItemID.String())
		}
		key := returnKey{item: l.ItemID, condition: l.Condition}
		if existing, ok := merged[key]; ok {
			existing.Quantity += l.Quantity
			if existing.TransactionLineID == nil {
				existing.TransactionLineID = l.TransactionLineID
			}
			continue
		}
		cp := l
		merged[key] = &cp
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool {
		c := bytes.Compare(order[i].item[:], order[j].item[:])
		if c != 0 {
			return c < 0
		}
		return order[i].condition < order[j].condition
	})
	out := make([]ReturnLine, 0, len(order))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out, nil
}

func itemIDs(lines []Line) []id.ID {
	ids := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	return ids
}

// --- batch validation helpers ---

// loadItems fetches item master data for all lines and fails with a single
// not-found error naming every unknown item.
func (e *Engine) loadItems(ctx context.Context, ids []id.ID) (map[id.ID]ItemInfo, error) {
	infos, err := e.items.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, itemID := range ids {
		if _, ok := infos[itemID]; !ok {
			missing = append(missing, itemID.String())
		}
	}
	if len(missing) > 0 {
		return nil, apperror.NewNotFound("item", missing).
			WithDetail("count", len(missing))
	}
	return infos, nil
}

func (e *Engine) requireLocation(ctx context.Context, locationID id.ID) error {
	if id.IsNil(locationID) {
		return apperror.NewValidation("location id is required")
	}
	ok, err := e.locations.Exists(ctx, locationID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewNotFound("location", locationID.String())
	}
	return nil
}

// checkPurpose collects capability violations for every line at once.
func checkPurpose(infos map[id.ID]ItemInfo, lines []Line, purpose AllocationPurpose) error {
	var bad []map[string]any
	for _, l := range lines {
		info := infos[l.ItemID]
		switch {
		case !info.Active:
			bad = append(bad, map[string]any{
				"item_id": l.ItemID.String(), "problem": "item is inactive",
			})
		case purpose == PurposeRental && !info.Rentable:
			bad = append(bad, map[string]any{
				"item_id": l.ItemID.String(), "problem": "item is not rentable",
			})
		case purpose == PurposeSale && !info.Sellable:
			bad = append(bad, map[string]any{
				"item_id": l.ItemID.String(), "problem": "item is not sellable",
			})
		}
	}
	if len(bad) > 0 {
		return apperror.NewValidation(
			fmt.Sprintf("%d line(s) reference items that cannot be allocated", len(bad)),
		).WithDetail("lines", bad)
	}
	return nil
}

// shortage is one failing line of a batch availability check.
type shortage struct {
	ItemID    string  `json:"item_id"`
	Requested float64 `json:"requested"`
	Available float64 `json:"available"`
}

func shortageError(shortages []shortage) error {
	return apperror.NewBusinessRule(
		apperror.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %d line(s)", len(shortages)),
	).WithDetail("lines", shortages)
}

// lockLevels fetches and row-locks the levels for all lines at one location.
// Items without a level are reported in the returned shortage list with zero
// availability rather than failing the whole fetch.
func (e *Engine) lockLevels(ctx context.Context, locationID id.ID, lines []Line) (map[id.ID]*entity.StockLevel, []shortage, error) {
	levels, err := e.levels.GetManyForUpdate(ctx, locationID, itemIDs(lines))
	if err != nil {
		return nil, nil, err
	}
	byItem := make(map[id.ID]*entity.StockLevel, len(levels))
	for _, lvl := range levels {
		byItem[lvl.ItemID] = lvl
	}
	var missing []shortage
	for _, l := range lines {
		if _, ok := byItem[l.ItemID]; !ok {
			missing = append(missing, shortage{
				ItemID:    l.ItemID.String(),
				Requested: l.Quantity.Float64(),
				Available: 0,
			})
		}
	}
	return byItem, missing, nil
}

// --- movement construction ---

func (e *Engine) newMovement(
	ctx context.Context,
	level *entity.StockLevel,
	mType entity.MovementType,
	ref Reference,
	before types.Quantity,
	lineID *id.ID,
) entity.StockMovement {
	after := level.QuantityAvailable
	return entity.StockMovement{
		ID:                id.New(),
		StockLevelID:      level.ID,
		ItemID:            level.ItemID,
		LocationID:        level.LocationID,
		MovementType:      mType,
		ReferenceType:     ref.Type,
		ReferenceID:       ref.ID,
		QuantityChange:    after - before,
		QuantityBefore:    before,
		QuantityAfter:     after,
		Reason:            ref.Reason,
		Notes:             ref.Notes,
		TransactionLineID: lineID,
		CreatedBy:         appctx.GetUserID(ctx),
		CreatedAt:         time.Now().UTC(),
	}
}

func toResult(m entity.StockMovement, level *entity.StockLevel) MovementResult {
	return MovementResult{
		MovementID: m.ID,
		ItemID:     m.ItemID,
		LocationID: m.LocationID,
		Before:     m.QuantityBefore,
		After:      m.QuantityAfter,
		OnHand:     level.QuantityOnHand,
		OnRent:     level.QuantityOnRent,
	}
}

// persistBatch validates and writes movements, bulk-updates levels, and
// bumps level versions.
func (e *Engine) persistBatch(ctx context.Context, updated []*entity.StockLevel, movements []entity.StockMovement) error {
	for i := range movements {
		if err := movements[i].Validate(ctx); err != nil {
			return err
		}
	}
	if len(updated) > 0 {
		if err := e.levels.UpdateQuantities(ctx, updated); err != nil {
			return err
		}
	}
	return e.movements.CreateBatch(ctx, movements)
}

// --- operations ---

// ValidateAvailability performs the read-only pre-flight of §checkout: it
// verifies every line against current availability without taking locks and
// reports all failing lines in one error. A nil return is not a
// reservation; posting revalidates under row locks.
func (e *Engine) ValidateAvailability(ctx context.Context, locationID id.ID, lines []Line, purpose AllocationPurpose) error {
	lines, err := normalizeLines(lines)
	if err != nil {
		return err
	}
	if err := e.requireLocation(ctx, locationID); err != nil {
		return err
	}
	infos, err := e.loadItems(ctx, itemIDs(lines))
	if err != nil {
		return err
	}
	if err := checkPurpose(infos, lines, purpose); err != nil {
		return err
	}

	levels, err := e.levels.ListByLocation(ctx, locationID, LevelFilter{ItemIDs: itemIDs(lines), ActiveOnly: true})
	if err != nil {
		return err
	}
	byItem := make(map[id.ID]*entity.StockLevel, len(levels))
	for _, lvl := range levels {
		byItem[lvl.ItemID] = lvl
	}

	var shortages []shortage
	for _, l := range lines {
		available := types.Quantity(0)
		if lvl, ok := byItem[l.ItemID]; ok {
			available = lvl.QuantityAvailable
		}
		if l.Quantity > available {
			shortages = append(shortages, shortage{
				ItemID:    l.ItemID.String(),
				Requested: l.Quantity.Float64(),
				Available: available.Float64(),
			})
		}
	}
	if len(shortages) > 0 {
		return shortageError(shortages)
	}
	return nil
}

// ApplyPurchase receives goods into stock. Levels are created lazily: the
// first receipt for an (item, location) pair creates the level and records
// an INITIAL_STOCK movement, later receipts record PURCHASE.
func (e *Engine) ApplyPurchase(ctx context.Context, locationID id.ID, lines []Line, ref Reference) ([]MovementResult, error) {
	lines, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var results []MovementResult
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := e.requireLocation(ctx, locationID); err != nil {
			return err
		}
		if _, err := e.loadItems(ctx, itemIDs(lines)); err != nil {
			return err
		}
		byItem, _, err := e.lockLevels(ctx, locationID, lines)
		if err != nil {
			return err
		}

		actor := appctx.GetUserID(ctx)
		var (
			updated   []*entity.StockLevel
			movements []entity.StockMovement
		)
		for _, l := range lines {
			level, exists := byItem[l.ItemID]
			mType := entity.MovementPurchase
			if !exists {
				level = entity.NewStockLevel(l.ItemID, locationID, 0, actor)
				mType = entity.MovementInitialStock
			}
			before := level.QuantityAvailable
			if err := level.Receive(l.Quantity); err != nil {
				return err
			}
			if exists {
				updated = append(updated, level)
			} else if err := e.levels.Create(ctx, level); err != nil {
				return err
			}
			m := e.newMovement(ctx, level, mType, ref, before, l.TransactionLineID)
			movements = append(movements, m)
			results = append(results, toResult(m, level))
		}
		return e.persistBatch(ctx, updated, movements)
	})
	if err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Infow("purchase applied",
		"location_id", locationID.String(), "lines", len(lines), "reference_id", ref.ID)
	return results, nil
}

// ApplyRentalCheckout moves stock from available to on-rent for every line,
// or fails the whole batch listing every shortage.
func (e *Engine) ApplyRentalCheckout(ctx context.Context, locationID id.ID, lines []Line, ref Reference) ([]MovementResult, error) {
	lines, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var results []MovementResult
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := e.requireLocation(ctx, locationID); err != nil {
			return err
		}
		infos, err := e.loadItems(ctx, itemIDs(lines))
		if err != nil {
			return err
		}
		if err := checkPurpose(infos, lines, PurposeRental); err != nil {
			return err
		}
		byItem, shortages, err := e.lockLevels(ctx, locationID, lines)
		if err != nil {
			return err
		}

		var (
			updated   []*entity.StockLevel
			movements []entity.StockMovement
		)
		for _, l := range lines {
			level, ok := byItem[l.ItemID]
			if !ok {
				continue
			}
			if l.Quantity > level.QuantityAvailable {
				shortages = append(shortages, shortage{
					ItemID:    l.ItemID.String(),
					Requested: l.Quantity.Float64(),
					Available: level.QuantityAvailable.Float64(),
				})
				continue
			}
			before := level.QuantityAvailable
			if err := level.AllocateRental(l.Quantity); err != nil {
				return err
			}
			updated = append(updated, level)
			m := e.newMovement(ctx, level, entity.MovementRentalOut, ref, before, l.TransactionLineID)
			movements = append(movements, m)
			results = append(results, toResult(m, level))
		}
		if len(shortages) > 0 {
			return shortageError(shortages)
		}
		return e.persistBatch(ctx, updated, movements)
	})
	if err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Infow("rental checkout applied",
		"location_id", locationID.String(), "lines", len(lines), "reference_id", ref.ID)
	return results, nil
}

// ApplyRentalReturn brings rented stock back. Good lines return to
// available; damaged lines record the return and an immediate write-off, so
// the trail shows both what came back and what was lost.
func (e *Engine) ApplyRentalReturn(ctx context.Context, locationID id.ID, lines []ReturnLine, ref Reference) ([]MovementResult, error) {
	lines, err := normalizeReturnLines(lines)
	if err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	// on-rent is checked per item across both conditions
	perItem := make(map[id.ID]types.Quantity)
	flat := make([]Line, 0, len(lines))
	for _, l := range lines {
		if _, seen := perItem[l.ItemID]; !seen {
			flat = append(flat, Line{ItemID: l.ItemID, Quantity: l.Quantity})
		}
		perItem[l.ItemID] += l.Quantity
	}

	var results []MovementResult
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := e.requireLocation(ctx, locationID); err != nil {
			return err
		}
		if _, err := e.loadItems(ctx, itemIDs(flat)); err != nil {
			return err
		}
		byItem, missing, err := e.lockLevels(ctx, locationID, flat)
		if err != nil {
			return err
		}

		var violations []map[string]any
		for _, s := range missing {
			violations = append(violations, map[string]any{
				"item_id": s.ItemID, "requested": s.Requested, "on_rent": 0.0,
			})
		}
		for itemID, total := range perItem {
			level, ok := byItem[itemID]
			if !ok {
				continue
			}
			if total > level.QuantityOnRent {
				violations = append(violations, map[string]any{
					"item_id":   itemID.String(),
					"requested": total.Float64(),
					"on_rent":   level.QuantityOnRent.Float64(),
				})
			}
		}
		if len(violations) > 0 {
			return apperror.NewValidation(
				fmt.Sprintf("return exceeds quantity on rent for %d item(s)", len(violations)),
			).WithDetail("lines", violations)
		}

		var (
			updated   []*entity.StockLevel
			seen      = make(map[id.ID]bool)
			movements []entity.StockMovement
		)
		for _, l := range lines {
			level := byItem[l.ItemID]
			before := level.QuantityAvailable
			if err := level.Release(l.Quantity); err != nil {
				return err
			}
			m := e.newMovement(ctx, level, entity.MovementRentalReturn, ref, before, l.TransactionLineID)
			movements = append(movements, m)
			results = append(results, toResult(m, level))

			if l.Condition == ConditionDamaged {
				before = level.QuantityAvailable
				if err := level.WriteOffAvailable(l.Quantity); err != nil {
					return err
				}
				dm := e.newMovement(ctx, level, entity.MovementDamageLoss, ref, before, l.TransactionLineID)
				movements = append(movements, dm)
				results = append(results, toResult(dm, level))
			}
			if !seen[l.ItemID] {
				seen[l.ItemID] = true
				updated = append(updated, level)
			}
		}
		return e.persistBatch(ctx, updated, movements)
	})
	if err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Infow("rental return applied",
		"location_id", locationID.String(), "lines", len(lines), "reference_id", ref.ID)
	return results, nil
}

// ApplySale removes sold stock from available and on-hand, all lines or
// none.
func (e *Engine) ApplySale(ctx context.Context, locationID id.ID, lines []Line, ref Reference) ([]MovementResult, error) {
	lines, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var results []MovementResult
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := e.requireLocation(ctx, locationID); err != nil {
			return err
		}
		infos, err := e.loadItems(ctx, itemIDs(lines))
		if err != nil {
			return err
		}
		if err := checkPurpose(infos, lines, PurposeSale); err != nil {
			return err
		}
		byItem, shortages, err := e.lockLevels(ctx, locationID, lines)
		if err != nil {
			return err
		}

		var (
			updated   []*entity.StockLevel
			movements []entity.StockMovement
		)
		for _, l := range lines {
			level, ok := byItem[l.ItemID]
			if !ok {
				continue
			}
			if l.Quantity > level.QuantityAvailable {
				shortages = append(shortages, shortage{
					ItemID:    l.ItemID.String(),
					Requested: l.Quantity.Float64(),
					Available: level.QuantityAvailable.Float64(),
				})
				continue
			}
			before := level.QuantityAvailable
			if err := level.AllocateSale(l.Quantity); err != nil {
				return err
			}
			updated = append(updated, level)
			m := e.newMovement(ctx, level, entity.MovementSale, ref, before, l.TransactionLineID)
			movements = append(movements, m)
			results = append(results, toResult(m, level))
		}
		if len(shortages) > 0 {
			return shortageError(shortages)
		}
		return e.persistBatch(ctx, updated, movements)
	})
	if err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Infow("sale applied",
		"location_id", locationID.String(), "lines", len(lines), "reference_id", ref.ID)
	return results, nil
}

// Transfer moves available stock from one location to another. Source lines
// record TRANSFER_OUT, destination lines TRANSFER_IN; destination levels are
// created lazily like first receipts. Both sides commit in one transaction.
func (e *Engine) Transfer(ctx context.Context, fromID, toID id.ID, lines []Line, ref Reference) ([]MovementResult, error) {
	if fromID == toID {
		return nil, apperror.NewValidation("source and destination locations must differ").
			WithDetail("location_id", fromID.String())
	}
	lines, err := normalizeLines(lines)
	if err != nil {
		return nil, err
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var results []MovementResult
	err = e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := e.requireLocation(ctx, fromID); err != nil {
			return err
		}
		if err := e.requireLocation(ctx, toID); err != nil {
			return err
		}
		if _, err := e.loadItems(ctx, itemIDs(lines)); err != nil {
			return err
		}

		// locations lock in id order so two opposite transfers cannot deadlock
		first, second := fromID, toID
		if bytes.Compare(toID[:], fromID[:]) < 0 {
			first, second = toID, fromID
		}
		locked := make(map[id.ID]map[id.ID]*entity.StockLevel, 2)
		for _, locID := range []id.ID{first, second} {
			byItem, _, err := e.lockLevels(ctx, locID, lines)
			if err != nil {
				return err
			}
			locked[locID] = byItem
		}
		source, dest := locked[fromID], locked[toID]

		actor := appctx.GetUserID(ctx)
		var (
			shortages []shortage
			updated   []*entity.StockLevel
			movements []entity.StockMovement
		)
		for _, l := range lines {
			src, ok := source[l.ItemID]
			if !ok || l.Quantity > src.QuantityAvailable {
				available := types.Quantity(0)
				if ok {
					available = src.QuantityAvailable
				}
				shortages = append(shortages, shortage{
					ItemID:    l.ItemID.String(),
					Requested: l.Quantity.Float64(),
					Available: available.Float64(),
				})
				continue
			}
			before := src.QuantityAvailable
			if err := src.WriteOffAvailable(l.Quantity); err != nil {
				return err
			}
			updated = append(updated, src)
			om := e.newMovement(ctx, src, entity.MovementTransferOut, ref, before, l.TransactionLineID)
			movements = append(movements, om)
			results = append(results, toResult(om, src))

			dst, exists := dest[l.ItemID]
			if !exists {
				dst = entity.NewStockLevel(l.ItemID, toID, 0, actor)
			}
			before = dst.QuantityAvailable
			if err := dst.Receive(l.Quantity); err != nil {
				return err
			}
			if exists {
				updated = append(updated, dst)
			} else if err := e.levels.Create(ctx, dst); err != nil {
				return err
			}
			im := e.newMovement(ctx, dst, entity.MovementTransferIn, ref, before, l.TransactionLineID)
			movements = append(movements, im)
			results = append(results, toResult(im, dst))
		}
		if len(shortages) > 0 {
			return shortageError(shortages)
		}
		return e.persistBatch(ctx, updated, movements)
	})
	if err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Infow("transfer applied",
		"from_location_id", fromID.String(), "to_location_id", toID.String(),
		"lines", len(lines), "reference_id", ref.ID)
	return results, nil
}

// AdjustManually changes total stock of one level by delta. Positive deltas
// add to available; negative deltas first scale on-rent down proportionally
// (recorded as SYSTEM_CORRECTION, releasing the scaled-off share back to
// available) and then remove the rest as ADJUSTMENT_NEGATIVE, so replaying
// the trail reproduces the adjustment exactly.
func (e *Engine) AdjustManually(ctx context.Context, levelID id.ID, delta types.Quantity, ref Reference) ([]MovementResult, error) {
	if delta.IsZero() {
		return nil, apperror.NewValidation("adjustment delta must be non-zero")
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var results []MovementResult
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		level, err := e.levels.GetByIDForUpdate(ctx, levelID)
		if err != nil {
			return err
		}
		availBefore := level.QuantityAvailable
		rentBefore := level.QuantityOnRent
		if err := level.AdjustOnHand(delta); err != nil {
			return err
		}

		var movements []entity.StockMovement
		if delta.IsPositive() {
			mv := e.newMovement(ctx, level, entity.MovementAdjustmentPositive, ref, availBefore, nil)
			movements = append(movements, mv)
			results = append(results, toResult(mv, level))
		} else {
			cursor := availBefore
			if released := rentBefore - level.QuantityOnRent; released.IsPositive() {
				corr := Reference{
					Type:   entity.ReferenceSystemCorrection,
					ID:     ref.ID,
					Reason: "on-rent share scaled down by stock adjustment",
					Notes:  ref.Notes,
				}
				cm := e.buildMovement(ctx, level, entity.MovementSystemCorrection, corr, cursor, cursor+released)
				movements = append(movements, cm)
				results = append(results, toResult(cm, level))
				cursor += released
			}
			am := e.buildMovement(ctx, level, entity.MovementAdjustmentNegative, ref, cursor, level.QuantityAvailable)
			movements = append(movements, am)
			results = append(results, toResult(am, level))
		}

		if err := e.persistBatch(ctx, []*entity.StockLevel{level}, movements); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.WithContext(ctx).Infow("stock adjusted",
		"level_id", levelID.String(), "delta", delta.Float64(), "reference_id", ref.ID)
	return results, nil
}

// buildMovement is newMovement with explicit before/after snapshots, for
// multi-step operations whose intermediate states differ from the final
// level quantities.
func (e *Engine) buildMovement(
	ctx context.Context,
	level *entity.StockLevel,
	mType entity.MovementType,
	ref Reference,
	before, after types.Quantity,
) entity.StockMovement {
	return entity.StockMovement{
		ID:             id.New(),
		StockLevelID:   level.ID,
		ItemID:         level.ItemID,
		LocationID:     level.LocationID,
		MovementType:   mType,
		ReferenceType:  ref.Type,
		ReferenceID:    ref.ID,
		QuantityChange: after - before,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reason:         ref.Reason,
		Notes:          ref.Notes,
		CreatedBy:      appctx.GetUserID(ctx),
		CreatedAt:      time.Now().UTC(),
	}
}

// WriteOff removes qty from one level's available stock (damage or loss
// discovered outside a rental return, e.g. during maintenance).
func (e *Engine) WriteOff(ctx context.Context, levelID id.ID, qty types.Quantity, ref Reference) (*MovementResult, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var result MovementResult
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		level, err := e.levels.GetByIDForUpdate(ctx, levelID)
		if err != nil {
			return err
		}
		before := level.QuantityAvailable
		if err := level.WriteOffAvailable(qty); err != nil {
			return err
		}
		m := e.newMovement(ctx, level, entity.MovementDamageLoss, ref, before, nil)
		result = toResult(m, level)
		return e.persistBatch(ctx, []*entity.StockLevel{level}, []entity.StockMovement{m})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateStockLevel explicitly creates a level, optionally with opening
// stock. Most levels are created lazily by ApplyPurchase; this is for
// imports and opening balances.
func (e *Engine) CreateStockLevel(ctx context.Context, itemID, locationID id.ID, initial types.Quantity, ref Reference) (*entity.StockLevel, error) {
	if initial.IsNegative() {
		return nil, apperror.NewValidation("initial quantity must be non-negative").
			WithDetail("quantity", initial.Float64())
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	var level *entity.StockLevel
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := e.requireLocation(ctx, locationID); err != nil {
			return err
		}
		if _, err := e.loadItems(ctx, []id.ID{itemID}); err != nil {
			return err
		}
		level = entity.NewStockLevel(itemID, locationID, initial, appctx.GetUserID(ctx))
		if err := e.levels.Create(ctx, level); err != nil {
			return err
		}
		if initial.IsPositive() {
			m := e.buildMovement(ctx, level, entity.MovementInitialStock, ref, 0, initial)
			return e.movements.CreateBatch(ctx, []entity.StockMovement{m})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return level, nil
}

// DeactivateStockLevel soft-disables a level. Only fully empty levels can
// be deactivated; the row and its trail are retained.
func (e *Engine) DeactivateStockLevel(ctx context.Context, levelID id.ID) error {
	return e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		level, err := e.levels.GetByIDForUpdate(ctx, levelID)
		if err != nil {
			return err
		}
		if !level.QuantityOnHand.IsZero() || !level.QuantityOnRent.IsZero() {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"cannot deactivate stock level with remaining quantity",
			).WithDetail("on_hand", level.QuantityOnHand.Float64()).
				WithDetail("on_rent", level.QuantityOnRent.Float64())
		}
		return e.levels.SetActive(ctx, levelID, false)
	})
}

// --- query surface ---

// GetStockLevel returns the level for an (item, location) pair.
func (e *Engine) GetStockLevel(ctx context.Context, itemID, locationID id.ID) (*entity.StockLevel, error) {
	return e.levels.Get(ctx, itemID, locationID)
}

// GetStockLevelByID returns a level by primary key.
func (e *Engine) GetStockLevelByID(ctx context.Context, levelID id.ID) (*entity.StockLevel, error) {
	return e.levels.GetByID(ctx, levelID)
}

// ListStockLevels lists levels at one location.
func (e *Engine) ListStockLevels(ctx context.Context, locationID id.ID, filter LevelFilter) ([]*entity.StockLevel, error) {
	return e.levels.ListByLocation(ctx, locationID, filter)
}

// ListMovements returns movements matching the filter plus the total count.
func (e *Engine) ListMovements(ctx context.Context, filter MovementFilter) ([]entity.StockMovement, int64, error) {
	return e.movements.List(ctx, filter)
}

// GetMovementTrail returns one level's movements in creation order.
func (e *Engine) GetMovementTrail(ctx context.Context, levelID id.ID, limit, offset int) ([]entity.StockMovement, error) {
	return e.movements.ListByStockLevel(ctx, levelID, limit, offset)
}

// GetMovementSummary aggregates the trail for one item.
func (e *Engine) GetMovementSummary(ctx context.Context, itemID id.ID, locationID *id.ID, dateRange *DateRange) (MovementSummary, error) {
	return e.movements.Summarize(ctx, itemID, locationID, dateRange)
}

// CheckConsistency replays a level's full trail and compares the result
// against the stored quantities.
func (e *Engine) CheckConsistency(ctx context.Context, levelID id.ID) (ReplayState, bool, error) {
	level, err := e.levels.GetByID(ctx, levelID)
	if err != nil {
		return ReplayState{}, false, err
	}
	trail, err := e.movements.ListByStockLevel(ctx, levelID, 0, 0)
	if err != nil {
		return ReplayState{}, false, err
	}
	state, err := Replay(trail)
	if err != nil {
		return state, false, err
	}
	ok := state.Matches(level)
	if !ok {
		e.log.WithContext(ctx).Warnw("stock level trail mismatch",
			"level_id", levelID.String(),
			"stored_on_hand", level.QuantityOnHand.Float64(),
			"replayed_on_hand", state.OnHand.Float64())
	}
	return state, ok, nil
}
