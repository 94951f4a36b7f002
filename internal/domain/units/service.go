package units

import (
	"context"
	"fmt"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/tx"
	"rentory/internal/core/types"
	"rentory/internal/domain"
	"rentory/internal/domain/ledger"
	"rentory/pkg/logger"
)

// ReconcileReport compares the serialized unit counts of an (item, location)
// pair with the aggregate stock level split.
type ReconcileReport struct {
	ItemID     id.ID `json:"itemId"`
	LocationID id.ID `json:"locationId"`

	UnitsAvailable int64 `json:"unitsAvailable"`
	UnitsRented    int64 `json:"unitsRented"`
	UnitsOther     int64 `json:"unitsOther"`

	LevelAvailable types.Quantity `json:"levelAvailable"`
	LevelOnRent    types.Quantity `json:"levelOnRent"`

	// InSync is true when unit counts match the level split exactly
	InSync bool `json:"inSync"`
}

// Service provides business operations for serialized inventory units.
type Service struct {
	repo      Repository
	engine    *ledger.Engine
	txManager tx.Manager
	log       *logger.Logger
}

// NewService creates a new units service.
func NewService(repo Repository, engine *ledger.Engine, txManager tx.Manager, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		txManager: txManager,
		log:       log.WithComponent("units"),
	}
}

// Register adds a new serialized unit. The aggregate quantity must already
// be in stock (via purchase receipt); registration only attaches a serial.
func (s *Service) Register(ctx context.Context, itemID, locationID id.ID, serialNumber string) (*entity.InventoryUnit, error) {
	unit := entity.NewInventoryUnit(itemID, locationID, serialNumber)
	if err := unit.Validate(ctx); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetBySerial(ctx, itemID, serialNumber); err == nil && existing != nil {
		return nil, apperror.NewDuplicate("inventory unit", "serial_number", serialNumber)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, unit)
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// GetByID retrieves a unit.
func (s *Service) GetByID(ctx context.Context, unitID id.ID) (*entity.InventoryUnit, error) {
	return s.repo.GetByID(ctx, unitID)
}

// List retrieves units with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*entity.InventoryUnit], error) {
	return s.repo.List(ctx, filter)
}

// Transition moves a unit through its status state machine.
func (s *Service) Transition(ctx context.Context, unitID id.ID, status entity.UnitStatus) (*entity.InventoryUnit, error) {
	var unit *entity.InventoryUnit
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		unit, err = s.repo.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if err := unit.TransitionTo(status); err != nil {
			return err
		}
		return s.repo.Update(ctx, unit)
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// Retire writes a damaged unit off: the unit moves to RETIRED and one
// piece leaves the aggregate stock level.
func (s *Service) Retire(ctx context.Context, unitID id.ID, reason string) error {
	if reason == "" {
		return apperror.NewValidation("retirement reason is required")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		unit, err := s.repo.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if err := unit.TransitionTo(entity.UnitRetired); err != nil {
			return err
		}

		level, err := s.engine.GetStockLevel(ctx, unit.ItemID, unit.LocationID)
		if err != nil {
			return err
		}
		ref := ledger.Reference{
			Type:   entity.ReferenceMaintenance,
			ID:     unit.ID.String(),
			Reason: reason,
			Notes:  fmt.Sprintf("unit %s retired", unit.SerialNumber),
		}
		if _, err := s.engine.WriteOff(ctx, level.ID, types.NewQuantityFromInt(1), ref); err != nil {
			return err
		}

		return s.repo.Update(ctx, unit)
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("unit retired", "unit_id", unitID.String(), "reason", reason)
	return nil
}

// Reconcile compares serialized unit counts with the aggregate level split.
// AVAILABLE units should equal the level's available quantity and RENTED
// units its on-rent quantity; anything else points at a missed transition.
func (s *Service) Reconcile(ctx context.Context, itemID, locationID id.ID) (*ReconcileReport, error) {
	counts, err := s.repo.CountByStatus(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	level, err := s.engine.GetStockLevel(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		ItemID:         itemID,
		LocationID:     locationID,
		UnitsAvailable: counts[entity.UnitAvailable],
		UnitsRented:    counts[entity.UnitRented],
		LevelAvailable: level.QuantityAvailable,
		LevelOnRent:    level.QuantityOnRent,
	}
	for status, n := range counts {
		if status != entity.UnitAvailable && status != entity.UnitRented {
			report.UnitsOther += n
		}
	}
	report.InSync = types.NewQuantityFromInt(report.UnitsAvailable) == level.QuantityAvailable &&
		types.NewQuantityFromInt(report.UnitsRented) == level.QuantityOnRent

	if !report.InSync {
		s.log.WithContext(ctx).Warnw("unit counts out of sync with stock level",
			"item_id", itemID.String(),
			"location_id", locationID.String(),
			"units_available", report.UnitsAvailable,
			"level_available", level.QuantityAvailable.Float64())
	}
	return report, nil
}
