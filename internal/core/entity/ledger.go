package entity

import (
	"context"
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
)

// MovementType classifies a stock quantity change.
type MovementType string

const (
	MovementPurchase           MovementType = "PURCHASE"
	MovementSale               MovementType = "SALE"
	MovementRentalOut          MovementType = "RENTAL_OUT"
	MovementRentalReturn       MovementType = "RENTAL_RETURN"
	MovementAdjustmentPositive MovementType = "ADJUSTMENT_POSITIVE"
	MovementAdjustmentNegative MovementType = "ADJUSTMENT_NEGATIVE"
	MovementDamageLoss         MovementType = "DAMAGE_LOSS"
	MovementTransferIn         MovementType = "TRANSFER_IN"
	MovementTransferOut        MovementType = "TRANSFER_OUT"
	MovementSystemCorrection   MovementType = "SYSTEM_CORRECTION"
	MovementInitialStock       MovementType = "INITIAL_STOCK"
)

// IsValid reports whether t is a known movement type.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementRentalOut, MovementRentalReturn,
		MovementAdjustmentPositive, MovementAdjustmentNegative, MovementDamageLoss,
		MovementTransferIn, MovementTransferOut, MovementSystemCorrection,
		MovementInitialStock:
		return true
	}
	return false
}

// ReferenceType classifies the business event a movement is attributed to.
type ReferenceType string

const (
	ReferenceTransaction      ReferenceType = "TRANSACTION"
	ReferenceManualAdjustment ReferenceType = "MANUAL_ADJUSTMENT"
	ReferenceSystemCorrection ReferenceType = "SYSTEM_CORRECTION"
	ReferenceBulkImport       ReferenceType = "BULK_IMPORT"
	ReferenceMaintenance      ReferenceType = "MAINTENANCE"
	ReferenceInventoryCount   ReferenceType = "INVENTORY_COUNT"
)

// IsValid reports whether t is a known reference type.
func (t ReferenceType) IsValid() bool {
	switch t {
	case ReferenceTransaction, ReferenceManualAdjustment, ReferenceSystemCorrection,
		ReferenceBulkImport, ReferenceMaintenance, ReferenceInventoryCount:
		return true
	}
	return false
}

// StockLevel is the current-quantity record for one (item, location) pair.
// The pair is unique; the row is created lazily on first receipt and never
// physically deleted (Active=false deactivates it).
//
// Invariants:
//   - QuantityAvailable + QuantityOnRent <= QuantityOnHand
//   - all three quantities are non-negative
//
// All mutation goes through the allocation engine; no other code path may
// write these quantities.
type StockLevel struct {
	ID id.ID `db:"id" json:"id"`

	ItemID     id.ID `db:"item_id" json:"itemId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	QuantityOnHand    types.Quantity `db:"quantity_on_hand" json:"quantityOnHand"`
	QuantityAvailable types.Quantity `db:"quantity_available" json:"quantityAvailable"`
	QuantityOnRent    types.Quantity `db:"quantity_on_rent" json:"quantityOnRent"`

	Active bool `db:"active" json:"active"`

	// Version for optimistic conflict detection on direct updates
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewStockLevel creates a stock level with the full initial quantity available.
func NewStockLevel(itemID, locationID id.ID, initialOnHand types.Quantity, createdBy string) *StockLevel {
	now := time.Now().UTC()
	return &StockLevel{
		ID:                id.New(),
		ItemID:            itemID,
		LocationID:        locationID,
		QuantityOnHand:    initialOnHand,
		QuantityAvailable: initialOnHand,
		QuantityOnRent:    0,
		Active:            true,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
		CreatedBy:         createdBy,
		UpdatedBy:         createdBy,
	}
}

// Validate checks the quantity invariants.
func (s *StockLevel) Validate(ctx context.Context) error {
	if s.QuantityOnHand.IsNegative() || s.QuantityAvailable.IsNegative() || s.QuantityOnRent.IsNegative() {
		return apperror.NewValidation("stock quantities must be non-negative").
			WithDetail("on_hand", s.QuantityOnHand.Float64()).
			WithDetail("available", s.QuantityAvailable.Float64()).
			WithDetail("on_rent", s.QuantityOnRent.Float64())
	}
	if s.QuantityAvailable+s.QuantityOnRent > s.QuantityOnHand {
		return apperror.NewValidation("allocated quantities exceed quantity on hand").
			WithDetail("on_hand", s.QuantityOnHand.Float64()).
			WithDetail("available", s.QuantityAvailable.Float64()).
			WithDetail("on_rent", s.QuantityOnRent.Float64())
	}
	return nil
}

// Receive increases on-hand and available by qty (purchase, transfer-in,
// positive adjustment).
func (s *StockLevel) Receive(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("receive quantity must be positive")
	}
	s.QuantityOnHand += qty
	s.QuantityAvailable += qty
	return s.Validate(context.Background())
}

// AllocateRental moves qty from available to on-rent.
func (s *StockLevel) AllocateRental(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("allocation quantity must be positive")
	}
	if qty > s.QuantityAvailable {
		return apperror.NewInsufficientStock(s.ItemID.String(), qty.Float64(), s.QuantityAvailable.Float64())
	}
	s.QuantityAvailable -= qty
	s.QuantityOnRent += qty
	return s.Validate(context.Background())
}

// AllocateSale removes qty from on-hand and available (goods leave the business).
func (s *StockLevel) AllocateSale(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("allocation quantity must be positive")
	}
	if qty > s.QuantityAvailable {
		return apperror.NewInsufficientStock(s.ItemID.String(), qty.Float64(), s.QuantityAvailable.Float64())
	}
	s.QuantityAvailable -= qty
	s.QuantityOnHand -= qty
	return s.Validate(context.Background())
}

// Release moves qty from on-rent back to available (rental return).
func (s *StockLevel) Release(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("release quantity must be positive")
	}
	if qty > s.QuantityOnRent {
		return apperror.NewValidation("release exceeds quantity on rent").
			WithDetail("requested", qty.Float64()).
			WithDetail("on_rent", s.QuantityOnRent.Float64())
	}
	s.QuantityOnRent -= qty
	s.QuantityAvailable += qty
	return s.Validate(context.Background())
}

// WriteOffAvailable removes qty from available and on-hand (goods damaged,
// lost, or otherwise leaving stock). Damaged rental returns release first,
// then write off.
func (s *StockLevel) WriteOffAvailable(qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("write-off quantity must be positive")
	}
	if qty > s.QuantityAvailable {
		return apperror.NewValidation("write-off exceeds available quantity").
			WithDetail("requested", qty.Float64()).
			WithDetail("available", s.QuantityAvailable.Float64())
	}
	s.QuantityAvailable -= qty
	s.QuantityOnHand -= qty
	return s.Validate(context.Background())
}

// AdjustOnHand changes total stock by delta (inventory count, manual
// adjustment). Positive deltas go straight to available. Negative deltas
// scale on-rent down proportionally (floored, so it never rounds up past
// the new total) and assign the remainder to available, keeping
// available + on_rent equal to the new on-hand.
func (s *StockLevel) AdjustOnHand(delta types.Quantity) error {
	newOnHand := s.QuantityOnHand + delta
	if newOnHand.IsNegative() {
		return apperror.NewValidation("adjustment would drive quantity on hand negative").
			WithDetail("on_hand", s.QuantityOnHand.Float64()).
			WithDetail("delta", delta.Float64())
	}

	if delta.IsPositive() {
		s.QuantityOnHand = newOnHand
		s.QuantityAvailable += delta
		return s.Validate(context.Background())
	}

	oldOnHand := s.QuantityOnHand
	newOnRent := types.Quantity(0)
	if !oldOnHand.IsZero() {
		newOnRent = s.QuantityOnRent.ScaleFloor(newOnHand, oldOnHand)
	}
	s.QuantityOnRent = newOnRent
	s.QuantityAvailable = newOnHand - newOnRent
	s.QuantityOnHand = newOnHand
	return s.Validate(context.Background())
}

// Deactivate soft-disables the level. Quantities are retained for audit.
func (s *StockLevel) Deactivate() {
	s.Active = false
}

// StockMovement is an immutable audit record of one quantity change.
// Created in the same atomic unit as the StockLevel mutation it documents;
// never updated or deleted.
//
// QuantityBefore/QuantityAfter snapshot QuantityAvailable, the allocatable
// quantity a caller cares about when reading the trail.
type StockMovement struct {
	ID id.ID `db:"id" json:"id"`

	StockLevelID id.ID `db:"stock_level_id" json:"stockLevelId"`

	// Denormalized dimensions for query efficiency
	ItemID     id.ID `db:"item_id" json:"itemId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	MovementType  MovementType  `db:"movement_type" json:"movementType"`
	ReferenceType ReferenceType `db:"reference_type" json:"referenceType"`

	// ReferenceID is the opaque external id of the triggering business event
	// (transaction id, import batch id, ...)
	ReferenceID string `db:"reference_id" json:"referenceId"`

	QuantityChange types.Quantity `db:"quantity_change" json:"quantityChange"`
	QuantityBefore types.Quantity `db:"quantity_before" json:"quantityBefore"`
	QuantityAfter  types.Quantity `db:"quantity_after" json:"quantityAfter"`

	Reason string `db:"reason" json:"reason"`
	Notes  string `db:"notes" json:"notes,omitempty"`

	// TransactionLineID links to the document line that produced the movement
	TransactionLineID *id.ID `db:"transaction_line_id" json:"transactionLineId,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Validate checks movement invariants before insertion.
func (m *StockMovement) Validate(ctx context.Context) error {
	if !m.MovementType.IsValid() {
		return apperror.NewValidation("invalid movement type").
			WithDetail("movement_type", string(m.MovementType))
	}
	if !m.ReferenceType.IsValid() {
		return apperror.NewValidation("invalid reference type").
			WithDetail("reference_type", string(m.ReferenceType))
	}
	if m.Reason == "" {
		return apperror.NewValidation("movement reason is required")
	}
	if id.IsNil(m.StockLevelID) {
		return apperror.NewValidation("stock_level_id is required")
	}
	if m.QuantityBefore.IsNegative() || m.QuantityAfter.IsNegative() {
		return apperror.NewValidation("movement snapshots must be non-negative").
			WithDetail("quantity_before", m.QuantityBefore.Float64()).
			WithDetail("quantity_after", m.QuantityAfter.Float64())
	}
	if m.QuantityBefore+m.QuantityChange != m.QuantityAfter {
		return apperror.NewQuantityMathMismatch(
			m.QuantityBefore.Float64(),
			m.QuantityChange.Float64(),
			m.QuantityAfter.Float64(),
		)
	}
	return nil
}

// IsIncrease reports whether the movement raised the available quantity.
func (m *StockMovement) IsIncrease() bool {
	return m.QuantityChange.IsPositive()
}
