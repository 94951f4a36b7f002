package ledger

import (
	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/types"
)

// ReplayState is the quantity state reconstructed by folding a movement
// trail. Starting from zero and applying every movement of a stock level in
// creation order must reproduce the level's current quantities; a mismatch
// means the trail and the level have diverged.
type ReplayState struct {
	OnHand    types.Quantity
	Available types.Quantity
	OnRent    types.Quantity
}

// movementTouchesOnHand reports whether the movement type changes total
// stock. Rental movements only shuffle quantity between available and
// on-rent; everything else moves goods in or out of the business.
func movementTouchesOnHand(t entity.MovementType) bool {
	switch t {
	case entity.MovementRentalOut, entity.MovementRentalReturn, entity.MovementSystemCorrection:
		return false
	}
	return true
}

// Apply folds one movement into the state. QuantityChange is always the
// delta on the available quantity; the movement type determines whether the
// counterpart is on-hand (goods in/out) or on-rent (allocation shuffle).
func (s *ReplayState) Apply(m entity.StockMovement) error {
	if m.QuantityBefore != s.Available {
		return apperror.NewQuantityMathMismatch(
			s.Available.Float64(), m.QuantityChange.Float64(), m.QuantityAfter.Float64(),
		).WithDetail("movement_id", m.ID.String()).
			WithDetail("recorded_before", m.QuantityBefore.Float64())
	}
	s.Available += m.QuantityChange
	if movementTouchesOnHand(m.MovementType) {
		s.OnHand += m.QuantityChange
	} else {
		s.OnRent -= m.QuantityChange
	}
	return nil
}

// Replay folds a full trail, oldest first.
func Replay(movements []entity.StockMovement) (ReplayState, error) {
	var state ReplayState
	for _, m := range movements {
		if err := state.Apply(m); err != nil {
			return state, err
		}
	}
	return state, nil
}

// Matches reports whether the replayed state equals the stored level.
func (s ReplayState) Matches(level *entity.StockLevel) bool {
	return s.OnHand == level.QuantityOnHand &&
		s.Available == level.QuantityAvailable &&
		s.OnRent == level.QuantityOnRent
}
