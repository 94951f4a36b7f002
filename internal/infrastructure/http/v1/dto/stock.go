package dto

import (
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/internal/domain/ledger"
)

// --- Stock level requests ---

// CreateStockLevelRequest initializes tracking for an (item, location) pair.
type CreateStockLevelRequest struct {
	ItemID          string         `json:"itemId" binding:"required,uuid"`
	LocationID      string         `json:"locationId" binding:"required,uuid"`
	InitialQuantity types.Quantity `json:"initialQuantity"`
	Reason          string         `json:"reason" binding:"required"`
	Notes           string         `json:"notes"`
}

// AdjustStockRequest changes on-hand by a signed delta.
type AdjustStockRequest struct {
	Delta  types.Quantity `json:"delta"`
	Reason string         `json:"reason" binding:"required"`
	Notes  string         `json:"notes"`
}

// WriteOffRequest removes damaged or lost quantity from stock.
type WriteOffRequest struct {
	Quantity types.Quantity `json:"quantity"`
	Reason   string         `json:"reason" binding:"required"`
	Notes    string         `json:"notes"`
}

// TransferRequest moves available stock between two locations.
type TransferRequest struct {
	FromLocationID string             `json:"fromLocationId" binding:"required,uuid"`
	ToLocationID   string             `json:"toLocationId" binding:"required,uuid"`
	Lines          []AvailabilityLine `json:"lines" binding:"required,min=1"`
	Reason         string             `json:"reason" binding:"required"`
	Notes          string             `json:"notes"`
}

// LedgerLines converts request lines into engine lines.
func (r *TransferRequest) LedgerLines() ([]ledger.Line, error) {
	lines := make([]ledger.Line, 0, len(r.Lines))
	for i, l := range r.Lines {
		itemID, err := id.Parse(l.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").
				WithDetail("lineNo", i+1).
				WithDetail("value", l.ItemID)
		}
		lines = append(lines, ledger.Line{ItemID: itemID, Quantity: l.Quantity})
	}
	return lines, nil
}

// --- Availability ---

// AvailabilityLine is one item/quantity pair of an availability check.
type AvailabilityLine struct {
	ItemID   string         `json:"itemId" binding:"required,uuid"`
	Quantity types.Quantity `json:"quantity"`
}

// CheckAvailabilityRequest validates a batch of lines against current stock.
type CheckAvailabilityRequest struct {
	LocationID string             `json:"locationId" binding:"required,uuid"`
	Purpose    string             `json:"purpose" binding:"required,oneof=RENTAL SALE"`
	Lines      []AvailabilityLine `json:"lines" binding:"required,min=1"`
}

// LedgerLines converts request lines into engine lines.
func (r *CheckAvailabilityRequest) LedgerLines() ([]ledger.Line, error) {
	lines := make([]ledger.Line, 0, len(r.Lines))
	for i, l := range r.Lines {
		itemID, err := id.Parse(l.ItemID)
		if err != nil {
			return nil, apperror.NewValidation("invalid item id").
				WithDetail("lineNo", i+1).
				WithDetail("value", l.ItemID)
		}
		lines = append(lines, ledger.Line{ItemID: itemID, Quantity: l.Quantity})
	}
	return lines, nil
}

// --- Stock level queries ---

// StockLevelQuery narrows level listings for one location.
type StockLevelQuery struct {
	ItemIDs     []string `form:"itemIds"`
	ExcludeZero bool     `form:"excludeZero"`
	ActiveOnly  bool     `form:"activeOnly"`
	Limit       int      `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int      `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a ledger filter.
func (q *StockLevelQuery) ToFilter() (ledger.LevelFilter, error) {
	filter := ledger.LevelFilter{
		ExcludeZero: q.ExcludeZero,
		ActiveOnly:  q.ActiveOnly,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	for _, raw := range q.ItemIDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			return filter, apperror.NewValidation("invalid item id in filter").
				WithDetail("value", raw)
		}
		filter.ItemIDs = append(filter.ItemIDs, parsed)
	}
	return filter, nil
}

// --- Movement queries ---

// MovementQuery narrows movement trail listings.
type MovementQuery struct {
	StockLevelID  string     `form:"stockLevelId" binding:"omitempty,uuid"`
	ItemID        string     `form:"itemId" binding:"omitempty,uuid"`
	LocationID    string     `form:"locationId" binding:"omitempty,uuid"`
	MovementType  string     `form:"movementType"`
	ReferenceType string     `form:"referenceType"`
	ReferenceID   string     `form:"referenceId"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit         int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset        int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a movement filter.
func (q *MovementQuery) ToFilter() (ledger.MovementFilter, error) {
	filter := ledger.MovementFilter{
		ReferenceID: q.ReferenceID,
		FromDate:    q.From,
		ToDate:      q.To,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if filter.Limit == 0 {
		filter.Limit = 50
	}

	if q.StockLevelID != "" {
		parsed, err := id.Parse(q.StockLevelID)
		if err != nil {
			return filter, apperror.NewValidation("invalid stock level id").WithDetail("value", q.StockLevelID)
		}
		filter.StockLevelID = &parsed
	}
	if q.ItemID != "" {
		parsed, err := id.Parse(q.ItemID)
		if err != nil {
			return filter, apperror.NewValidation("invalid item id").WithDetail("value", q.ItemID)
		}
		filter.ItemID = &parsed
	}
	if q.LocationID != "" {
		parsed, err := id.Parse(q.LocationID)
		if err != nil {
			return filter, apperror.NewValidation("invalid location id").WithDetail("value", q.LocationID)
		}
		filter.LocationID = &parsed
	}
	if q.MovementType != "" {
		mt := entity.MovementType(q.MovementType)
		if !mt.IsValid() {
			return filter, apperror.NewValidation("invalid movement type").WithDetail("value", q.MovementType)
		}
		filter.MovementType = &mt
	}
	if q.ReferenceType != "" {
		rt := entity.ReferenceType(q.ReferenceType)
		if !rt.IsValid() {
			return filter, apperror.NewValidation("invalid reference type").WithDetail("value", q.ReferenceType)
		}
		filter.ReferenceType = &rt
	}
	return filter, nil
}

// MovementSummaryQuery bounds a per-item movement aggregation.
type MovementSummaryQuery struct {
	LocationID string     `form:"locationId" binding:"omitempty,uuid"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// --- Responses ---

// MovementResultResponse reports the quantity effect of one applied line.
type MovementResultResponse struct {
	MovementID     string         `json:"movementId"`
	ItemID         string         `json:"itemId"`
	LocationID     string         `json:"locationId"`
	QuantityBefore types.Quantity `json:"quantityBefore"`
	QuantityAfter  types.Quantity `json:"quantityAfter"`
	QuantityOnHand types.Quantity `json:"quantityOnHand"`
	QuantityOnRent types.Quantity `json:"quantityOnRent"`
}

// FromMovementResult converts an engine result.
func FromMovementResult(r ledger.MovementResult) MovementResultResponse {
	return MovementResultResponse{
		MovementID:     r.MovementID.String(),
		ItemID:         r.ItemID.String(),
		LocationID:     r.LocationID.String(),
		QuantityBefore: r.Before,
		QuantityAfter:  r.After,
		QuantityOnHand: r.OnHand,
		QuantityOnRent: r.OnRent,
	}
}

// FromMovementResults converts a batch of engine results.
func FromMovementResults(results []ledger.MovementResult) []MovementResultResponse {
	out := make([]MovementResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, FromMovementResult(r))
	}
	return out
}

// ConsistencyResponse reports a replay check of one stock level.
type ConsistencyResponse struct {
	StockLevelID string `json:"stockLevelId"`
	Consistent   bool   `json:"consistent"`

	ReplayedOnHand    types.Quantity `json:"replayedOnHand"`
	ReplayedAvailable types.Quantity `json:"replayedAvailable"`
	ReplayedOnRent    types.Quantity `json:"replayedOnRent"`

	CurrentOnHand    types.Quantity `json:"currentOnHand"`
	CurrentAvailable types.Quantity `json:"currentAvailable"`
	CurrentOnRent    types.Quantity `json:"currentOnRent"`
}

// NewConsistencyResponse builds the response from a replay and the level it ran against.
func NewConsistencyResponse(level *entity.StockLevel, replayed ledger.ReplayState, consistent bool) ConsistencyResponse {
	return ConsistencyResponse{
		StockLevelID:      level.ID.String(),
		Consistent:        consistent,
		ReplayedOnHand:    replayed.OnHand,
		ReplayedAvailable: replayed.Available,
		ReplayedOnRent:    replayed.OnRent,
		CurrentOnHand:     level.QuantityOnHand,
		CurrentAvailable:  level.QuantityAvailable,
		CurrentOnRent:     level.QuantityOnRent,
	}
}
