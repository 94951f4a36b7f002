// Package ledger provides the stock ledger: current quantity state per
// (item, location), the append-only movement trail, and the batch
// reservation/allocation engine used by transaction posting.
package ledger

import (
	"time"

	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
)

// Line is one item/quantity pair of a batch request.
type Line struct {
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`

	// TransactionLineID optionally links the resulting movement back to the
	// document line that requested it.
	TransactionLineID *id.ID `json:"transactionLineId,omitempty"`
}

// ReturnCondition describes the state of returned rental goods.
type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "GOOD"
	ConditionDamaged ReturnCondition = "DAMAGED"
)

// ReturnLine is one line of a rental return, with the condition the goods
// came back in. Damaged quantities are written off instead of restocked.
type ReturnLine struct {
	Line
	Condition ReturnCondition `json:"condition"`
}

// MovementResult reports the outcome of one applied line.
type MovementResult struct {
	MovementID id.ID          `json:"movementId"`
	ItemID     id.ID          `json:"itemId"`
	LocationID id.ID          `json:"locationId"`
	Before     types.Quantity `json:"quantityBefore"`
	After      types.Quantity `json:"quantityAfter"`
	OnHand     types.Quantity `json:"quantityOnHand"`
	OnRent     types.Quantity `json:"quantityOnRent"`
}

// MovementFilter narrows movement queries.
type MovementFilter struct {
	StockLevelID  *id.ID
	ItemID        *id.ID
	LocationID    *id.ID
	MovementType  *entity.MovementType
	ReferenceType *entity.ReferenceType
	ReferenceID   string
	FromDate      *time.Time
	ToDate        *time.Time

	Limit  int
	Offset int
}

// DateRange bounds a summary query. Zero values mean unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// MovementSummary aggregates the trail for one item (optionally one location).
type MovementSummary struct {
	TotalMovements int64          `json:"totalMovements"`
	TotalIncreases types.Quantity `json:"totalIncreases"`
	TotalDecreases types.Quantity `json:"totalDecreases"`
	NetChange      types.Quantity `json:"netChange"`

	// ByType breaks the movement count down per movement type.
	ByType map[entity.MovementType]int64 `json:"byType"`
}

// LevelFilter narrows stock level listings.
type LevelFilter struct {
	ItemIDs     []id.ID
	ExcludeZero bool
	ActiveOnly  bool
	Limit       int
	Offset      int
}

// ItemInfo is the slice of item master data the engine needs for batch
// existence checks. Provided by the item catalog via the ItemReader port.
type ItemInfo struct {
	ID       id.ID
	Name     string
	Rentable bool
	Sellable bool
	Active   bool
}
