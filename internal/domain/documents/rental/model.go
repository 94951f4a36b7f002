// Package rental provides the RentalOrder document.
// A rental order checks stock out to a customer on posting and brings it
// back, line by line, through registered returns.
package rental

import (
	"context"
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/internal/domain/ledger"
)

// Status is the rental order lifecycle state.
type Status string

const (
	// StatusDraft means the order is not posted; no stock is reserved.
	StatusDraft Status = "DRAFT"
	// StatusOpen means stock is checked out and not yet fully returned.
	StatusOpen Status = "OPEN"
	// StatusClosed means every line is fully returned or written off.
	StatusClosed Status = "CLOSED"
)

// RentalOrder records stock rented out to a customer.
type RentalOrder struct {
	entity.Document

	CustomerName string `db:"customer_name" json:"customerName"`

	// LocationID is the location stock is checked out from and returned to
	LocationID id.ID `db:"location_id" json:"locationId"`

	// DueDate is when the goods are expected back
	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	Status Status `db:"status" json:"status"`

	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	// Table part: rented goods
	Lines []Line `db:"-" json:"lines"`
}

// Line is one rented item with its return progress.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID id.ID `db:"item_id" json:"itemId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// ReturnedQuantity counts good returns; DamagedQuantity counts
	// quantities returned damaged and written off
	ReturnedQuantity types.Quantity `db:"returned_quantity" json:"returnedQuantity"`
	DamagedQuantity  types.Quantity `db:"damaged_quantity" json:"damagedQuantity"`

	DailyRate   types.Money `db:"daily_rate" json:"dailyRate"`
	DaysPlanned int         `db:"days_planned" json:"daysPlanned"`
	Amount      types.Money `db:"amount" json:"amount"`
}

// Outstanding returns the quantity still out with the customer.
func (l *Line) Outstanding() types.Quantity {
	return l.Quantity - l.ReturnedQuantity - l.DamagedQuantity
}

// NewRentalOrder creates a new rental order document.
func NewRentalOrder(customerName string, locationID id.ID) *RentalOrder {
	return &RentalOrder{
		Document:     entity.NewDocument(),
		CustomerName: customerName,
		LocationID:   locationID,
		Status:       StatusDraft,
		TotalAmount:  types.ZeroMoney(),
		Lines:        make([]Line, 0),
	}
}

// AddLine appends a line and recalculates totals.
func (r *RentalOrder) AddLine(itemID id.ID, quantity types.Quantity, dailyRate types.Money, daysPlanned int) {
	days := types.NewMoneyFromInt(int64(daysPlanned))
	line := Line{
		LineID:      id.New(),
		LineNo:      len(r.Lines) + 1,
		ItemID:      itemID,
		Quantity:    quantity,
		DailyRate:   dailyRate,
		DaysPlanned: daysPlanned,
		Amount:      dailyRate.Mul(quantity.Decimal()).Mul(days),
	}
	r.Lines = append(r.Lines, line)
	r.recalculateTotals()
}

func (r *RentalOrder) recalculateTotals() {
	r.TotalQuantity = 0
	r.TotalAmount = types.ZeroMoney()
	for _, line := range r.Lines {
		r.TotalQuantity += line.Quantity
		r.TotalAmount = r.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (r *RentalOrder) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if r.CustomerName == "" {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerName")
	}
	if id.IsNil(r.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range r.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.DaysPlanned <= 0 {
			return apperror.NewValidation("planned rental days must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.DailyRate.IsNegative() {
			return apperror.NewValidation("daily rate cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// FullyReturned reports whether nothing remains out with the customer.
func (r *RentalOrder) FullyReturned() bool {
	for i := range r.Lines {
		if r.Lines[i].Outstanding().IsPositive() {
			return false
		}
	}
	return true
}

// LedgerLines converts document lines into allocation engine lines.
func (r *RentalOrder) LedgerLines() []ledger.Line {
	lines := make([]ledger.Line, 0, len(r.Lines))
	for i := range r.Lines {
		lines = append(lines, ledger.Line{
			ItemID:            r.Lines[i].ItemID,
			Quantity:          r.Lines[i].Quantity,
			TransactionLineID: &r.Lines[i].LineID,
		})
	}
	return lines
}
