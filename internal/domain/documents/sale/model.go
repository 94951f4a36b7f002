// Package sale provides the SaleInvoice document.
// Records goods sold and leaving stock permanently.
package sale

import (
	"context"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/internal/domain/ledger"
)

// SaleInvoice records goods sold from a location.
type SaleInvoice struct {
	entity.Document

	CustomerName string `db:"customer_name" json:"customerName"`

	// LocationID is the location goods leave from
	LocationID id.ID `db:"location_id" json:"locationId"`

	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	// Table part: sold goods
	Lines []Line `db:"-" json:"lines"`
}

// Line is one sold item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID id.ID `db:"item_id" json:"itemId"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Amount    types.Money    `db:"amount" json:"amount"`
}

// NewSaleInvoice creates a new sale invoice document.
func NewSaleInvoice(customerName string, locationID id.ID) *SaleInvoice {
	return &SaleInvoice{
		Document:     entity.NewDocument(),
		CustomerName: customerName,
		LocationID:   locationID,
		TotalAmount:  types.ZeroMoney(),
		Lines:        make([]Line, 0),
	}
}

// AddLine appends a line and recalculates totals.
func (s *SaleInvoice) AddLine(itemID id.ID, quantity types.Quantity, unitPrice types.Money) {
	line := Line{
		LineID:    id.New(),
		LineNo:    len(s.Lines) + 1,
		ItemID:    itemID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Amount:    unitPrice.Mul(quantity.Decimal()),
	}
	s.Lines = append(s.Lines, line)
	s.recalculateTotals()
}

func (s *SaleInvoice) recalculateTotals() {
	s.TotalQuantity = 0
	s.TotalAmount = types.ZeroMoney()
	for _, line := range s.Lines {
		s.TotalQuantity += line.Quantity
		s.TotalAmount = s.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (s *SaleInvoice) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if s.CustomerName == "" {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerName")
	}
	if id.IsNil(s.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range s.Lines {
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
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// LedgerLines converts document lines into allocation engine lines.
func (s *SaleInvoice) LedgerLines() []ledger.Line {
	lines := make([]ledger.Line, 0, len(s.Lines))
	for i := range s.Lines {
		lines = append(lines, ledger.Line{
			ItemID:            s.Lines[i].ItemID,
			Quantity:          s.Lines[i].Quantity,
			TransactionLineID: &s.Lines[i].LineID,
		})
	}
	return lines
}
