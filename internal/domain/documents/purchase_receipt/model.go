// Package purchase_receipt provides the PurchaseReceipt document.
// Records incoming goods from suppliers into a location.
package purchase_receipt

import (
	"context"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/types"
	"rentory/internal/domain/ledger"
)

// PurchaseReceipt records goods received from a supplier.
type PurchaseReceipt struct {
	entity.Document

	// SupplierName is the free-form supplier reference
	SupplierName string `db:"supplier_name" json:"supplierName"`

	// LocationID is the receiving location
	LocationID id.ID `db:"location_id" json:"locationId"`

	// SupplierDocNumber is the supplier's own document reference
	SupplierDocNumber string `db:"supplier_doc_number" json:"supplierDocNumber,omitempty"`

	// Totals (calculated from lines)
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	// Table part: received goods
	Lines []Line `db:"-" json:"lines"`
}

// Line is one received item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID id.ID `db:"item_id" json:"itemId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`
	Amount   types.Money    `db:"amount" json:"amount"`
}

// NewPurchaseReceipt creates a new purchase receipt document.
func NewPurchaseReceipt(supplierName string, locationID id.ID) *PurchaseReceipt {
	return &PurchaseReceipt{
		Document:     entity.NewDocument(),
		SupplierName: supplierName,
		LocationID:   locationID,
		TotalAmount:  types.ZeroMoney(),
		Lines:        make([]Line, 0),
	}
}

// AddLine appends a line and recalculates totals.
func (p *PurchaseReceipt) AddLine(itemID id.ID, quantity types.Quantity, unitCost types.Money) {
	line := Line{
		LineID:   id.New(),
		LineNo:   len(p.Lines) + 1,
		ItemID:   itemID,
		Quantity: quantity,
		UnitCost: unitCost,
		Amount:   unitCost.Mul(quantity.Decimal()),
	}
	p.Lines = append(p.Lines, line)
	p.recalculateTotals()
}

func (p *PurchaseReceipt) recalculateTotals() {
	p.TotalQuantity = 0
	p.TotalAmount = types.ZeroMoney()
	for _, line := range p.Lines {
		p.TotalQuantity += line.Quantity
		p.TotalAmount = p.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (p *PurchaseReceipt) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(p.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	if len(p.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range p.Lines {
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
		if line.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// LedgerLines converts document lines into allocation engine lines.
func (p *PurchaseReceipt) LedgerLines() []ledger.Line {
	lines := make([]ledger.Line, 0, len(p.Lines))
	for i := range p.Lines {
		lines = append(lines, ledger.Line{
			ItemID:            p.Lines[i].ItemID,
			Quantity:          p.Lines[i].Quantity,
			TransactionLineID: &p.Lines[i].LineID,
		})
	}
	return lines
}
