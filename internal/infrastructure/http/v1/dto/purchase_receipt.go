package dto

import (
	"time"

	"rentory/internal/core/types"
	"rentory/internal/domain/documents/purchase_receipt"
)

// PurchaseReceiptLineRequest is one received item.
type PurchaseReceiptLineRequest struct {
	ItemID   string         `json:"itemId" binding:"required,uuid"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost string         `json:"unitCost" binding:"required"`
}

// CreatePurchaseReceiptRequest for creating purchase receipts.
type CreatePurchaseReceiptRequest struct {
	SupplierName      string                       `json:"supplierName" binding:"required"`
	LocationID        string                       `json:"locationId" binding:"required,uuid"`
	SupplierDocNumber string                       `json:"supplierDocNumber"`
	Date              *time.Time                   `json:"date"`
	Comment           string                       `json:"comment"`
	Lines             []PurchaseReceiptLineRequest `json:"lines" binding:"required,min=1"`
}

// ToDocument builds a new purchase receipt from the request.
func (r *CreatePurchaseReceiptRequest) ToDocument() (*purchase_receipt.PurchaseReceipt, error) {
	locationID, err := parseID("locationId", r.LocationID)
	if err != nil {
		return nil, err
	}

	doc := purchase_receipt.NewPurchaseReceipt(r.SupplierName, locationID)
	doc.SupplierDocNumber = r.SupplierDocNumber
	doc.Comment = r.Comment
	if r.Date != nil {
		doc.Date = *r.Date
	}

	if err := appendPurchaseLines(doc, r.Lines); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdatePurchaseReceiptRequest replaces the header and lines of a draft receipt.
type UpdatePurchaseReceiptRequest struct {
	SupplierName      *string                      `json:"supplierName"`
	SupplierDocNumber *string                      `json:"supplierDocNumber"`
	Date              *time.Time                   `json:"date"`
	Comment           *string                      `json:"comment"`
	Lines             []PurchaseReceiptLineRequest `json:"lines"`
	Version           int                          `json:"version" binding:"required,min=1"`
}

// ApplyTo patches an existing receipt in place. A non-nil Lines slice
// replaces the whole table part.
func (r *UpdatePurchaseReceiptRequest) ApplyTo(doc *purchase_receipt.PurchaseReceipt) error {
	if r.SupplierName != nil {
		doc.SupplierName = *r.SupplierName
	}
	if r.SupplierDocNumber != nil {
		doc.SupplierDocNumber = *r.SupplierDocNumber
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}
	if r.Lines != nil {
		doc.Lines = doc.Lines[:0]
		if err := appendPurchaseLines(doc, r.Lines); err != nil {
			return err
		}
	}
	doc.SetVersion(r.Version)
	return nil
}

func appendPurchaseLines(doc *purchase_receipt.PurchaseReceipt, lines []PurchaseReceiptLineRequest) error {
	for _, line := range lines {
		itemID, err := parseID("lines.itemId", line.ItemID)
		if err != nil {
			return err
		}
		unitCost, err := types.NewMoneyFromString(line.UnitCost)
		if err != nil {
			return invalidMoney("unitCost", line.UnitCost)
		}
		doc.AddLine(itemID, line.Quantity, unitCost)
	}
	return nil
}
