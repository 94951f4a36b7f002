package dto

import (
	"time"

	"rentory/internal/core/types"
	"rentory/internal/domain/documents/sale"
)

// SaleLineRequest is one sold item.
type SaleLineRequest struct {
	ItemID    string         `json:"itemId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice string         `json:"unitPrice" binding:"required"`
}

// CreateSaleInvoiceRequest for creating sale invoices.
type CreateSaleInvoiceRequest struct {
	CustomerName string            `json:"customerName" binding:"required"`
	LocationID   string            `json:"locationId" binding:"required,uuid"`
	Date         *time.Time        `json:"date"`
	Comment      string            `json:"comment"`
	Lines        []SaleLineRequest `json:"lines" binding:"required,min=1"`
}

// ToDocument builds a new sale invoice from the request.
func (r *CreateSaleInvoiceRequest) ToDocument() (*sale.SaleInvoice, error) {
	locationID, err := parseID("locationId", r.LocationID)
	if err != nil {
		return nil, err
	}

	doc := sale.NewSaleInvoice(r.CustomerName, locationID)
	doc.Comment = r.Comment
	if r.Date != nil {
		doc.Date = *r.Date
	}

	if err := appendSaleLines(doc, r.Lines); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateSaleInvoiceRequest replaces the header and lines of a draft invoice.
type UpdateSaleInvoiceRequest struct {
	CustomerName *string           `json:"customerName"`
	Date         *time.Time        `json:"date"`
	Comment      *string           `json:"comment"`
	Lines        []SaleLineRequest `json:"lines"`
	Version      int               `json:"version" binding:"required,min=1"`
}

// ApplyTo patches an existing invoice in place. A non-nil Lines slice
// replaces the whole table part.
func (r *UpdateSaleInvoiceRequest) ApplyTo(doc *sale.SaleInvoice) error {
	if r.CustomerName != nil {
		doc.CustomerName = *r.CustomerName
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}
	if r.Lines != nil {
		doc.Lines = doc.Lines[:0]
		if err := appendSaleLines(doc, r.Lines); err != nil {
			return err
		}
	}
	doc.SetVersion(r.Version)
	return nil
}

func appendSaleLines(doc *sale.SaleInvoice, lines []SaleLineRequest) error {
	for _, line := range lines {
		itemID, err := parseID("lines.itemId", line.ItemID)
		if err != nil {
			return err
		}
		unitPrice, err := types.NewMoneyFromString(line.UnitPrice)
		if err != nil {
			return invalidMoney("unitPrice", line.UnitPrice)
		}
		doc.AddLine(itemID, line.Quantity, unitPrice)
	}
	return nil
}
