// Package item provides the Item catalog: the rental/sale goods master.
package item

import (
	"context"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/types"
)

// Item is a good that can be rented out, sold, or both. Quantities live in
// the stock ledger; the item record carries master data and pricing.
type Item struct {
	entity.Catalog

	// SKU is the stock keeping unit, unique when set
	SKU *string `db:"sku" json:"sku,omitempty"`

	// Barcode (EAN-13 etc.), unique when set
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Rentable allows the item on rental orders
	Rentable bool `db:"rentable" json:"rentable"`

	// Sellable allows the item on sale invoices
	Sellable bool `db:"sellable" json:"sellable"`

	// TrackSerial indicates individual units carry serial numbers
	TrackSerial bool `db:"track_serial" json:"trackSerial"`

	// DailyRentalRate is the price per rental day
	DailyRentalRate types.Money `db:"daily_rental_rate" json:"dailyRentalRate"`

	// SalePrice is the unit sale price
	SalePrice types.Money `db:"sale_price" json:"salePrice"`

	// ReplacementValue is charged when a rented unit is lost or destroyed
	ReplacementValue types.Money `db:"replacement_value" json:"replacementValue"`

	// Active items can appear on new documents
	Active bool `db:"active" json:"active"`

	Description *string `db:"description" json:"description,omitempty"`
}

// NewItem creates a new Item with required fields.
func NewItem(code, name string, rentable, sellable bool) *Item {
	return &Item{
		Catalog:          entity.NewCatalog(code, name),
		Rentable:         rentable,
		Sellable:         sellable,
		Active:           true,
		DailyRentalRate:  types.ZeroMoney(),
		SalePrice:        types.ZeroMoney(),
		ReplacementValue: types.ZeroMoney(),
	}
}

// Validate implements entity.Validatable interface.
func (i *Item) Validate(ctx context.Context) error {
	if err := i.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !i.Rentable && !i.Sellable {
		return apperror.NewValidation("item must be rentable, sellable, or both").
			WithDetail("field", "rentable")
	}

	if i.DailyRentalRate.IsNegative() {
		return apperror.NewValidation("daily rental rate cannot be negative").
			WithDetail("field", "dailyRentalRate")
	}
	if i.SalePrice.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative").
			WithDetail("field", "salePrice")
	}
	if i.ReplacementValue.IsNegative() {
		return apperror.NewValidation("replacement value cannot be negative").
			WithDetail("field", "replacementValue")
	}

	if i.Sellable && !i.Rentable && i.TrackSerial {
		// serial tracking exists for the rental fleet; sale-only goods move in bulk
		return apperror.NewValidation("sale-only items cannot be serial-tracked").
			WithDetail("field", "trackSerial")
	}

	return nil
}

// CanRent reports whether the item may appear on a new rental order.
func (i *Item) CanRent() bool {
	return i.Active && i.Rentable && !i.DeletionMark
}

// CanSell reports whether the item may appear on a new sale invoice.
func (i *Item) CanSell() bool {
	return i.Active && i.Sellable && !i.DeletionMark
}
