package dto

import (
	"rentory/internal/core/types"
	"rentory/internal/domain/catalogs/item"
)

// CreateItemRequest for creating catalog items.
type CreateItemRequest struct {
	Code             string  `json:"code"`
	Name             string  `json:"name" binding:"required"`
	SKU              *string `json:"sku"`
	Barcode          *string `json:"barcode"`
	Rentable         bool    `json:"rentable"`
	Sellable         bool    `json:"sellable"`
	TrackSerial      bool    `json:"trackSerial"`
	DailyRentalRate  *string `json:"dailyRentalRate"`
	SalePrice        *string `json:"salePrice"`
	ReplacementValue *string `json:"replacementValue"`
	Description      *string `json:"description"`
}

// ToItem builds a new domain item from the request.
func (r *CreateItemRequest) ToItem() (*item.Item, error) {
	it := item.NewItem(r.Code, r.Name, r.Rentable, r.Sellable)
	it.SKU = r.SKU
	it.Barcode = r.Barcode
	it.TrackSerial = r.TrackSerial
	it.Description = r.Description

	var err error
	if it.DailyRentalRate, err = moneyOrZero(r.DailyRentalRate); err != nil {
		return nil, invalidMoney("dailyRentalRate", *r.DailyRentalRate)
	}
	if it.SalePrice, err = moneyOrZero(r.SalePrice); err != nil {
		return nil, invalidMoney("salePrice", *r.SalePrice)
	}
	if it.ReplacementValue, err = moneyOrZero(r.ReplacementValue); err != nil {
		return nil, invalidMoney("replacementValue", *r.ReplacementValue)
	}
	return it, nil
}

// UpdateItemRequest for updating catalog items. Nil fields are left unchanged.
type UpdateItemRequest struct {
	Code             *string `json:"code"`
	Name             *string `json:"name"`
	SKU              *string `json:"sku"`
	Barcode          *string `json:"barcode"`
	Rentable         *bool   `json:"rentable"`
	Sellable         *bool   `json:"sellable"`
	TrackSerial      *bool   `json:"trackSerial"`
	DailyRentalRate  *string `json:"dailyRentalRate"`
	SalePrice        *string `json:"salePrice"`
	ReplacementValue *string `json:"replacementValue"`
	Active           *bool   `json:"active"`
	Description      *string `json:"description"`
	Version          int     `json:"version" binding:"required,min=1"`
}

// ApplyTo patches an existing item in place.
func (r *UpdateItemRequest) ApplyTo(it *item.Item) error {
	if r.Code != nil {
		it.Code = *r.Code
	}
	if r.Name != nil {
		it.Name = *r.Name
	}
	if r.SKU != nil {
		it.SKU = r.SKU
	}
	if r.Barcode != nil {
		it.Barcode = r.Barcode
	}
	if r.Rentable != nil {
		it.Rentable = *r.Rentable
	}
	if r.Sellable != nil {
		it.Sellable = *r.Sellable
	}
	if r.TrackSerial != nil {
		it.TrackSerial = *r.TrackSerial
	}
	if r.Active != nil {
		it.Active = *r.Active
	}
	if r.Description != nil {
		it.Description = r.Description
	}
	if r.DailyRentalRate != nil {
		m, err := types.NewMoneyFromString(*r.DailyRentalRate)
		if err != nil {
			return invalidMoney("dailyRentalRate", *r.DailyRentalRate)
		}
		it.DailyRentalRate = m
	}
	if r.SalePrice != nil {
		m, err := types.NewMoneyFromString(*r.SalePrice)
		if err != nil {
			return invalidMoney("salePrice", *r.SalePrice)
		}
		it.SalePrice = m
	}
	if r.ReplacementValue != nil {
		m, err := types.NewMoneyFromString(*r.ReplacementValue)
		if err != nil {
			return invalidMoney("replacementValue", *r.ReplacementValue)
		}
		it.ReplacementValue = m
	}
	it.SetVersion(r.Version)
	return nil
}
