package dto

import (
	"rentory/internal/domain/catalogs/location"
)

// CreateLocationRequest for creating locations.
type CreateLocationRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Type        string  `json:"type" binding:"required"`
	Address     *string `json:"address"`
	IsDefault   bool    `json:"isDefault"`
	Description *string `json:"description"`
}

// ToLocation builds a new domain location from the request.
func (r *CreateLocationRequest) ToLocation() *location.Location {
	loc := location.NewLocation(r.Code, r.Name, location.LocationType(r.Type))
	loc.Address = r.Address
	loc.IsDefault = r.IsDefault
	loc.Description = r.Description
	return loc
}

// UpdateLocationRequest for updating locations. Nil fields are left unchanged.
type UpdateLocationRequest struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	Type        *string `json:"type"`
	Address     *string `json:"address"`
	Active      *bool   `json:"active"`
	IsDefault   *bool   `json:"isDefault"`
	Description *string `json:"description"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// ApplyTo patches an existing location in place.
func (r *UpdateLocationRequest) ApplyTo(loc *location.Location) {
	if r.Code != nil {
		loc.Code = *r.Code
	}
	if r.Name != nil {
		loc.Name = *r.Name
	}
	if r.Type != nil {
		loc.Type = location.LocationType(*r.Type)
	}
	if r.Address != nil {
		loc.Address = r.Address
	}
	if r.Active != nil {
		loc.Active = *r.Active
	}
	if r.IsDefault != nil {
		loc.IsDefault = *r.IsDefault
	}
	if r.Description != nil {
		loc.Description = r.Description
	}
	loc.SetVersion(r.Version)
}
