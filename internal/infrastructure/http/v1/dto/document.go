package dto

import (
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
)

// DocumentListQuery contains the list parameters shared by all document types.
type DocumentListQuery struct {
	ListQuery

	LocationID string     `form:"locationId" binding:"omitempty,uuid"`
	Posted     *bool      `form:"posted"`
	DateFrom   *time.Time `form:"dateFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo     *time.Time `form:"dateTo" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ParseLocationID returns the location filter, or nil when unset.
func (q *DocumentListQuery) ParseLocationID() (*id.ID, error) {
	if q.LocationID == "" {
		return nil, nil
	}
	parsed, err := id.Parse(q.LocationID)
	if err != nil {
		return nil, apperror.NewValidation("invalid location id").WithDetail("value", q.LocationID)
	}
	return &parsed, nil
}

func parseID(field, raw string) (id.ID, error) {
	parsed, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", raw)
	}
	return parsed, nil
}
