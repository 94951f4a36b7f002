// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
	"rentory/internal/domain"
)

// --- List query ---

// ListQuery contains common list parameters bound from the query string.
type ListQuery struct {
	Search         string   `form:"search"`
	IDs            []string `form:"ids"`
	IncludeDeleted bool     `form:"includeDeleted"`
	OrderBy        string   `form:"orderBy"`
	Limit          int      `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int      `form:"offset" binding:"omitempty,min=0"`
}

// ToListFilter converts query parameters into a domain filter.
func (q *ListQuery) ToListFilter() (domain.ListFilter, error) {
	filter := domain.DefaultListFilter()
	filter.Search = q.Search
	filter.IncludeDeleted = q.IncludeDeleted
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.Limit > 0 {
		filter.Limit = q.Limit
	}
	filter.Offset = q.Offset

	for _, raw := range q.IDs {
		parsed, err := id.Parse(raw)
		if err != nil {
			return filter, apperror.NewValidation("invalid id in ids filter").
				WithDetail("value", raw)
		}
		filter.IDs = append(filter.IDs, parsed)
	}
	return filter, nil
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse builds a ListResponse from a domain list result.
func NewListResponse[T any](result domain.ListResult[T]) ListResponse {
	items := result.Items
	if items == nil {
		items = make([]T, 0)
	}
	return ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// --- Success Response ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Deletion ---

// SetDeletionMarkRequest toggles the soft-delete mark.
type SetDeletionMarkRequest struct {
	Marked bool `json:"marked"`
}
