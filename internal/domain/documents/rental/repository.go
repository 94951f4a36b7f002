package rental

import (
	"context"
	"time"

	"rentory/internal/core/id"
	"rentory/internal/domain"
)

// Repository defines operations for rental order documents.
type Repository interface {
	Create(ctx context.Context, doc *RentalOrder) error
	GetByID(ctx context.Context, docID id.ID) (*RentalOrder, error)
	GetByNumber(ctx context.Context, number string) (*RentalOrder, error)
	Update(ctx context.Context, doc *RentalOrder) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*RentalOrder], error)

	// GetForUpdate locks the document row for the return workflow.
	GetForUpdate(ctx context.Context, docID id.ID) (*RentalOrder, error)
}

// ListFilter for filtering rental orders.
type ListFilter struct {
	domain.ListFilter

	LocationID *id.ID
	Status     *Status
	Posted     *bool
	DueBefore  *time.Time
	DateFrom   *time.Time
	DateTo     *time.Time
}
