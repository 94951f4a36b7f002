package sale

import (
	"context"
	"time"

	"rentory/internal/core/id"
	"rentory/internal/domain"
)

// Repository defines operations for sale invoice documents.
type Repository interface {
	Create(ctx context.Context, doc *SaleInvoice) error
	GetByID(ctx context.Context, docID id.ID) (*SaleInvoice, error)
	GetByNumber(ctx context.Context, number string) (*SaleInvoice, error)
	Update(ctx context.Context, doc *SaleInvoice) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleInvoice], error)
}

// ListFilter for filtering sale invoices.
type ListFilter struct {
	domain.ListFilter

	LocationID *id.ID
	Posted     *bool
	DateFrom   *time.Time
	DateTo     *time.Time
}
