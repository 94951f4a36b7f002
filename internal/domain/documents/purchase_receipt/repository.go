package purchase_receipt

import (
	"context"
	"time"

	"rentory/internal/core/id"
	"rentory/internal/domain"
)

// Repository defines operations for purchase receipt documents.
type Repository interface {
	Create(ctx context.Context, doc *PurchaseReceipt) error
	GetByID(ctx context.Context, docID id.ID) (*PurchaseReceipt, error)
	GetByNumber(ctx context.Context, number string) (*PurchaseReceipt, error)
	Update(ctx context.Context, doc *PurchaseReceipt) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseReceipt], error)
}

// ListFilter for filtering purchase receipts.
type ListFilter struct {
	domain.ListFilter

	LocationID *id.ID
	Posted     *bool
	DateFrom   *time.Time
	DateTo     *time.Time
}
