package purchase_receipt

import (
	"context"
	"fmt"
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/numerator"
	"rentory/internal/core/tx"
	"rentory/internal/domain"
	"rentory/internal/domain/ledger"
	"rentory/pkg/logger"
)

// Service provides business operations for purchase receipt documents.
type Service struct {
	repo      Repository
	engine    *ledger.Engine
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*PurchaseReceipt]
	log       *logger.Logger
}

// NewService creates a new purchase receipt service.
func NewService(
	repo Repository,
	engine *ledger.Engine,
	gen numerator.Generator,
	txManager tx.Manager,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		numerator: gen,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*PurchaseReceipt](),
		log:       log.WithComponent("purchase_receipt"),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PurchaseReceipt] {
	return s.hooks
}

func (s *Service) ensureNumber(ctx context.Context, doc *PurchaseReceipt) error {
	if doc.Number != "" {
		return nil
	}
	cfg := numerator.DefaultConfig(NumeratorPrefix)
	number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
	if err != nil {
		return fmt.Errorf("generate number: %w", err)
	}
	doc.Number = number
	return nil
}

// Create creates a new purchase receipt document (draft, not posted).
func (s *Service) Create(ctx context.Context, doc *PurchaseReceipt) error {
	if err := s.hooks.Run(ctx, domain.BeforeCreate, doc); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if err := s.ensureNumber(ctx, doc); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("purchase receipt created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves a purchase receipt with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*PurchaseReceipt, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// Update updates an unposted purchase receipt.
func (s *Service) Update(ctx context.Context, doc *PurchaseReceipt) error {
	if err := s.hooks.Run(ctx, domain.BeforeUpdate, doc); err != nil {
		return err
	}
	if err := doc.CanModify(); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Delete soft-deletes an unposted purchase receipt.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Posted {
		return doc.CanModify()
	}
	return s.repo.Delete(ctx, docID)
}

// Post applies the document to the stock ledger. The ledger movements and
// the posted flag commit in one transaction; a failed line rolls back
// everything.
func (s *Service) Post(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Posted {
		return apperror.NewBusinessRule(apperror.CodeDocumentPosted, "document is already posted").
			WithDetail("document_id", docID.String())
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	ref := ledger.Reference{
		Type:   entity.ReferenceTransaction,
		ID:     doc.ID.String(),
		Reason: fmt.Sprintf("purchase receipt %s", doc.Number),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.engine.ApplyPurchase(ctx, doc.LocationID, doc.LedgerLines(), ref); err != nil {
			return err
		}
		doc.MarkPosted()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("purchase receipt posted", "id", doc.ID, "number", doc.Number)
	return nil
}

// Unpost is not supported: the movement trail is append-only, so posted
// stock documents are reversed with correcting documents instead.
func (s *Service) Unpost(ctx context.Context, docID id.ID) error {
	return apperror.NewBusinessRule(
		apperror.CodeBusinessRule,
		"posted stock documents cannot be unposted; create a correcting document",
	).WithDetail("document_id", docID.String())
}

// List retrieves purchase receipts with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseReceipt], error) {
	return s.repo.List(ctx, filter)
}
