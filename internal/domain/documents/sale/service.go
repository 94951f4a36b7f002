package sale

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

// Service provides business operations for sale invoice documents.
type Service struct {
	repo      Repository
	engine    *ledger.Engine
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*SaleInvoice]
	log       *logger.Logger
}

// NewService creates a new sale invoice service.
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
		hooks:     domain.NewHookRegistry[*SaleInvoice](),
		log:       log.WithComponent("sale_invoice"),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*SaleInvoice] {
	return s.hooks
}

func (s *Service) ensureNumber(ctx context.Context, doc *SaleInvoice) error {
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

// Create creates a new sale invoice (draft, not posted).
func (s *Service) Create(ctx context.Context, doc *SaleInvoice) error {
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

	s.log.WithContext(ctx).Infow("sale invoice created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves a sale invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SaleInvoice, error) {
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

// Update updates an unposted sale invoice.
func (s *Service) Update(ctx context.Context, doc *SaleInvoice) error {
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

// Delete soft-deletes an unposted sale invoice.
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

// ValidateAvailability pre-checks the invoice against current stock.
func (s *Service) ValidateAvailability(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	return s.engine.ValidateAvailability(ctx, doc.LocationID, doc.LedgerLines(), ledger.PurposeSale)
}

// Post applies the invoice to the stock ledger: all lines leave stock or
// none do.
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
		Reason: fmt.Sprintf("sale invoice %s", doc.Number),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.engine.ApplySale(ctx, doc.LocationID, doc.LedgerLines(), ref); err != nil {
			return err
		}
		doc.MarkPosted()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("sale invoice posted", "id", doc.ID, "number", doc.Number)
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

// List retrieves sale invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SaleInvoice], error) {
	return s.repo.List(ctx, filter)
}
