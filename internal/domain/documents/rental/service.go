package rental

import (
	"context"
	"fmt"
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/entity"
	"rentory/internal/core/id"
	"rentory/internal/core/numerator"
	"rentory/internal/core/tx"
	"rentory/internal/core/types"
	"rentory/internal/domain"
	"rentory/internal/domain/ledger"
	"rentory/pkg/logger"
)

// ReturnRequest is one returned line of the return workflow.
type ReturnRequest struct {
	LineID    id.ID                  `json:"lineId"`
	Quantity  types.Quantity         `json:"quantity"`
	Condition ledger.ReturnCondition `json:"condition"`
}

// Service provides business operations for rental order documents.
type Service struct {
	repo      Repository
	engine    *ledger.Engine
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*RentalOrder]
	log       *logger.Logger
}

// NewService creates a new rental order service.
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
		hooks:     domain.NewHookRegistry[*RentalOrder](),
		log:       log.WithComponent("rental_order"),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*RentalOrder] {
	return s.hooks
}

func (s *Service) ensureNumber(ctx context.Context, doc *RentalOrder) error {
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

// Create creates a new rental order (draft, no stock reserved).
func (s *Service) Create(ctx context.Context, doc *RentalOrder) error {
	if err := s.hooks.Run(ctx, domain.BeforeCreate, doc); err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if err := s.ensureNumber(ctx, doc); err != nil {
		return err
	}
	doc.Status = StatusDraft

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

	s.log.WithContext(ctx).Infow("rental order created", "id", doc.ID, "number", doc.Number)
	return nil
}

// GetByID retrieves a rental order with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*RentalOrder, error) {
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

// Update updates an unposted rental order.
func (s *Service) Update(ctx context.Context, doc *RentalOrder) error {
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

// Delete soft-deletes an unposted rental order.
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

// ValidateAvailability pre-checks the order against current stock without
// reserving anything.
func (s *Service) ValidateAvailability(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	return s.engine.ValidateAvailability(ctx, doc.LocationID, doc.LedgerLines(), ledger.PurposeRental)
}

// Post checks the order's stock out. All lines succeed or the posting
// fails listing every shortage.
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
		Reason: fmt.Sprintf("rental order %s checkout", doc.Number),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.engine.ApplyRentalCheckout(ctx, doc.LocationID, doc.LedgerLines(), ref); err != nil {
			return err
		}
		doc.Status = StatusOpen
		doc.MarkPosted()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("rental order posted", "id", doc.ID, "number", doc.Number)
	return nil
}

// RegisterReturn brings rented stock back against the order's lines. Good
// quantities restock; damaged ones are written off. The order closes when
// nothing remains outstanding.
func (s *Service) RegisterReturn(ctx context.Context, docID id.ID, returns []ReturnRequest) error {
	if len(returns) == 0 {
		return apperror.NewValidation("at least one return line is required")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		lines, err := s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		doc.Lines = lines

		if !doc.Posted || doc.Status == StatusDraft {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "cannot return against an unposted order").
				WithDetail("document_id", docID.String())
		}

		byLineID := make(map[id.ID]*Line, len(doc.Lines))
		for i := range doc.Lines {
			byLineID[doc.Lines[i].LineID] = &doc.Lines[i]
		}

		// validate the whole return batch before touching stock
		var violations []map[string]any
		ledgerLines := make([]ledger.ReturnLine, 0, len(returns))
		for _, ret := range returns {
			line, ok := byLineID[ret.LineID]
			if !ok {
				violations = append(violations, map[string]any{
					"line_id": ret.LineID.String(), "problem": "unknown order line",
				})
				continue
			}
			if !ret.Quantity.IsPositive() {
				violations = append(violations, map[string]any{
					"line_id": ret.LineID.String(), "problem": "quantity must be positive",
				})
				continue
			}
			if ret.Quantity > line.Outstanding() {
				violations = append(violations, map[string]any{
					"line_id":     ret.LineID.String(),
					"requested":   ret.Quantity.Float64(),
					"outstanding": line.Outstanding().Float64(),
				})
				continue
			}
			ledgerLines = append(ledgerLines, ledger.ReturnLine{
				Line: ledger.Line{
					ItemID:            line.ItemID,
					Quantity:          ret.Quantity,
					TransactionLineID: &line.LineID,
				},
				Condition: ret.Condition,
			})
		}
		if len(violations) > 0 {
			return apperror.NewValidation(
				fmt.Sprintf("%d return line(s) are invalid", len(violations)),
			).WithDetail("lines", violations)
		}

		ref := ledger.Reference{
			Type:   entity.ReferenceTransaction,
			ID:     doc.ID.String(),
			Reason: fmt.Sprintf("rental order %s return", doc.Number),
		}
		if _, err := s.engine.ApplyRentalReturn(ctx, doc.LocationID, ledgerLines, ref); err != nil {
			return err
		}

		for _, ret := range returns {
			line := byLineID[ret.LineID]
			if ret.Condition == ledger.ConditionDamaged {
				line.DamagedQuantity += ret.Quantity
			} else {
				line.ReturnedQuantity += ret.Quantity
			}
		}
		if doc.FullyReturned() {
			doc.Status = StatusClosed
		}
		doc.Touch()

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("rental return registered", "id", docID, "lines", len(returns))
	return nil
}

// List retrieves rental orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*RentalOrder], error) {
	return s.repo.List(ctx, filter)
}
