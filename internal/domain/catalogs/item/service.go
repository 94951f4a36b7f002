package item

import (
	"context"
	"fmt"
	"time"

	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
	"rentory/internal/core/numerator"
	"rentory/internal/core/tx"
	"rentory/internal/domain"
	"rentory/internal/domain/ledger"
	"rentory/pkg/logger"
)

// Service provides business logic for the Item catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Item]
	repo      Repository
	numerator numerator.Generator
}

// Service doubles as the allocation engine's item port.
var _ ledger.ItemReader = (*Service)(nil)

// NewService creates a new Item service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator, log *logger.Logger) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Item]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  gen,
		Logger:     log,
		EntityName: "item",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkUnique)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, it *Item) error {
	if it.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("IT"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		it.Code = code
	}
	return s.checkUnique(ctx, it)
}

func (s *Service) checkUnique(ctx context.Context, it *Item) error {
	if it.SKU != nil && *it.SKU != "" {
		if existing, err := s.repo.FindBySKU(ctx, *it.SKU); err == nil && existing.ID != it.ID {
			return apperror.NewConflict("item with this SKU already exists").
				WithDetail("sku", *it.SKU)
		}
	}
	if it.Barcode != nil && *it.Barcode != "" {
		if existing, err := s.repo.FindByBarcode(ctx, *it.Barcode); err == nil && existing.ID != it.ID {
			return apperror.NewConflict("item with this barcode already exists").
				WithDetail("barcode", *it.Barcode)
		}
	}
	return nil
}

// --- Entity-specific methods ---

// FindBySKU retrieves an item by SKU.
func (s *Service) FindBySKU(ctx context.Context, sku string) (*Item, error) {
	it, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("item", sku)
		}
		return nil, err
	}
	return it, nil
}

// GetMany implements ledger.ItemReader: batch master-data lookup for the
// allocation engine. Soft-deleted items count as missing.
func (s *Service) GetMany(ctx context.Context, ids []id.ID) (map[id.ID]ledger.ItemInfo, error) {
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[id.ID]ledger.ItemInfo, len(items))
	for _, it := range items {
		if it.DeletionMark {
			continue
		}
		out[it.ID] = ledger.ItemInfo{
			ID:       it.ID,
			Name:     it.Name,
			Rentable: it.Rentable,
			Sellable: it.Sellable,
			Active:   it.Active,
		}
	}
	return out, nil
}
