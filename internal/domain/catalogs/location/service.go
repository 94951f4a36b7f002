package location

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

// Service provides business logic for the Location catalog.
type Service struct {
	*domain.CatalogService[*Location]
	repo      Repository
	numerator numerator.Generator
}

// Service doubles as the allocation engine's location port.
var _ ledger.LocationChecker = (*Service)(nil)

// NewService creates a new Location service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator, log *logger.Logger) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Location]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  gen,
		Logger:     log,
		EntityName: "location",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, loc *Location) error {
	if loc.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("LC"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		loc.Code = code
	}
	return nil
}

// Exists implements ledger.LocationChecker. Soft-deleted and inactive
// locations do not accept stock movements.
func (s *Service) Exists(ctx context.Context, locationID id.ID) (bool, error) {
	loc, err := s.repo.GetByID(ctx, locationID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return loc.CanHoldStock(), nil
}
