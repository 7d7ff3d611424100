package item

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/pkg/logger"
)

// Service provides business operations for the item catalog.
type Service struct {
	repo Repository
}

// NewService creates a new item catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers an item with an explicit initial stock (often zero).
// This is the only operation that sets stock outside the ledger.
func (s *Service) Create(ctx context.Context, code, name string, kind entity.ItemKind, initialStock types.Quantity, unitPrice types.Money) (*entity.Item, error) {
	i := entity.NewItem(code, name, kind, initialStock)
	i.UnitPrice = unitPrice

	if err := i.Validate(ctx); err != nil {
		return nil, err
	}

	if i.Code != "" {
		if existing, err := s.repo.GetByCode(ctx, i.Code); err == nil && existing != nil {
			return nil, apperror.NewDuplicate("item", "code", i.Code)
		} else if err != nil && !apperror.IsNotFound(err) {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, i); err != nil {
		return nil, err
	}

	logger.Info(ctx, "item created",
		"id", i.ID,
		"code", i.Code,
		"kind", i.Kind,
		"initial_stock", i.Stock.Int64(),
	)

	return i, nil
}

// GetByID retrieves an item.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*entity.Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// Update rewrites descriptive fields (name, price). Stock is ignored even
// if the caller set it; only the ledger mutates stock.
func (s *Service) Update(ctx context.Context, itemID id.ID, name string, unitPrice types.Money) (*entity.Item, error) {
	i, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	i.Name = name
	i.UnitPrice = unitPrice
	if err := i.Validate(ctx); err != nil {
		return nil, err
	}

	i.Touch()
	if err := s.repo.Update(ctx, i); err != nil {
		return nil, err
	}

	return i, nil
}

// List returns items matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]entity.Item, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
