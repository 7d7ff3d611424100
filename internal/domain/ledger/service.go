package ledger

import (
	"context"
	"fmt"

	"taller/internal/core/apperror"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/pkg/logger"
)

// Service is the single write path to item stock. Every stock change in the
// system goes through Apply; no other component writes the stock column.
type Service struct {
	items ItemStore
}

// NewService creates a new ledger service.
func NewService(items ItemStore) *Service {
	return &Service{items: items}
}

// Apply adds a signed delta to the item's stock and returns the new value.
//
// Fails with NOT_FOUND when the item does not exist and INSUFFICIENT_STOCK
// when the delta would drive stock below zero; in both cases the item is
// left unmodified. Must be called inside a transaction: the row lock taken
// by GetForUpdate serializes concurrent mutations of the same item.
func (s *Service) Apply(ctx context.Context, itemID id.ID, delta types.Quantity) (types.Quantity, error) {
	item, err := s.items.GetForUpdate(ctx, itemID)
	if err != nil {
		return 0, err
	}

	if delta.IsZero() {
		return item.Stock, nil
	}

	newStock := item.Stock.Add(delta)
	if newStock.IsNegative() {
		return 0, apperror.NewInsufficientStock(itemID.String(), delta.Neg().Int64(), item.Stock.Int64())
	}

	if err := s.items.SetStock(ctx, itemID, newStock, item.Version); err != nil {
		return 0, fmt.Errorf("set stock: %w", err)
	}

	logger.Debug(ctx, "stock applied",
		"item_id", itemID,
		"delta", delta.Int64(),
		"stock", newStock.Int64(),
	)

	return newStock, nil
}

// CurrentStock returns the item's on-hand quantity.
func (s *Service) CurrentStock(ctx context.Context, itemID id.ID) (types.Quantity, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return item.Stock, nil
}
