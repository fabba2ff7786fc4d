package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/itemstore/internal/errors"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
)

// LedgerService exposes the stock counters of a product model.
type LedgerService interface {
	ItemsRemaining(ctx context.Context, productID int64) (int, error)
	AddItems(ctx context.Context, productID int64, count int) error
	RemoveAll(ctx context.Context, productID int64) (int, error)
}

type ledgerService struct {
	items repository.ItemRepository
}

func NewLedgerService(items repository.ItemRepository) LedgerService {
	return &ledgerService{items: items}
}

func (s *ledgerService) ItemsRemaining(ctx context.Context, productID int64) (int, error) {
	remaining, err := s.items.CountRemaining(ctx, productID)
	if err != nil {
		return 0, appErrors.DatabaseError("Failed to count remaining items").WithError(err)
	}

	return remaining, nil
}

func (s *ledgerService) AddItems(ctx context.Context, productID int64, count int) error {
	if count < 0 {
		return appErrors.InvalidQuantityError("Item count cannot be negative")
	}

	if count == 0 {
		return nil
	}

	if err := s.items.AddItems(ctx, productID, count); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return appErrors.NotFoundError("Product not found").WithError(err)
		}
		return appErrors.DatabaseError("Failed to add items").WithError(err)
	}

	middleware.LoggerFromContext(ctx).Info("Items added",
		slog.Int64("productId", productID),
		slog.Int("count", count))

	return nil
}

func (s *ledgerService) RemoveAll(ctx context.Context, productID int64) (int, error) {
	removed, err := s.items.RemoveAll(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return 0, appErrors.NotFoundError("Product not found").WithError(err)
		}
		return 0, appErrors.DatabaseError("Failed to remove items").WithError(err)
	}

	middleware.LoggerFromContext(ctx).Info("Unclaimed items removed",
		slog.Int64("productId", productID),
		slog.Int("removed", removed))

	return removed, nil
}
