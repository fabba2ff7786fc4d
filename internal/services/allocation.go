package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/metrics"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/aaravmahajanofficial/itemstore/internal/services"

// AllocationService claims items for orders. A failed Allocate leaves the ledger untouched.
type AllocationService interface {
	Allocate(ctx context.Context, productID int64, quantity int, email string) (*models.Order, error)
	Release(ctx context.Context, orderID uuid.UUID) (int, error)
}

type allocationService struct {
	items repository.ItemRepository
}

func NewAllocationService(items repository.ItemRepository) AllocationService {
	return &allocationService{items: items}
}

func (s *allocationService) Allocate(ctx context.Context, productID int64, quantity int, email string) (*models.Order, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "allocation.Allocate")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", productID), attribute.Int("allocation.quantity", quantity))

	if quantity <= 0 {
		metrics.RecordAllocation(metrics.ResultInvalid, 0)
		return nil, appErrors.InvalidQuantityError("Quantity must be greater than zero")
	}

	order, err := s.items.Allocate(ctx, productID, quantity, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")

		switch {
		case errors.Is(err, repository.ErrNotEnoughItems):
			metrics.RecordAllocation(metrics.ResultNotEnoughItems, 0)
			return nil, appErrors.NotEnoughItemsError("Not enough items in stock").WithError(err)
		case errors.Is(err, repository.ErrProductNotFound):
			metrics.RecordAllocation(metrics.ResultUnavailable, 0)
			return nil, appErrors.ProductUnavailableError("Product is not available").WithError(err)
		default:
			metrics.RecordAllocation(metrics.ResultError, 0)
			return nil, appErrors.DatabaseError("Failed to allocate items").WithError(err)
		}
	}

	metrics.RecordAllocation(metrics.ResultSuccess, order.Quantity())
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	middleware.LoggerFromContext(ctx).Info("Items allocated",
		slog.Int64("productId", productID),
		slog.String("orderId", order.ID.String()),
		slog.Int("quantity", order.Quantity()))

	return order, nil
}

// Release returns the order's items to stock. Releasing an order twice frees nothing the second time.
func (s *allocationService) Release(ctx context.Context, orderID uuid.UUID) (int, error) {
	released, err := s.items.Release(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return 0, appErrors.NotFoundError("Order not found").WithError(err)
		}
		return 0, appErrors.DatabaseError("Failed to release order").WithError(err)
	}

	metrics.RecordRelease(released)

	middleware.LoggerFromContext(ctx).Info("Order released",
		slog.String("orderId", orderID.String()),
		slog.Int("released", released))

	return released, nil
}
