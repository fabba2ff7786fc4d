package service

import (
	"context"
	"errors"

	appErrors "github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/google/uuid"
)

type OrderService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// CancelOrder returns the order's items to stock and reports how many were freed.
	CancelOrder(ctx context.Context, id uuid.UUID) (int, error)
}

type orderService struct {
	orders     repository.OrderRepository
	allocation AllocationService
}

func NewOrderService(orders repository.OrderRepository, allocation AllocationService) OrderService {
	return &orderService{orders: orders, allocation: allocation}
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, appErrors.NotFoundError("Order not found").WithError(err)
		}
		return nil, appErrors.DatabaseError("Failed to fetch order").WithError(err)
	}

	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, id uuid.UUID) (int, error) {
	return s.allocation.Release(ctx, id)
}
