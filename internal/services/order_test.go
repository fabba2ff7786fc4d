package service_test

import (
	"errors"
	"testing"

	appErrors "github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/repositories/mocks"
	service "github.com/aaravmahajanofficial/itemstore/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrderService_GetOrder(t *testing.T) {
	ctx := t.Context()

	t.Run("Success - Quantity derived from items", func(t *testing.T) {
		// Arrange
		f := newFixture(t)
		model := f.model(t, true, 100, 3)
		order, err := f.allocation.Allocate(ctx, model.ID, 2, "buyer@example.com")
		require.NoError(t, err)

		// Act
		got, err := f.orders.GetOrder(ctx, order.ID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, 2, got.Quantity())
		assert.Equal(t, order.ItemIDs(), got.ItemIDs())
	})

	t.Run("Failure - Not found", func(t *testing.T) {
		// Arrange
		f := newFixture(t)

		// Act
		_, err := f.orders.GetOrder(ctx, uuid.New())

		// Assert
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeNotFound))
	})

	t.Run("Failure - Database error", func(t *testing.T) {
		// Arrange
		orders := mocks.NewMockOrderRepository(t)
		svc := service.NewOrderService(orders, nil)
		id := uuid.New()
		orders.On("GetOrderByID", mock.Anything, id).Return(nil, errors.New("boom")).Once()

		// Act
		_, err := svc.GetOrder(ctx, id)

		// Assert
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeDatabaseError))
	})
}

func TestOrderService_CancelOrder(t *testing.T) {
	ctx := t.Context()

	// Arrange
	f := newFixture(t)
	model := f.model(t, true, 100, 3)
	order, err := f.allocation.Allocate(ctx, model.ID, 3, "buyer@example.com")
	require.NoError(t, err)

	// Act
	released, err := f.orders.CancelOrder(ctx, order.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, released)
	assert.Equal(t, 3, f.remaining(t, model.ID))
}
