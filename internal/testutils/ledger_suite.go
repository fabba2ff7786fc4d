package testutils

import (
	"context"
	"sync"
	"testing"

	"github.com/aaravmahajanofficial/itemstore/internal/models"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CreateModel stores a model with count unclaimed items.
func CreateModel(t *testing.T, repo *repository.Repository, published bool, price int64, count int) *models.ProductModel {
	t.Helper()

	model := &models.ProductModel{
		BrandID:     1,
		Name:        "Model " + uuid.NewString()[:8],
		Description: "test model",
		Published:   published,
		Price:       price,
	}

	require.NoError(t, repo.Products.CreateProduct(context.Background(), model, count))

	return model
}

func remaining(t *testing.T, repo *repository.Repository, productID int64) int {
	t.Helper()

	n, err := repo.Items.CountRemaining(context.Background(), productID)
	require.NoError(t, err)

	return n
}

// RunLedgerSuite checks the ledger and allocation guarantees every backend must provide.
func RunLedgerSuite(t *testing.T, repo *repository.Repository) {
	ctx := context.Background()

	t.Run("AddItems increases remaining", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 2)

		require.NoError(t, repo.Items.AddItems(ctx, model.ID, 3))
		require.NoError(t, repo.Items.AddItems(ctx, model.ID, 0))

		assert.Equal(t, 5, remaining(t, repo, model.ID))
	})

	t.Run("Allocate claims lowest ids first", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 4)

		first, err := repo.Items.Allocate(ctx, model.ID, 2, "a@example.com")
		require.NoError(t, err)
		second, err := repo.Items.Allocate(ctx, model.ID, 2, "b@example.com")
		require.NoError(t, err)

		assert.Equal(t, 2, first.Quantity())
		assert.Less(t, first.ItemIDs()[1], second.ItemIDs()[0])
		assert.Zero(t, remaining(t, repo, model.ID))

		stored, err := repo.Orders.GetOrderByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ItemIDs(), stored.ItemIDs())
		assert.Equal(t, "a@example.com", stored.Email)
	})

	t.Run("Allocate beyond remaining leaves ledger unchanged", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 2)

		order, err := repo.Items.Allocate(ctx, model.ID, 3, "a@example.com")

		require.ErrorIs(t, err, repository.ErrNotEnoughItems)
		assert.Nil(t, order)
		assert.Equal(t, 2, remaining(t, repo, model.ID))
	})

	t.Run("Allocate unknown model", func(t *testing.T) {
		_, err := repo.Items.Allocate(ctx, 987654321, 1, "a@example.com")

		require.ErrorIs(t, err, repository.ErrProductNotFound)
	})

	t.Run("Concurrent allocations never oversell", func(t *testing.T) {
		const stock = 10
		model := CreateModel(t, repo, true, 100, stock)
		quantities := []int{3, 4, 2, 5, 1, 3, 2}

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			orders []*models.Order
		)

		for _, q := range quantities {
			wg.Add(1)
			go func() {
				defer wg.Done()

				order, err := repo.Items.Allocate(ctx, model.ID, q, "race@example.com")
				if err != nil {
					assert.ErrorIs(t, err, repository.ErrNotEnoughItems)
					return
				}

				mu.Lock()
				orders = append(orders, order)
				mu.Unlock()
			}()
		}
		wg.Wait()

		claimed := map[int64]uuid.UUID{}
		total := 0
		for _, order := range orders {
			total += order.Quantity()
			for _, id := range order.ItemIDs() {
				owner, dup := claimed[id]
				assert.False(t, dup, "item %d claimed by %s and %s", id, owner, order.ID)
				claimed[id] = order.ID
			}
		}

		assert.LessOrEqual(t, total, stock)
		assert.Equal(t, stock-total, remaining(t, repo, model.ID))
	})

	t.Run("Release restores remaining", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 5)
		before := remaining(t, repo, model.ID)

		order, err := repo.Items.Allocate(ctx, model.ID, 3, "a@example.com")
		require.NoError(t, err)

		released, err := repo.Items.Release(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, released)
		assert.Equal(t, before, remaining(t, repo, model.ID))

		again, err := repo.Items.Release(ctx, order.ID)
		require.NoError(t, err)
		assert.Zero(t, again)
		assert.Equal(t, before, remaining(t, repo, model.ID))

		stored, err := repo.Orders.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.Quantity())
		assert.NotNil(t, stored.ReleasedAt)
	})

	t.Run("Release unknown order", func(t *testing.T) {
		_, err := repo.Items.Release(ctx, uuid.New())

		require.ErrorIs(t, err, repository.ErrOrderNotFound)
	})

	t.Run("Last allocation unpublishes model", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 1)

		product, err := repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		require.True(t, product.Published())

		_, err = repo.Items.Allocate(ctx, model.ID, 1, "a@example.com")
		require.NoError(t, err)

		product, err = repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		assert.Zero(t, product.ItemsRemaining())
		assert.False(t, product.Published())
	})

	t.Run("Partial allocation keeps model published", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 2)

		_, err := repo.Items.Allocate(ctx, model.ID, 1, "a@example.com")
		require.NoError(t, err)

		product, err := repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		assert.True(t, product.Published())
	})

	t.Run("Restock puts a sold out model back on sale", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 1)

		_, err := repo.Items.Allocate(ctx, model.ID, 1, "a@example.com")
		require.NoError(t, err)

		require.NoError(t, repo.Items.AddItems(ctx, model.ID, 2))

		product, err := repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		assert.True(t, product.Published())
		assert.Equal(t, 2, product.ItemsRemaining())

		order, err := repo.Items.Allocate(ctx, model.ID, 2, "b@example.com")
		require.NoError(t, err)
		assert.Equal(t, 2, order.Quantity())
	})

	t.Run("Release puts a sold out model back on sale", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 2)

		order, err := repo.Items.Allocate(ctx, model.ID, 2, "a@example.com")
		require.NoError(t, err)

		product, err := repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		require.False(t, product.Published())

		_, err = repo.Items.Release(ctx, order.ID)
		require.NoError(t, err)

		product, err = repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		assert.True(t, product.Published())
		assert.Equal(t, 2, product.ItemsRemaining())
	})

	t.Run("Restock keeps a hidden model hidden", func(t *testing.T) {
		model := CreateModel(t, repo, false, 100, 0)

		require.NoError(t, repo.Items.AddItems(ctx, model.ID, 2))

		product, err := repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		assert.False(t, product.Published())
		assert.Equal(t, 2, product.ItemsRemaining())
	})

	t.Run("RemoveAll keeps claimed items", func(t *testing.T) {
		model := CreateModel(t, repo, true, 100, 4)

		order, err := repo.Items.Allocate(ctx, model.ID, 1, "a@example.com")
		require.NoError(t, err)

		removed, err := repo.Items.RemoveAll(ctx, model.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, removed)
		assert.Zero(t, remaining(t, repo, model.ID))

		product, err := repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		assert.True(t, product.Model().Trashed())
		assert.False(t, product.Published())

		stored, err := repo.Orders.GetOrderByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Quantity())

		_, err = repo.Items.Allocate(ctx, model.ID, 1, "b@example.com")
		require.ErrorIs(t, err, repository.ErrProductNotFound)
		require.ErrorIs(t, repo.Items.AddItems(ctx, model.ID, 1), repository.ErrProductNotFound)

		// released units of a trashed model do not come back on sale
		_, err = repo.Items.Release(ctx, order.ID)
		require.NoError(t, err)
		assert.Zero(t, remaining(t, repo, model.ID))

		product, err = repo.Products.GetProduct(ctx, model.ID)
		require.NoError(t, err)
		assert.False(t, product.Published())
	})

	t.Run("Cart save overwrites", func(t *testing.T) {
		userID := uuid.New()
		cart := &models.Cart{Lines: []models.CartLine{{ProductID: 1, Quantity: 2}}}

		require.NoError(t, repo.Carts.SaveCart(ctx, userID, cart))
		require.NoError(t, repo.Carts.SaveCart(ctx, userID, cart))

		stored, err := repo.Carts.GetCartByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, cart.Lines, stored.Lines)

		require.NoError(t, repo.Carts.DeleteCart(ctx, userID))
		_, err = repo.Carts.GetCartByUserID(ctx, userID)
		require.ErrorIs(t, err, repository.ErrCartNotFound)
	})
}
