package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/cache"
	"github.com/aaravmahajanofficial/itemstore/internal/config"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/aaravmahajanofficial/itemstore/internal/repositories/memory"
	service "github.com/aaravmahajanofficial/itemstore/internal/services"
	"github.com/aaravmahajanofficial/itemstore/internal/testutils"
	"github.com/aaravmahajanofficial/itemstore/pkg/billing"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo       *repository.Repository
	redis      *miniredis.Miniredis
	gateway    *billing.FakeGateway
	receipts   *recordingReceipts
	ledger     service.LedgerService
	allocation service.AllocationService
	products   service.ProductService
	carts      service.CartService
	checkout   service.CheckoutService
	orders     service.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := memory.NewStore().Repository()
	sessions := cache.NewRedisCache(client, config.CacheConfig{DefaultTTL: time.Minute, GuestCartTTL: time.Hour})

	f := &fixture{
		repo:     repo,
		redis:    mr,
		gateway:  billing.NewFakeGateway(),
		receipts: &recordingReceipts{},
	}

	f.ledger = service.NewLedgerService(repo.Items)
	f.allocation = service.NewAllocationService(repo.Items)
	f.products = service.NewProductService(repo.Products, f.ledger)
	f.carts = service.NewCartService(repo.Carts, sessions, f.products, time.Hour)
	f.checkout = service.NewCheckoutService(f.products, f.allocation, f.carts, f.gateway, f.receipts)
	f.orders = service.NewOrderService(repo.Orders, f.allocation)

	return f
}

func (f *fixture) model(t *testing.T, published bool, price int64, count int) *models.ProductModel {
	t.Helper()

	return testutils.CreateModel(t, f.repo, published, price, count)
}

func (f *fixture) remaining(t *testing.T, productID int64) int {
	t.Helper()

	n, err := f.ledger.ItemsRemaining(context.Background(), productID)
	require.NoError(t, err)

	return n
}

func (f *fixture) published(t *testing.T, productID int64) bool {
	t.Helper()

	product, err := f.products.GetProduct(context.Background(), productID)
	require.NoError(t, err)

	return product.Published()
}

type recordingReceipts struct {
	mu    sync.Mutex
	sent  map[string][]service.ReceiptLine
	fails error
}

func (r *recordingReceipts) SendReceipt(ctx context.Context, email string, lines []service.ReceiptLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fails != nil {
		return r.fails
	}
	if r.sent == nil {
		r.sent = make(map[string][]service.ReceiptLine)
	}
	r.sent[email] = lines

	return nil
}

func (r *recordingReceipts) linesFor(email string) []service.ReceiptLine {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sent[email]
}
