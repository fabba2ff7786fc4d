package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/models"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/google/uuid"
)

// modelEntry holds one product model and its items. Its mutex is the
// per-model lock every ledger mutation of that model goes through.
type modelEntry struct {
	mu    sync.Mutex
	model models.ProductModel
	items []*models.Item // ascending id
}

// republishIfStocked puts a model the ledger took off sale back on sale once it has stock again.
func (e *modelEntry) republishIfStocked(now time.Time) {
	if e.model.AutoUnpublished && !e.model.Trashed() && e.unclaimed() > 0 {
		e.model.Published = true
		e.model.AutoUnpublished = false
		e.model.UpdatedAt = now
	}
}

func (e *modelEntry) unclaimed() int {
	n := 0
	for _, item := range e.items {
		if !item.Claimed() {
			n++
		}
	}

	return n
}

// Store implements every repository interface in process memory.
// Lock order is entry.mu before s.mu; s.mu is never held while waiting on an entry.
type Store struct {
	mu         sync.RWMutex
	lastModel  int64
	lastItem   int64
	products   map[int64]*modelEntry
	orders     map[uuid.UUID]*models.Order
	orderModel map[uuid.UUID]int64
	carts      map[uuid.UUID][]models.CartLine
}

var (
	_ repository.ProductRepository = (*Store)(nil)
	_ repository.ItemRepository    = (*Store)(nil)
	_ repository.OrderRepository   = (*Store)(nil)
	_ repository.CartRepository    = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		products:   make(map[int64]*modelEntry),
		orders:     make(map[uuid.UUID]*models.Order),
		orderModel: make(map[uuid.UUID]int64),
		carts:      make(map[uuid.UUID][]models.CartLine),
	}
}

// Repository exposes the store through the same aggregate the postgres backend returns.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		Products: s,
		Items:    s,
		Orders:   s,
		Carts:    s,
	}
}

func (s *Store) entry(productID int64) (*modelEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.products[productID]
	if !ok {
		return nil, repository.ErrProductNotFound
	}

	return entry, nil
}

// newItems must be called with s.mu held.
func (s *Store) newItems(productID int64, count int, now time.Time) []*models.Item {
	items := make([]*models.Item, 0, count)
	for range count {
		s.lastItem++
		items = append(items, &models.Item{ID: s.lastItem, ProductID: productID, CreatedAt: now})
	}

	return items
}

func (s *Store) CreateProduct(ctx context.Context, model *models.ProductModel, itemCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastModel++
	model.ID = s.lastModel
	model.CreatedAt = now
	model.UpdatedAt = now

	entry := &modelEntry{model: *model}
	if itemCount > 0 {
		entry.items = s.newItems(model.ID, itemCount, now)
	}
	s.products[model.ID] = entry

	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	model := entry.model

	return models.NewProduct(&model, entry.unclaimed()), nil
}

func (s *Store) CountRemaining(ctx context.Context, productID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	entry, err := s.entry(productID)
	if err != nil {
		// an unknown model has nothing left, matching COUNT(*) over no rows
		return 0, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.unclaimed(), nil
}

func (s *Store) AddItems(ctx context.Context, productID int64, count int) error {
	if count <= 0 {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	entry, err := s.entry(productID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.model.Trashed() {
		return repository.ErrProductNotFound
	}

	now := time.Now().UTC()

	s.mu.Lock()
	items := s.newItems(productID, count, now)
	s.mu.Unlock()

	entry.items = append(entry.items, items...)
	entry.republishIfStocked(now)

	return nil
}

func (s *Store) RemoveAll(ctx context.Context, productID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	entry, err := s.entry(productID)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now().UTC()
	if entry.model.DeletedAt == nil {
		entry.model.DeletedAt = &now
	}
	entry.model.Published = false
	entry.model.AutoUnpublished = false
	entry.model.UpdatedAt = now

	before := len(entry.items)
	entry.items = slices.DeleteFunc(entry.items, func(item *models.Item) bool { return !item.Claimed() })

	return before - len(entry.items), nil
}

func (s *Store) Allocate(ctx context.Context, productID int64, quantity int, email string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := s.entry(productID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.model.Trashed() {
		return nil, repository.ErrProductNotFound
	}

	selected := make([]*models.Item, 0, quantity)
	for _, item := range entry.items {
		if len(selected) == quantity {
			break
		}
		if !item.Claimed() {
			selected = append(selected, item)
		}
	}

	if len(selected) < quantity {
		return nil, repository.ErrNotEnoughItems
	}

	order := &models.Order{
		ID:        uuid.New(),
		ProductID: productID,
		Email:     email,
		Items:     make([]models.Item, 0, quantity),
		CreatedAt: time.Now().UTC(),
	}

	for _, item := range selected {
		orderID := order.ID
		item.OrderID = &orderID
		order.Items = append(order.Items, *item)
	}

	if entry.model.Published && entry.unclaimed() == 0 {
		entry.model.Published = false
		entry.model.AutoUnpublished = true
		entry.model.UpdatedAt = order.CreatedAt
	}

	s.mu.Lock()
	s.orders[order.ID] = order
	s.orderModel[order.ID] = productID
	s.mu.Unlock()

	return copyOrder(order), nil
}

func (s *Store) Release(ctx context.Context, orderID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	productID, ok := s.orderModel[orderID]
	s.mu.RUnlock()

	if !ok {
		return 0, repository.ErrOrderNotFound
	}

	entry, err := s.entry(productID)
	if err != nil {
		return 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.orders[orderID]
	if order.ReleasedAt != nil {
		return 0, nil
	}

	released := 0
	for _, item := range entry.items {
		if item.OrderID != nil && *item.OrderID == orderID {
			item.OrderID = nil
			released++
		}
	}

	if entry.model.Trashed() {
		entry.items = slices.DeleteFunc(entry.items, func(item *models.Item) bool { return !item.Claimed() })
	}

	now := time.Now().UTC()
	order.ReleasedAt = &now
	order.Items = []models.Item{}
	entry.republishIfStocked(now)

	return released, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}

	return copyOrder(order), nil
}

func (s *Store) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lines, ok := s.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}

	return &models.Cart{Lines: slices.Clone(lines)}, nil
}

func (s *Store) SaveCart(ctx context.Context, userID uuid.UUID, cart *models.Cart) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[userID] = slices.Clone(cart.Lines)

	return nil
}

func (s *Store) DeleteCart(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)

	return nil
}

func copyOrder(order *models.Order) *models.Order {
	out := *order
	out.Items = slices.Clone(order.Items)
	if out.Items == nil {
		out.Items = []models.Item{}
	}

	return &out
}
