package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	"github.com/aaravmahajanofficial/itemstore/internal/cache"
	appErrors "github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/metrics"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/google/uuid"
)

// CartService keeps guest carts in the cache under their session and user carts in the database.
type CartService interface {
	Get(ctx context.Context, cc models.CartContext) (*models.Cart, error)
	// Add returns the cart together with the quantity stored for the product afterwards.
	Add(ctx context.Context, cc models.CartContext, productID int64, quantity int) (*models.Cart, int, error)
	Save(ctx context.Context, cc models.CartContext, cart *models.Cart) error
	Clear(ctx context.Context, cc models.CartContext) error
	MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error)
}

type cartService struct {
	carts    repository.CartRepository
	sessions cache.Cache
	products ProductService
	guestTTL time.Duration
}

func NewCartService(carts repository.CartRepository, sessions cache.Cache, products ProductService, guestTTL time.Duration) CartService {
	return &cartService{carts: carts, sessions: sessions, products: products, guestTTL: guestTTL}
}

func guestKey(sessionID string) string {
	return cache.Key(cache.GuestCartKeyPrefix, sessionID)
}

func (s *cartService) Get(ctx context.Context, cc models.CartContext) (*models.Cart, error) {
	if cc.IsGuest() {
		if cc.SessionID == "" {
			return models.NewCart(), nil
		}

		cart := models.NewCart()
		if _, err := s.sessions.Get(ctx, guestKey(cc.SessionID), cart); err != nil {
			return nil, appErrors.InternalError("Failed to load cart").WithError(err)
		}
		return cart, nil
	}

	cart, err := s.carts.GetCartByUserID(ctx, cc.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return models.NewCart(), nil
		}
		return nil, appErrors.DatabaseError("Failed to load cart").WithError(err)
	}

	return cart, nil
}

// sellable is how many units of the product a cart may hold right now.
func (s *cartService) sellable(ctx context.Context, productID int64) (int, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrCodeNotFound) {
			return 0, nil
		}
		return 0, err
	}

	return sellableOf(product), nil
}

func sellableOf(product *models.Product) int {
	if !product.Published() || product.Model().Trashed() {
		return 0
	}

	return product.ItemsRemaining()
}

func (s *cartService) Add(ctx context.Context, cc models.CartContext, productID int64, quantity int) (*models.Cart, int, error) {
	if quantity <= 0 {
		return nil, 0, appErrors.InvalidQuantityError("Quantity must be greater than zero")
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrCodeNotFound) {
			return nil, 0, appErrors.ProductUnavailableError("Product is not available").WithError(err)
		}
		return nil, 0, err
	}

	cart, err := s.Get(ctx, cc)
	if err != nil {
		return nil, 0, err
	}

	stored := cart.Add(productID, quantity, sellableOf(product))

	if err := s.Save(ctx, cc, cart); err != nil {
		return nil, 0, err
	}

	middleware.LoggerFromContext(ctx).Info("Cart updated",
		slog.Int64("productId", productID),
		slog.Int("requested", quantity),
		slog.Int("stored", stored))

	return cart, stored, nil
}

// Save overwrites the stored cart. An empty cart removes the record.
func (s *cartService) Save(ctx context.Context, cc models.CartContext, cart *models.Cart) error {
	if cart == nil || cart.IsEmpty() {
		return s.Clear(ctx, cc)
	}

	if cc.IsGuest() {
		if cc.SessionID == "" {
			return appErrors.BadRequestError("Missing cart session")
		}
		if err := s.sessions.Set(ctx, guestKey(cc.SessionID), cart, s.guestTTL); err != nil {
			return appErrors.InternalError("Failed to save cart").WithError(err)
		}
		return nil
	}

	if err := s.carts.SaveCart(ctx, cc.UserID, cart); err != nil {
		return appErrors.DatabaseError("Failed to save cart").WithError(err)
	}

	return nil
}

func (s *cartService) Clear(ctx context.Context, cc models.CartContext) error {
	if cc.IsGuest() {
		if cc.SessionID == "" {
			return nil
		}
		if err := s.sessions.Delete(ctx, guestKey(cc.SessionID)); err != nil {
			return appErrors.InternalError("Failed to clear cart").WithError(err)
		}
		return nil
	}

	if err := s.carts.DeleteCart(ctx, cc.UserID); err != nil {
		return appErrors.DatabaseError("Failed to clear cart").WithError(err)
	}

	return nil
}

// MergeOnLogin folds the session's guest cart into the user's stored cart.
// The guest cart is taken atomically, so a repeated login merges it at most once.
func (s *cartService) MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error) {
	user := models.UserContext(userID)

	if sessionID == "" {
		return s.Get(ctx, user)
	}

	guest := models.NewCart()
	found, err := s.sessions.Take(ctx, guestKey(sessionID), guest)
	if err != nil {
		return nil, appErrors.InternalError("Failed to load guest cart").WithError(err)
	}

	if !found || guest.IsEmpty() {
		return s.Get(ctx, user)
	}

	cart, err := s.merged(ctx, user, guest)
	if err != nil {
		// Put the guest cart back so the merge can be retried on the next login.
		if restoreErr := s.sessions.Set(ctx, guestKey(sessionID), guest, s.guestTTL); restoreErr != nil {
			err = fmt.Errorf("%w (guest cart lost: %w)", err, restoreErr)
		}
		return nil, err
	}

	metrics.RecordCartMerge()

	middleware.LoggerFromContext(ctx).Info("Guest cart merged",
		slog.String("userId", userID.String()),
		slog.Int("lines", len(cart.Lines)))

	return cart, nil
}

func (s *cartService) merged(ctx context.Context, user models.CartContext, guest *models.Cart) (*models.Cart, error) {
	cart, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}

	remaining := make(map[int64]int)
	for _, c := range []*models.Cart{cart, guest} {
		for _, line := range c.Lines {
			if _, ok := remaining[line.ProductID]; ok {
				continue
			}
			n, err := s.sellable(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			remaining[line.ProductID] = n
		}
	}

	cart.Merge(guest, func(productID int64) int { return remaining[productID] })

	if err := s.Save(ctx, user, cart); err != nil {
		return nil, err
	}

	return cart, nil
}
