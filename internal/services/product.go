package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	repository "github.com/aaravmahajanofficial/itemstore/internal/repositories"
	"github.com/microcosm-cc/bluemonday"
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	// GetProduct returns the model in any state, trashed included.
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetPublishedProduct(ctx context.Context, id int64) (*models.Product, error)
	RemoveProduct(ctx context.Context, id int64) (*models.Product, error)
}

type productService struct {
	products repository.ProductRepository
	ledger   LedgerService
	policy   *bluemonday.Policy
}

func NewProductService(products repository.ProductRepository, ledger LedgerService) ProductService {
	return &productService{products: products, ledger: ledger, policy: bluemonday.StrictPolicy()}
}

func (s *productService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	price, err := models.ParsePrice(req.Price)
	if err != nil {
		return nil, appErrors.ValidationError("Invalid price").WithDetail(err.Error()).WithError(err)
	}

	quantity := 0
	if req.ItemQuantity != nil {
		quantity = *req.ItemQuantity
	}
	if quantity < 0 {
		return nil, appErrors.InvalidQuantityError("Item quantity cannot be negative")
	}

	name := strings.TrimSpace(s.policy.Sanitize(req.Name))
	if name == "" {
		return nil, appErrors.ValidationError("Product name cannot be empty")
	}

	published := req.Published != nil && *req.Published

	model := &models.ProductModel{
		BrandID:     req.BrandID,
		Name:        name,
		Description: s.policy.Sanitize(req.Description),
		Price:       price,
		// A model without stock is listed once its first items arrive.
		Published:       published && quantity > 0,
		AutoUnpublished: published && quantity == 0,
	}

	if err := s.products.CreateProduct(ctx, model, quantity); err != nil {
		return nil, appErrors.DatabaseError("Failed to create product").WithError(err)
	}

	middleware.LoggerFromContext(ctx).Info("Product created",
		slog.Int64("productId", model.ID),
		slog.Int("items", quantity),
		slog.Bool("published", model.Published))

	return models.NewProduct(model, quantity), nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.products.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, appErrors.NotFoundError("Product not found").WithError(err)
		}
		return nil, appErrors.DatabaseError("Failed to fetch product").WithError(err)
	}

	return product, nil
}

func (s *productService) GetPublishedProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrCodeNotFound) {
			return nil, appErrors.ProductUnavailableError("Product is not available").WithError(err)
		}
		return nil, err
	}

	if !product.Published() || product.Model().Trashed() {
		return nil, appErrors.ProductUnavailableError("Product is not available")
	}

	return product, nil
}

// RemoveProduct takes the model off sale. Items already claimed by orders stay with them.
func (s *productService) RemoveProduct(ctx context.Context, id int64) (*models.Product, error) {
	if _, err := s.ledger.RemoveAll(ctx, id); err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, id)
}
