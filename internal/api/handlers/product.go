package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	service "github.com/aaravmahajanofficial/itemstore/internal/services"
	"github.com/aaravmahajanofficial/itemstore/internal/utils"
	"github.com/aaravmahajanofficial/itemstore/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	productService service.ProductService
	ledgerService  service.LedgerService
	validator      *validator.Validate
}

func NewProductHandler(productService service.ProductService, ledgerService service.LedgerService) *ProductHandler {
	return &ProductHandler{productService: productService, ledgerService: ledgerService, validator: validator.New()}
}

// CreateProduct godoc
//
//	@Summary		Create a product with stock
//	@Tags			Products
//	@Accept			json
//	@Produce		json
//	@Param			product	body		models.CreateProductRequest	true	"Product details and initial item quantity"
//	@Success		201		{object}	models.ProductResponse
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		401		{object}	response.ErrorResponse	"Authentication required"
//	@Security		BearerAuth
//	@Router			/products [post]
func (h *ProductHandler) CreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create product input")
			return
		}

		product, err := h.productService.CreateProduct(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to create product", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Product created successfully", slog.Int64("productId", product.ID()))
		response.Success(w, http.StatusCreated, product.Response())
	}
}

// GetProduct godoc
//
//	@Summary		Show a published product
//	@Tags			Products
//	@Produce		json
//	@Param			id	path		int	true	"Product ID"
//	@Success		200	{object}	models.ProductResponse
//	@Failure		404	{object}	response.ErrorResponse	"Unknown, removed or unpublished product"
//	@Router			/products/{id} [get]
func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseInt64ID(r, "id")
		if err != nil {
			logger.Warn("Invalid product id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		product, err := h.productService.GetPublishedProduct(r.Context(), id)
		if err != nil {
			logger.Warn("Product not available", slog.Int64("productId", id), slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, product.Response())
	}
}

// RemoveProduct godoc
//
//	@Summary		Take a product off sale
//	@Description	Deletes the unclaimed items and unpublishes the product. Items already sold stay with their orders.
//	@Tags			Products
//	@Produce		json
//	@Param			id	path		int	true	"Product ID"
//	@Success		200	{object}	models.ProductResponse
//	@Failure		404	{object}	response.ErrorResponse	"Product not found"
//	@Security		BearerAuth
//	@Router			/products/{id} [delete]
func (h *ProductHandler) RemoveProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseInt64ID(r, "id")
		if err != nil {
			logger.Warn("Invalid product id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		product, err := h.productService.RemoveProduct(r.Context(), id)
		if err != nil {
			logger.Error("Failed to remove product", slog.Int64("productId", id), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Product removed", slog.Int64("productId", id))
		response.Success(w, http.StatusOK, product.Response())
	}
}

// AddItems godoc
//
//	@Summary		Restock a product
//	@Description	Adds unclaimed items. A product that went off sale by selling out is back on sale afterwards.
//	@Tags			Products
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Product ID"
//	@Param			items	body		models.AddItemsRequest	true	"Number of items to add"
//	@Success		200		{object}	models.ProductResponse
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		404		{object}	response.ErrorResponse	"Product not found"
//	@Security		BearerAuth
//	@Router			/products/{id}/items [post]
func (h *ProductHandler) AddItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseInt64ID(r, "id")
		if err != nil {
			logger.Warn("Invalid product id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		var req models.AddItemsRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid add items input", slog.Int64("productId", id))
			return
		}

		if err := h.ledgerService.AddItems(r.Context(), id, req.Count); err != nil {
			logger.Error("Failed to add items", slog.Int64("productId", id), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		product, err := h.productService.GetProduct(r.Context(), id)
		if err != nil {
			logger.Error("Failed to load restocked product", slog.Int64("productId", id), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Items added", slog.Int64("productId", id), slog.Int("count", req.Count))
		response.Success(w, http.StatusOK, product.Response())
	}
}

// GetStock godoc
//
//	@Summary		Count unclaimed items
//	@Tags			Products
//	@Produce		json
//	@Param			id	path		int	true	"Product ID"
//	@Success		200	{object}	models.StockResponse
//	@Security		BearerAuth
//	@Router			/products/{id}/items [get]
func (h *ProductHandler) GetStock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseInt64ID(r, "id")
		if err != nil {
			logger.Warn("Invalid product id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		remaining, err := h.ledgerService.ItemsRemaining(r.Context(), id)
		if err != nil {
			logger.Error("Failed to count items", slog.Int64("productId", id), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, models.StockResponse{ProductID: id, ItemsRemaining: remaining})
	}
}
