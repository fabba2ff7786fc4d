package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	"github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	service "github.com/aaravmahajanofficial/itemstore/internal/services"
	"github.com/aaravmahajanofficial/itemstore/internal/utils"
	"github.com/aaravmahajanofficial/itemstore/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: validator.New()}
}

// GetCart godoc
//
//	@Summary		Get the current cart
//	@Description	Returns the guest session cart or, with a bearer token, the user's cart.
//	@Tags			Cart
//	@Produce		json
//	@Success		200	{object}	models.CartResponse
//	@Router			/cart [get]
func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		cc, ok := middleware.CartContextFromContext(r.Context())
		if !ok {
			logger.Warn("Cart requested without a resolved owner")
			response.Error(w, errors.UnauthorizedError("Missing cart owner"))
			return
		}

		cart, err := h.cartService.Get(r.Context(), cc)
		if err != nil {
			logger.Error("Failed to get cart", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart.Response())
	}
}

// AddItem godoc
//
//	@Summary		Add a product to the cart
//	@Description	The stored quantity is capped at the items currently in stock; compare it with the requested quantity.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			item	body		models.AddToCartRequest	true	"Product and quantity"
//	@Success		200		{object}	models.AddToCartResponse
//	@Failure		400		{object}	response.ErrorResponse	"Validation error"
//	@Failure		404		{object}	response.ErrorResponse	"Product not available"
//	@Router			/cart/items [post]
func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		cc, ok := middleware.CartContextFromContext(r.Context())
		if !ok {
			logger.Warn("Cart update without a resolved owner")
			response.Error(w, errors.UnauthorizedError("Missing cart owner"))
			return
		}

		var req models.AddToCartRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid add to cart input")
			return
		}

		cart, stored, err := h.cartService.Add(r.Context(), cc, req.ProductID, req.Quantity)
		if err != nil {
			logger.Error("Failed to add item to cart", slog.Int64("productId", req.ProductID), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		if stored < req.Quantity {
			logger.Info("Cart quantity capped by stock", slog.Int64("productId", req.ProductID), slog.Int("stored", stored))
		}

		response.Success(w, http.StatusOK, models.AddToCartResponse{
			ProductID: req.ProductID,
			Requested: req.Quantity,
			Quantity:  stored,
			Cart:      cart.Response(),
		})
	}
}
