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

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, validator: validator.New()}
}

// Checkout godoc
//
//	@Summary		Check out the current cart
//	@Description	Charges and allocates every cart line. Nothing is kept when any line fails.
//	@Tags			Checkout
//	@Accept			json
//	@Produce		json
//	@Param			checkout	body		models.CheckoutRequest	true	"Receipt email and payment token"
//	@Success		201			{object}	models.CheckoutResponse
//	@Failure		400			{object}	response.ErrorResponse	"Empty cart or invalid quantity"
//	@Failure		402			{object}	response.ErrorResponse	"Payment failed"
//	@Failure		404			{object}	response.ErrorResponse	"Product not available"
//	@Failure		409			{object}	response.ErrorResponse	"Not enough items"
//	@Failure		429			{object}	response.ErrorResponse	"Too many checkout attempts"
//	@Router			/checkout [post]
func (h *CheckoutHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		cc, ok := middleware.CartContextFromContext(r.Context())
		if !ok {
			logger.Warn("Checkout without a resolved owner")
			response.Error(w, errors.UnauthorizedError("Missing cart owner"))
			return
		}

		var req models.CheckoutRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid checkout input")
			return
		}

		result, err := h.checkoutService.CheckoutCart(r.Context(), cc, req.Email, req.PaymentToken)
		if err != nil {
			logger.Warn("Checkout rejected", slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Checkout succeeded", slog.Int("orders", len(result.Orders)), slog.Int64("total", result.Total))
		response.Success(w, http.StatusCreated, result)
	}
}
