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
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// ownedOrder loads the order named in the path and checks it was placed with the caller's email.
func (h *OrderHandler) ownedOrder(w http.ResponseWriter, r *http.Request) (*models.Order, bool) {

	logger := middleware.LoggerFromContext(r.Context())

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		logger.Warn("Unauthorized order access attempt: missing user claims")
		response.Error(w, errors.UnauthorizedError("Authentication required"))
		return nil, false
	}

	id, err := utils.ParseUUID(r, "id")
	if err != nil {
		logger.Warn("Invalid order id", slog.String("error", err.Error()))
		response.Error(w, err)
		return nil, false
	}

	order, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		logger.Error("Failed to get order", slog.String("orderId", id.String()), slog.String("error", err.Error()))
		response.Error(w, err)
		return nil, false
	}

	if order.Email != claims.Email {
		logger.Warn("Attempted to access another user's order", slog.String("orderId", id.String()))
		response.Error(w, errors.ForbiddenError("You don't have permission to access this order"))
		return nil, false
	}

	return order, true
}

// GetOrder godoc
//
//	@Summary		Get an order by ID
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path		string	true	"Order ID (UUID)"	Format(uuid)
//	@Success		200	{object}	models.OrderResponse
//	@Failure		400	{object}	response.ErrorResponse	"Invalid order ID format"
//	@Failure		403	{object}	response.ErrorResponse	"Order placed with another email"
//	@Failure		404	{object}	response.ErrorResponse	"Order not found"
//	@Security		BearerAuth
//	@Router			/orders/{id} [get]
func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		order, ok := h.ownedOrder(w, r)
		if !ok {
			return
		}

		response.Success(w, http.StatusOK, order.Response())
	}
}

// CancelOrder godoc
//
//	@Summary		Cancel an order
//	@Description	Returns the order's items to stock. Cancelling twice frees nothing the second time.
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path		string	true	"Order ID (UUID)"	Format(uuid)
//	@Success		200	{object}	map[string]int
//	@Security		BearerAuth
//	@Router			/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		order, ok := h.ownedOrder(w, r)
		if !ok {
			return
		}

		released, err := h.orderService.CancelOrder(r.Context(), order.ID)
		if err != nil {
			logger.Error("Failed to cancel order", slog.String("orderId", order.ID.String()), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		logger.Info("Order cancelled", slog.String("orderId", order.ID.String()), slog.Int("released", released))
		response.Success(w, http.StatusOK, map[string]int{"released": released})
	}
}
