package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	appErrors "github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/metrics"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	"github.com/aaravmahajanofficial/itemstore/pkg/billing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CheckoutService turns a cart into orders. Either every line is charged and allocated or
// nothing is: charges of a failed checkout are refunded and its orders released.
type CheckoutService interface {
	Checkout(ctx context.Context, cart *models.Cart, email, paymentToken string) ([]*models.Order, error)
	// CheckoutCart checks out the stored cart of cc and clears it on success.
	CheckoutCart(ctx context.Context, cc models.CartContext, email, paymentToken string) (*models.CheckoutResponse, error)
}

type checkoutService struct {
	products   ProductService
	allocation AllocationService
	carts      CartService
	gateway    billing.Gateway
	receipts   ReceiptSender
}

// NewCheckoutService builds the coordinator. receipts may be nil.
func NewCheckoutService(products ProductService, allocation AllocationService, carts CartService, gateway billing.Gateway, receipts ReceiptSender) CheckoutService {
	return &checkoutService{
		products:   products,
		allocation: allocation,
		carts:      carts,
		gateway:    gateway,
		receipts:   receipts,
	}
}

type checkoutLine struct {
	line    models.CartLine
	product *models.Product
	amount  int64
}

// settled is a line that has been paid for and allocated.
type settled struct {
	checkoutLine
	charge *billing.Charge
	order  *models.Order
}

func (s *checkoutService) validate(ctx context.Context, cart *models.Cart) ([]checkoutLine, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, appErrors.BadRequestError("Cannot checkout an empty cart")
	}

	lines := make([]checkoutLine, 0, len(cart.Lines))

	for _, line := range cart.Lines {
		if line.Quantity <= 0 {
			return nil, appErrors.InvalidQuantityError("Quantity must be greater than zero").
				WithDetail(fmt.Sprintf("product %d", line.ProductID))
		}

		product, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			if appErrors.HasCode(err, appErrors.ErrCodeNotFound) {
				return nil, appErrors.ProductUnavailableError("Product is not available").
					WithDetail(fmt.Sprintf("product %d", line.ProductID)).WithError(err)
			}
			return nil, err
		}

		if !product.Published() || product.Model().Trashed() {
			return nil, appErrors.ProductUnavailableError("Product is not available").
				WithDetail(fmt.Sprintf("product %d", line.ProductID))
		}

		if product.Price() < 0 {
			return nil, appErrors.InvalidAmountError("Price cannot be negative").
				WithDetail(fmt.Sprintf("product %d", line.ProductID))
		}

		if product.Price() > 0 && int64(line.Quantity) > math.MaxInt64/product.Price() {
			return nil, appErrors.InvalidAmountError("Order amount is too large").
				WithDetail(fmt.Sprintf("product %d", line.ProductID))
		}

		lines = append(lines, checkoutLine{
			line:    line,
			product: product,
			amount:  int64(line.Quantity) * product.Price(),
		})
	}

	return lines, nil
}

func (s *checkoutService) Checkout(ctx context.Context, cart *models.Cart, email, paymentToken string) ([]*models.Order, error) {
	done, err := s.run(ctx, cart, email, paymentToken)
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(done))
	for _, d := range done {
		orders = append(orders, d.order)
	}

	return orders, nil
}

func (s *checkoutService) run(ctx context.Context, cart *models.Cart, email, paymentToken string) ([]settled, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "checkout.Checkout")
	defer span.End()

	logger := middleware.LoggerFromContext(ctx)

	done, err := s.settle(ctx, cart, email, paymentToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		metrics.RecordCheckout(checkoutResult(err))
		logger.Warn("Checkout failed", slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.Int("checkout.orders", len(done)))
	metrics.RecordCheckout(metrics.ResultSuccess)
	logger.Info("Checkout completed", slog.Int("orders", len(done)))

	return done, nil
}

func (s *checkoutService) settle(ctx context.Context, cart *models.Cart, email, paymentToken string) ([]settled, error) {
	lines, err := s.validate(ctx, cart)
	if err != nil {
		return nil, err
	}

	done := make([]settled, 0, len(lines))

	for _, l := range lines {
		var charge *billing.Charge

		// Free lines skip the gateway, which rejects non-positive amounts.
		if l.amount > 0 {
			c, err := s.gateway.Charge(ctx, l.amount, paymentToken)
			if err != nil {
				return nil, s.abort(ctx, done, paymentError(err))
			}
			charge = &c
		}

		order, err := s.allocation.Allocate(ctx, l.line.ProductID, l.line.Quantity, email)
		if err != nil {
			if charge != nil {
				done = append(done, settled{checkoutLine: l, charge: charge})
			}
			return nil, s.abort(ctx, done, err)
		}

		done = append(done, settled{checkoutLine: l, charge: charge, order: order})
	}

	return done, nil
}

// abort undoes every settled line, newest first, and returns cause. When a step of
// the compensation fails the checkout is reported as an internal error carrying both.
func (s *checkoutService) abort(ctx context.Context, done []settled, cause error) error {
	// Compensation must finish even if the caller has gone away.
	ctx = context.WithoutCancel(ctx)
	logger := middleware.LoggerFromContext(ctx)

	var failures []error

	for i := len(done) - 1; i >= 0; i-- {
		d := done[i]

		if d.charge != nil {
			if err := s.gateway.Refund(ctx, *d.charge); err != nil {
				metrics.RecordRefund(metrics.ResultError)
				logger.Error("Failed to refund charge",
					slog.String("chargeId", d.charge.ID),
					slog.Int64("amount", d.charge.Amount),
					slog.String("error", err.Error()))
				failures = append(failures, err)
			} else {
				metrics.RecordRefund(metrics.ResultSuccess)
			}
		}

		if d.order != nil {
			if _, err := s.allocation.Release(ctx, d.order.ID); err != nil {
				logger.Error("Failed to release order",
					slog.String("orderId", d.order.ID.String()),
					slog.String("error", err.Error()))
				failures = append(failures, err)
			}
		}
	}

	if len(failures) > 0 {
		return appErrors.InternalError("Checkout failed and could not be fully reversed").
			WithError(errors.Join(append([]error{cause}, failures...)...))
	}

	return cause
}

func paymentError(err error) error {
	if errors.Is(err, billing.ErrInvalidAmount) {
		return appErrors.InvalidAmountError("Charge amount must be positive").WithError(err)
	}

	return appErrors.PaymentFailedError("Payment failed").WithError(err)
}

func checkoutResult(err error) string {
	switch {
	case appErrors.HasCode(err, appErrors.ErrCodeNotEnoughItems):
		return metrics.ResultNotEnoughItems
	case appErrors.HasCode(err, appErrors.ErrCodeProductUnavailable):
		return metrics.ResultUnavailable
	case appErrors.HasCode(err, appErrors.ErrCodePaymentFailed):
		return metrics.ResultPaymentFailed
	case appErrors.HasCode(err, appErrors.ErrCodeInvalidQuantity),
		appErrors.HasCode(err, appErrors.ErrCodeInvalidAmount),
		appErrors.HasCode(err, appErrors.ErrCodeBadRequest):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

func (s *checkoutService) CheckoutCart(ctx context.Context, cc models.CartContext, email, paymentToken string) (*models.CheckoutResponse, error) {
	cart, err := s.carts.Get(ctx, cc)
	if err != nil {
		return nil, err
	}

	done, err := s.run(ctx, cart, email, paymentToken)
	if err != nil {
		return nil, err
	}

	logger := middleware.LoggerFromContext(ctx)

	if err := s.carts.Clear(ctx, cc); err != nil {
		logger.Error("Failed to clear cart after checkout", slog.String("error", err.Error()))
	}

	resp := &models.CheckoutResponse{Orders: make([]models.OrderResponse, 0, len(done))}
	receipt := make([]ReceiptLine, 0, len(done))

	for _, d := range done {
		resp.Orders = append(resp.Orders, d.order.Response())
		resp.Total += d.amount
		receipt = append(receipt, ReceiptLine{
			OrderID:     d.order.ID.String(),
			ProductName: d.product.Name(),
			Quantity:    d.order.Quantity(),
			Amount:      d.amount,
		})
	}

	if s.receipts != nil {
		if err := s.receipts.SendReceipt(ctx, email, receipt); err != nil {
			logger.Warn("Failed to send receipt", slog.String("email", email), slog.String("error", err.Error()))
		}
	}

	return resp, nil
}
