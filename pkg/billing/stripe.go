package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
)

// StripeGateway charges through confirmed PaymentIntents. The token is a
// Stripe PaymentMethod id such as "pm_card_visa".
type StripeGateway struct {
	journal

	currency string
}

func NewStripeGateway(apiKey string, currency string) *StripeGateway {
	stripe.Key = apiKey

	return &StripeGateway{currency: currency}
}

func (s *StripeGateway) Charge(ctx context.Context, amount int64, token string) (Charge, error) {
	if amount <= 0 {
		return Charge{}, ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(s.currency),
		PaymentMethod:      stripe.String(token),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.AddExpand("payment_method")

	intent, err := paymentintent.New(params)
	if err != nil {
		return Charge{}, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return Charge{}, fmt.Errorf("%w: payment intent %s is %s", ErrPaymentFailed, intent.ID, intent.Status)
	}

	charge := Charge{
		ID:        intent.ID,
		Amount:    intent.Amount,
		CreatedAt: time.Unix(intent.Created, 0).UTC(),
	}

	if intent.PaymentMethod != nil && intent.PaymentMethod.Card != nil {
		charge.CardLastFour = intent.PaymentMethod.Card.Last4
	}

	s.record(charge)

	return charge, nil
}

func (s *StripeGateway) Refund(ctx context.Context, charge Charge) error {
	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(charge.ID),
		Amount:        stripe.Int64(charge.Amount),
	}

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}

	return nil
}
