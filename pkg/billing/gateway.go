// Package billing defines the charge contract checkout depends on, with a
// Stripe-backed implementation and an in-process fake that behave alike.
package billing

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	ErrInvalidAmount = errors.New("charge amount must be positive")
	ErrPaymentFailed = errors.New("payment failed")
	ErrRefundFailed  = errors.New("refund failed")
)

// Charge is an immutable record of a successful capture.
type Charge struct {
	ID           string    `json:"id"`
	Amount       int64     `json:"amount"`
	CardLastFour string    `json:"card_last_four"`
	CreatedAt    time.Time `json:"created_at"`
}

type Gateway interface {
	// Charge captures amount minor units with token. A non-positive amount fails with
	// ErrInvalidAmount before anything external is contacted; any other failure wraps ErrPaymentFailed.
	Charge(ctx context.Context, amount int64, token string) (Charge, error)
	// Refund reverses a charge created by this gateway. Failures wrap ErrRefundFailed.
	Refund(ctx context.Context, charge Charge) error
	// Charges lists every successful charge made through this gateway, oldest first.
	Charges() []Charge
}

// journal keeps successful charges in creation order.
type journal struct {
	mu      sync.Mutex
	charges []Charge
}

func (j *journal) record(charge Charge) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.charges = append(j.charges, charge)
}

func (j *journal) Charges() []Charge {
	j.mu.Lock()
	defer j.mu.Unlock()

	return slices.Clone(j.charges)
}

// NewChargesDuring runs fn and returns the charges g created while it ran.
func NewChargesDuring(g Gateway, fn func()) []Charge {
	before := len(g.Charges())

	fn()

	after := g.Charges()
	if len(after) <= before {
		return []Charge{}
	}

	return after[before:]
}
