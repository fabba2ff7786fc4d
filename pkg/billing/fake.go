package billing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

const (
	FakeValidToken    = "tok_visa"
	FakeDeclinedToken = "tok_chargeDeclined"

	fakeLastFour = "4242"
)

// FakeGateway settles charges in memory. The empty token and FakeDeclinedToken
// are declined; every other token succeeds.
type FakeGateway struct {
	journal

	mu         sync.Mutex
	seq        int
	attempts   int
	failAfter  int
	refunded   map[string]Charge
	known      map[string]Charge
	refundErr  error
	refundLogs []Charge
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		failAfter: -1,
		refunded:  make(map[string]Charge),
		known:     make(map[string]Charge),
	}
}

// FailAfter lets the next n charges succeed and declines every one after them.
// A negative n turns declining off.
func (f *FakeGateway) FailAfter(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failAfter = n
}

// FailRefunds makes every later refund fail with err.
func (f *FakeGateway) FailRefunds(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refundErr = err
}

func (f *FakeGateway) Charge(ctx context.Context, amount int64, token string) (Charge, error) {
	if amount <= 0 {
		return Charge{}, ErrInvalidAmount
	}

	if err := ctx.Err(); err != nil {
		return Charge{}, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts++

	if token == "" || token == FakeDeclinedToken {
		return Charge{}, fmt.Errorf("%w: card declined", ErrPaymentFailed)
	}

	if f.failAfter == 0 {
		return Charge{}, fmt.Errorf("%w: card declined", ErrPaymentFailed)
	}
	if f.failAfter > 0 {
		f.failAfter--
	}

	f.seq++
	charge := Charge{
		ID:           fmt.Sprintf("ch_fake_%d", f.seq),
		Amount:       amount,
		CardLastFour: fakeLastFour,
		CreatedAt:    time.Now().UTC(),
	}

	f.known[charge.ID] = charge
	f.record(charge)

	return charge, nil
}

func (f *FakeGateway) Refund(ctx context.Context, charge Charge) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.refundErr != nil {
		return fmt.Errorf("%w: %w", ErrRefundFailed, f.refundErr)
	}

	if _, ok := f.known[charge.ID]; !ok {
		return fmt.Errorf("%w: unknown charge %q", ErrRefundFailed, charge.ID)
	}

	if _, ok := f.refunded[charge.ID]; ok {
		return fmt.Errorf("%w: charge %q already refunded", ErrRefundFailed, charge.ID)
	}

	f.refunded[charge.ID] = charge
	f.refundLogs = append(f.refundLogs, charge)

	return nil
}

// Attempts counts charge calls that passed amount validation.
func (f *FakeGateway) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.attempts
}

// Refunds lists refunded charges in refund order.
func (f *FakeGateway) Refunds() []Charge {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.refundLogs)
}

// Captured is the sum of all charges minus refunds.
func (f *FakeGateway) Captured() int64 {
	var total int64
	for _, charge := range f.Charges() {
		total += charge.Amount
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, charge := range f.refundLogs {
		total -= charge.Amount
	}

	return total
}
