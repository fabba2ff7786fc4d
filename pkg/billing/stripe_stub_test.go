package billing_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v81"
)

// stripeStub answers the two Stripe endpoints the gateway uses.
type stripeStub struct {
	mu       sync.Mutex
	seq      int
	calls    int
	intents  map[string]int64
	refunded map[string]bool
}

func newStripeStub(t *testing.T) *stripeStub {
	t.Helper()

	stub := &stripeStub{intents: map[string]int64{}, refunded: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/payment_intents", stub.createIntent)
	mux.HandleFunc("POST /v1/refunds", stub.createRefund)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	stripe.SetBackend(stripe.APIBackend, backend)
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, nil) })

	return stub
}

func (s *stripeStub) intentCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func writeStripeError(w http.ResponseWriter, status int, kind, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"type": kind, "code": code, "message": message},
	})
}

func (s *stripeStub) createIntent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	var amount int64
	if _, err := fmt.Sscan(r.PostForm.Get("amount"), &amount); err != nil || amount <= 0 {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid_integer", "invalid amount")
		return
	}

	if r.PostForm.Get("payment_method") == "pm_card_chargeDeclined" {
		writeStripeError(w, http.StatusPaymentRequired, "card_error", "card_declined", "Your card was declined.")
		return
	}

	s.seq++
	id := fmt.Sprintf("pi_stub_%d", s.seq)
	s.intents[id] = amount

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":       id,
		"object":   "payment_intent",
		"amount":   amount,
		"currency": r.PostForm.Get("currency"),
		"status":   "succeeded",
		"created":  time.Now().Unix(),
		"payment_method": map[string]any{
			"id":     "pm_stub",
			"object": "payment_method",
			"type":   "card",
			"card":   map[string]any{"brand": "visa", "last4": "4242"},
		},
	})
}

func (s *stripeStub) createRefund(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "parameter_invalid", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	intentID := r.PostForm.Get("payment_intent")

	amount, ok := s.intents[intentID]
	if !ok {
		writeStripeError(w, http.StatusNotFound, "invalid_request_error", "resource_missing", "No such payment_intent: "+intentID)
		return
	}

	if s.refunded[intentID] {
		writeStripeError(w, http.StatusBadRequest, "invalid_request_error", "charge_already_refunded", "Charge has already been refunded.")
		return
	}
	s.refunded[intentID] = true

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":             "re_" + intentID,
		"object":         "refund",
		"amount":         amount,
		"payment_intent": intentID,
		"status":         "succeeded",
	})
}
