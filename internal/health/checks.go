package health

import (
	"context"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/config"
	"github.com/hellofresh/health-go/v5"
	"github.com/hellofresh/health-go/v5/checks/postgres"
	healthRedis "github.com/hellofresh/health-go/v5/checks/redis"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/balance"
)

// Endpoints names the backing services that are actually in use.
// An empty PostgresDSN skips the database check (memory ledger).
type Endpoints struct {
	PostgresDSN string
	RedisDSN    string
	Stripe      bool
}

func NewHealthHandler(cfg *config.Config, endpoints Endpoints) (*health.Health, error) {

	checks := []health.Config{
		{
			Name:      "redis",
			Timeout:   2 * time.Second,
			SkipOnErr: false,
			Check:     healthRedis.New(healthRedis.Config{DSN: endpoints.RedisDSN}),
		},
	}

	if endpoints.PostgresDSN != "" {
		checks = append(checks, health.Config{
			Name:      "database",
			Timeout:   3 * time.Second,
			SkipOnErr: false,
			Check:     postgres.New(postgres.Config{DSN: endpoints.PostgresDSN}),
		})
	}

	// a payment provider outage degrades checkout but not browsing
	if endpoints.Stripe {
		checks = append(checks, health.Config{
			Name:      "stripe",
			Timeout:   5 * time.Second,
			SkipOnErr: true,
			Check:     stripeCheck,
		})
	}

	h, err := health.New(
		health.WithComponent(health.Component{
			Name:    cfg.Otel.ServiceName,
			Version: "1.0.0",
		}),
		health.WithSystemInfo(),
		health.WithChecks(checks...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create health instance: %w", err)
	}

	return h, nil
}

func stripeCheck(ctx context.Context) error {
	params := &stripe.BalanceParams{
		Params: stripe.Params{
			Context: ctx,
		},
	}

	if _, err := balance.Get(params); err != nil {
		return fmt.Errorf("failed to connect to stripe: %w", err)
	}

	return nil
}
