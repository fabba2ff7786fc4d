package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encoded values under string keys with an expiry.
type Cache interface {
	Get(ctx context.Context, key string, value any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Take reads and deletes the key in one step, so only one caller ever observes the value.
	Take(ctx context.Context, key string, value any) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

func Key(prefix string, id string) string {
	return prefix + ":" + id
}

const (
	GuestCartKeyPrefix = "guest_cart"
)
