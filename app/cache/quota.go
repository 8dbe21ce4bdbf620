package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidAmount = errors.New("quota amount must be positive")

// SeedFunc returns the authoritative usage for a counter that is not cached yet.
type SeedFunc func(ctx context.Context) (int64, error)

// QuotaGuard performs the atomic check-and-increment that keeps concurrent
// requests from overshooting a monthly limit.
type QuotaGuard interface {
	// Reserve adds amount to the counter when the result stays within limit.
	// used is the counter value after the reservation, or the current value
	// when the reservation is refused.
	Reserve(ctx context.Context, key string, amount, limit int64, ttl time.Duration, seed SeedFunc) (used int64, ok bool, err error)
	// Release gives back a previous reservation. The counter never drops below zero.
	Release(ctx context.Context, key string, amount int64) error
}

// QuotaKey builds the counter key for a user, usage kind and calendar month (YYYY-MM).
func QuotaKey(userID, kind, month string) string {
	return fmt.Sprintf("usage:{%s}:%s:%s", userID, kind, month)
}
