package cache

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	value     int64
	expiresAt time.Time
}

// MemoryQuotaGuard keeps counters in process memory. It is only safe for a
// single service instance.
type MemoryQuotaGuard struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
}

func NewMemoryQuotaGuard() *MemoryQuotaGuard {
	return &MemoryQuotaGuard{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

func (g *MemoryQuotaGuard) Reserve(ctx context.Context, key string, amount, limit int64, ttl time.Duration, seed SeedFunc) (int64, bool, error) {
	if amount <= 0 {
		return 0, false, ErrInvalidAmount
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	counter, err := g.counterLocked(ctx, key, ttl, seed)
	if err != nil {
		return 0, false, err
	}

	if amount > limit-counter.value {
		return counter.value, false, nil
	}

	counter.value += amount
	return counter.value, true, nil
}

func (g *MemoryQuotaGuard) Release(_ context.Context, key string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	counter, ok := g.counters[key]
	if !ok {
		return nil
	}
	counter.value -= amount
	if counter.value < 0 {
		counter.value = 0
	}
	return nil
}

func (g *MemoryQuotaGuard) counterLocked(ctx context.Context, key string, ttl time.Duration, seed SeedFunc) (*memoryCounter, error) {
	now := g.now()
	if counter, ok := g.counters[key]; ok {
		if counter.expiresAt.IsZero() || now.Before(counter.expiresAt) {
			return counter, nil
		}
		delete(g.counters, key)
	}

	var initial int64
	if seed != nil {
		var err error
		initial, err = seed(ctx)
		if err != nil {
			return nil, err
		}
	}

	counter := &memoryCounter{value: initial}
	if ttl > 0 {
		counter.expiresAt = now.Add(ttl)
	}
	g.counters[key] = counter
	return counter, nil
}
