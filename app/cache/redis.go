package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if amount > limit - current then
	return {0, current}
end
local used = redis.call('INCRBY', KEYS[1], amount)
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return {1, used}
`)

var releaseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if current <= 0 then
	return 0
end
if amount > current then
	amount = current
end
return redis.call('DECRBY', KEYS[1], amount)
`)

type RedisQuotaGuard struct {
	client redis.UniversalClient
}

func NewRedisQuotaGuard(client redis.UniversalClient) *RedisQuotaGuard {
	return &RedisQuotaGuard{client: client}
}

func (g *RedisQuotaGuard) Reserve(ctx context.Context, key string, amount, limit int64, ttl time.Duration, seed SeedFunc) (int64, bool, error) {
	if amount <= 0 {
		return 0, false, ErrInvalidAmount
	}

	if err := g.ensureSeeded(ctx, key, ttl, seed); err != nil {
		return 0, false, err
	}

	res, err := reserveScript.Run(ctx, g.client, []string{key}, amount, limit, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("reserve quota %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("reserve quota %s: unexpected script reply %v", key, res)
	}

	return res[1], res[0] == 1, nil
}

func (g *RedisQuotaGuard) Release(ctx context.Context, key string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if err := releaseScript.Run(ctx, g.client, []string{key}, amount).Err(); err != nil {
		return fmt.Errorf("release quota %s: %w", key, err)
	}
	return nil
}

// ensureSeeded loads the ledger total into a missing counter. SETNX keeps the
// first writer's value when several requests race on a cold key.
func (g *RedisQuotaGuard) ensureSeeded(ctx context.Context, key string, ttl time.Duration, seed SeedFunc) error {
	exists, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check quota %s: %w", key, err)
	}
	if exists > 0 {
		return nil
	}

	var initial int64
	if seed != nil {
		initial, err = seed(ctx)
		if err != nil {
			return fmt.Errorf("seed quota %s: %w", key, err)
		}
	}

	if err := g.client.SetNX(ctx, key, initial, ttl).Err(); err != nil {
		return fmt.Errorf("seed quota %s: %w", key, err)
	}
	return nil
}
