package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	balanceKeyPrefix  = "balance:"
	balanceTTL        = 30 * time.Second
	idempotencyKeyTTL = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) GetBalance(ctx context.Context, itemID string) (decimal.Decimal, bool, error) {
	val, err := r.client.Get(ctx, balanceKeyPrefix+itemID).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	balance, err := decimal.NewFromString(val)
	if err != nil {
		// Unparseable cache entry, treat as a miss.
		return decimal.Zero, false, nil
	}

	return balance, true, nil
}

func (r *RedisAdapter) SetBalance(ctx context.Context, itemID string, balance decimal.Decimal) error {
	return r.client.Set(ctx, balanceKeyPrefix+itemID, balance.String(), balanceTTL).Err()
}

func (r *RedisAdapter) InvalidateBalance(ctx context.Context, itemID string) error {
	return r.client.Del(ctx, balanceKeyPrefix+itemID).Err()
}
