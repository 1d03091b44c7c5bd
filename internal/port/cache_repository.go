package port

import (
	"context"

	"github.com/shopspring/decimal"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key consumed by an apply that did not commit,
	// so the caller can safely resubmit the same request
	ReleaseIdempotency(ctx context.Context, key string) error

	// GetBalance returns a cached balance; ok is false on a miss
	GetBalance(ctx context.Context, itemID string) (decimal.Decimal, bool, error)

	// SetBalance caches a balance with a short TTL
	SetBalance(ctx context.Context, itemID string, balance decimal.Decimal) error

	// InvalidateBalance drops the cached balance after a durable write
	InvalidateBalance(ctx context.Context, itemID string) error
}
