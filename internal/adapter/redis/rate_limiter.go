package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/decept/internal/domain"
)

const rateLimitTTL = 24 * time.Hour

// RateLimiter keeps one counter per user, action and UTC day.
type RateLimiter struct {
	rdb   *goredis.Client
	clock clockwork.Clock
}

func NewRateLimiter(rdb *goredis.Client, clock clockwork.Clock) *RateLimiter {
	return &RateLimiter{rdb: rdb, clock: clock}
}

func (r *RateLimiter) CheckLimit(ctx context.Context, userID string, action domain.RateLimitAction, maxPerDay int) (bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(userID, action)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return false, fmt.Errorf("rate limit counter is corrupt: %w", err)
	}
	return count >= maxPerDay, nil
}

// Increment creates the counter with a TTL on first use; later increments
// leave the TTL untouched.
func (r *RateLimiter) Increment(ctx context.Context, userID string, action domain.RateLimitAction) error {
	key := r.key(userID, action)

	pipe := r.rdb.TxPipeline()
	pipe.SetArgs(ctx, key, 0, goredis.SetArgs{TTL: rateLimitTTL, Mode: "NX"})
	incr := pipe.Incr(ctx, key)

	// Exec reports the SET NX miss first, which would mask an INCR failure.
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("rate limit increment failed: %w", err)
	}
	if err := incr.Err(); err != nil {
		return fmt.Errorf("rate limit increment failed: %w", err)
	}
	return nil
}

func (r *RateLimiter) key(userID string, action domain.RateLimitAction) string {
	return rateLimitKey(userID, action, r.clock.Now().UTC().Format(time.DateOnly))
}
