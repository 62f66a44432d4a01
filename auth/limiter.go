package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// LOGIN ATTEMPT LIMITER
// =============================================================================

// AttemptLimiter counts failed logins per key.
type AttemptLimiter interface {
	// Allow reports whether another attempt may be made for key.
	Allow(ctx context.Context, key string) bool
	Fail(ctx context.Context, key string)
	Reset(ctx context.Context, key string)
}

// NopLimiter never throttles.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string) bool { return true }
func (NopLimiter) Fail(context.Context, string)       {}
func (NopLimiter) Reset(context.Context, string)      {}

// RedisLimiter keeps one counter per key with INCR + EXPIRE. The window
// starts at the first failure. Redis errors are logged and the attempt is
// allowed.
type RedisLimiter struct {
	rdb         *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

func NewRedisLimiter(rdb *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window, logger: logger}
}

func (l *RedisLimiter) key(k string) string {
	return fmt.Sprintf("rl:login:%s", strings.ToLower(k))
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	cnt, err := l.rdb.Get(ctx, l.key(key)).Int()
	if err == redis.Nil {
		return true
	}
	if err != nil {
		l.logger.Warn("login limiter unavailable, allowing attempt", zap.Error(err))
		return true
	}
	return cnt < l.maxAttempts
}

func (l *RedisLimiter) Fail(ctx context.Context, key string) {
	k := l.key(key)
	cnt, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		l.logger.Warn("login limiter: failed to count attempt", zap.Error(err))
		return
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			l.logger.Warn("login limiter: failed to set window", zap.Error(err))
		}
	}
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) {
	if err := l.rdb.Del(ctx, l.key(key)).Err(); err != nil {
		l.logger.Warn("login limiter: failed to reset", zap.Error(err))
	}
}
