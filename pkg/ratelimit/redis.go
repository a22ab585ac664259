package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// admitScript purges expired entries, then either records the call and
// returns -1, or returns the milliseconds until the oldest entry expires.
// Running it as one script keeps check-and-add atomic across replicas.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window)
	return -1
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return window - (now - tonumber(oldest[2]))
`)

// RedisWindow is an Admitter whose windows live in Redis sorted sets, so that
// every replica using the same TMDB key shares one budget.
type RedisWindow struct {
	redis  *redis.Client
	cfg    Config
	logger zerolog.Logger
	clock  clock
}

var _ Admitter = (*RedisWindow)(nil)

// NewRedisWindow creates a Redis-backed admission controller.
func NewRedisWindow(redisClient *redis.Client, cfg Config, logger zerolog.Logger, opts ...Option) *RedisWindow {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisWindow{
		redis:  redisClient,
		cfg:    cfg.normalize(),
		logger: logger,
		clock:  newClock(opts),
	}
}

// Acquire blocks until the shared window has room for one more call.
func (r *RedisWindow) Acquire(ctx context.Context, credential string) error {
	key := RedisKey(credential)
	var waitedSince time.Time

	for {
		now := r.clock.now()
		wait, err := r.tryAdmit(ctx, key, now)
		if err != nil {
			return err
		}
		if wait < 0 {
			admissionAdmittedTotal.WithLabelValues(backendRedis).Inc()
			if !waitedSince.IsZero() {
				admissionWaitSeconds.WithLabelValues(backendRedis).Observe(now.Sub(waitedSince).Seconds())
			}
			return nil
		}

		if waitedSince.IsZero() {
			waitedSince = now
			admissionWaitsTotal.WithLabelValues(backendRedis).Inc()
		}

		wait += r.cfg.SafetyMargin
		r.logger.Debug().
			Str("credential", Fingerprint(credential)).
			Dur("wait", wait).
			Msg("Shared admission window full - waiting")

		if err := r.clock.sleep(ctx, wait); err != nil {
			return fmt.Errorf("wait for admission slot: %w", err)
		}
	}
}

// Used returns the number of admitted calls currently inside the window.
func (r *RedisWindow) Used(ctx context.Context, credential string) (int64, error) {
	now := r.clock.now().UnixMilli()
	min := fmt.Sprintf("(%d", now-r.cfg.Window.Milliseconds())
	n, err := r.redis.ZCount(ctx, RedisKey(credential), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return n, nil
}

// tryAdmit returns a negative duration when the call was admitted.
func (r *RedisWindow) tryAdmit(ctx context.Context, key string, now time.Time) (time.Duration, error) {
	nowMs := now.UnixMilli()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	res, err := admitScript.Run(ctx, r.redis, []string{key},
		nowMs, r.cfg.Window.Milliseconds(), r.cfg.MaxRequests, member).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis admission script: %w", err)
	}
	if res < 0 {
		return -1, nil
	}
	return time.Duration(res) * time.Millisecond, nil
}

// RedisKey returns the sorted-set key holding a credential's window.
func RedisKey(credential string) string {
	if credential == "" {
		return RedisKeyPrefix + defaultCredentialLabel
	}
	return RedisKeyPrefix + hashCredential(credential)
}
