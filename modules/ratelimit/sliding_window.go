// Package ratelimit limits requests per client IP with a Redis-backed
// sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config is a request budget over a window.
type Config struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// slidingWindowScript keeps one sorted-set member per accepted request,
// scored by its timestamp in milliseconds.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local counter_key = KEYS[2]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		local counter = redis.call('INCR', counter_key)
		redis.call('ZADD', key, now, now .. ':' .. counter)
		redis.call('PEXPIRE', key, window_ms)
		redis.call('PEXPIRE', counter_key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = 0
	if #oldest >= 2 then
		retry_after = tonumber(oldest[2]) + window_ms - now
	end
	return {0, 0, retry_after}
`)

// SlidingWindowLimiter counts requests per key in Redis.
type SlidingWindowLimiter struct {
	client redis.UniversalClient
	config Config
	prefix string
	now    func() time.Time
}

// NewSlidingWindowLimiter creates a limiter whose keys start with prefix.
func NewSlidingWindowLimiter(client redis.UniversalClient, config Config, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		config: config,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow records a request for key if the window still has room.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := l.now()
	windowStart := now.Add(-l.config.Window)
	redisKey := l.prefix + key

	values, err := slidingWindowScript.Run(ctx, l.client, []string{redisKey, redisKey + ":counter"},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		l.config.Requests,
		l.config.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected rate limit result length: %d", len(values))
	}

	res := &Result{
		Allowed:   values[0] == 1,
		Remaining: int(values[1]),
		ResetAt:   now.Add(l.config.Window),
	}
	if !res.Allowed && values[2] > 0 {
		res.RetryAfter = time.Duration(values[2]) * time.Millisecond
		res.ResetAt = now.Add(res.RetryAfter)
	}
	return res, nil
}

// Config returns the limiter's budget.
func (l *SlidingWindowLimiter) Config() Config {
	return l.config
}
