package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// IPRateLimit returns a handler that limits requests by client IP. Redis
// failures let the request through.
func IPRateLimit(limiter *SlidingWindowLimiter, logger types.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()

		result, err := limiter.Allow(c.UserContext(), ip)
		if err != nil {
			logger.Warn("Rate limit check failed", "ip", ip, "error", err)
			return c.Next()
		}

		setRateLimitHeaders(c, result, limiter.Config().Requests)
		if !result.Allowed {
			logger.Debug("Rate limit exceeded", "ip", ip)
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, result *Result, limit int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"success": false,
		"message": fmt.Sprintf("Too many requests. Please retry after %d seconds.", retryAfter),
		"error":   "rate_limited",
	})
}
