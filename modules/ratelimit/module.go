package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/example/todo-service/config"
)

// Module owns the Redis connection used for rate limiting.
type Module struct {
	cfg     config.RateLimitConfig
	logger  types.Logger
	client  redis.UniversalClient
	limiter *SlidingWindowLimiter
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the rate limiting module.
func NewModule(cfg config.RateLimitConfig, logger types.Logger) *Module {
	return &Module{cfg: cfg, logger: logger}
}

// NewModuleWithClient creates the module on an existing client.
func NewModuleWithClient(cfg config.RateLimitConfig, client redis.UniversalClient, logger types.Logger) *Module {
	return &Module{cfg: cfg, logger: logger, client: client}
}

func (m *Module) Name() string {
	return "ratelimit"
}

// Start connects to Redis. An unreachable server is logged and requests
// pass unlimited until it comes back.
func (m *Module) Start(ctx context.Context) error {
	if m.cfg.Requests <= 0 || m.cfg.Window <= 0 {
		return fmt.Errorf("invalid rate limit %d per %s", m.cfg.Requests, m.cfg.Window)
	}
	if m.client == nil {
		m.client = redis.NewClient(&redis.Options{Addr: m.cfg.RedisAddr})
	}

	m.limiter = NewSlidingWindowLimiter(m.client, Config{
		Requests: m.cfg.Requests,
		Window:   m.cfg.Window,
	}, m.cfg.KeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.client.Ping(pingCtx).Err(); err != nil {
		m.logger.Warn("Redis unreachable, rate limiting disabled until it recovers",
			"addr", m.cfg.RedisAddr, "error", err)
	} else {
		m.logger.Info("Rate limiting enabled",
			"addr", m.cfg.RedisAddr, "requests", m.cfg.Requests, "window", m.cfg.Window.String())
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Error("Failed to close Redis connection", "error", err)
		}
	}
	m.logger.Info("Rate limiting stopped")
	return nil
}

// Handler returns the fiber middleware. It is nil before Start.
func (m *Module) Handler() fiber.Handler {
	if m.limiter == nil {
		return nil
	}
	return IPRateLimit(m.limiter, m.logger)
}

func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "redis client not initialized"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
			Details: map[string]any{"addr": m.cfg.RedisAddr},
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":     m.cfg.RedisAddr,
			"requests": m.cfg.Requests,
			"window":   m.cfg.Window.String(),
		},
	}
}
