package resilience

import (
	"context"
	"time"

	"github.com/sells-group/fsbo/internal/config"
)

// Guard combines the retry policy with per-provider breakers. One Guard is
// shared by every service that calls out to a provider.
type Guard struct {
	Retry    RetryConfig
	Breakers *ServiceBreakers
}

// NewGuard builds a Guard from configuration. Zero values fall back to defaults.
func NewGuard(cfg config.ResilienceConfig) *Guard {
	retry := DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	}
	if cfg.MaxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	}
	if cfg.Multiplier > 0 {
		retry.Multiplier = cfg.Multiplier
	}
	if cfg.JitterFraction >= 0 {
		retry.JitterFraction = cfg.JitterFraction
	}

	breaker := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		breaker.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		breaker.ResetTimeout = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	// Only retryable failures count against a provider; a 404 for an
	// unknown address says nothing about provider health.
	breaker.ShouldTrip = IsTransient

	return &Guard{Retry: retry, Breakers: NewServiceBreakers(breaker)}
}

// Call runs fn for provider through its breaker, retrying transient failures.
// An open breaker fails fast and is not retried.
func Call[T any](ctx context.Context, g *Guard, provider, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := g.Retry
	retry.OnRetry = RetryLogger(provider, operation)
	cb := g.Breakers.Get(provider)
	return DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		return ExecuteVal(ctx, cb, fn)
	})
}
