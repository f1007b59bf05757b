package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// ResilientAnnotator wraps an annotator with resilience patterns from fortify
type ResilientAnnotator struct {
	annotator      Annotator
	circuitBreaker circuitbreaker.CircuitBreaker[[]domain.Token]
	retrier        retry.Retry[[]domain.Token]
	bulkhead       bulkhead.Bulkhead[[]domain.Token]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
	name           string
}

// ResilientConfig holds configuration for the resilient wrapper
type ResilientConfig struct {
	EnableCircuitBreaker bool
	EnableRetry          bool
	EnableBulkhead       bool
	EnableRateLimit      bool

	// MaxAttempts for retry (default: 3)
	MaxAttempts int

	// RetryDelay is the initial backoff (default: 500ms)
	RetryDelay time.Duration

	// MaxConcurrent for bulkhead (default: 8)
	MaxConcurrent int

	// RatePerSecond for rate limiting (default: 20)
	RatePerSecond int

	Logger *slog.Logger
}

// DefaultResilientConfig returns defaults for a remote annotation service
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxAttempts:          3,
		RetryDelay:           500 * time.Millisecond,
		MaxConcurrent:        8,
		RatePerSecond:        20,
	}
}

// NewResilientAnnotator wraps an annotator with resilience patterns
func NewResilientAnnotator(annotator Annotator, cfg ResilientConfig) *ResilientAnnotator {
	ra := &ResilientAnnotator{
		annotator: annotator,
		logger:    cfg.Logger,
		name:      annotator.Name(),
	}

	if cfg.EnableCircuitBreaker {
		ra.circuitBreaker = circuitbreaker.New[[]domain.Token](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				if ra.logger != nil {
					ra.logger.Warn("circuit breaker state change",
						"annotator", ra.name,
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := cfg.RetryDelay
		if delay <= 0 {
			delay = 500 * time.Millisecond
		}
		ra.retrier = retry.New[[]domain.Token](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      10 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 8
		}
		ra.bulkhead = bulkhead.New[[]domain.Token](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 4,
			QueueTimeout:  30 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 20
		}
		ra.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 2,
			Interval: time.Second,
		})
	}

	return ra
}

func (a *ResilientAnnotator) Name() string {
	return a.annotator.Name()
}

// Annotate runs the wrapped annotator through rate limit, bulkhead, retry
// and circuit breaker. Failures keep wrapping domain.ErrAnnotationUnavailable.
func (a *ResilientAnnotator) Annotate(ctx context.Context, text string) ([]domain.Token, error) {
	if a.rateLimit != nil {
		if !a.rateLimit.Allow(ctx, a.name) {
			return nil, fmt.Errorf("%w: rate limit exceeded for %s", domain.ErrAnnotationUnavailable, a.name)
		}
	}

	operation := func(ctx context.Context) ([]domain.Token, error) {
		return a.annotator.Annotate(ctx, text)
	}

	if a.bulkhead != nil {
		operation = func(ctx context.Context) ([]domain.Token, error) {
			return a.bulkhead.Execute(ctx, func(ctx context.Context) ([]domain.Token, error) {
				return a.annotator.Annotate(ctx, text)
			})
		}
	}

	var (
		tokens []domain.Token
		err    error
	)
	switch {
	case a.circuitBreaker != nil && a.retrier != nil:
		tokens, err = a.circuitBreaker.Execute(ctx, func(ctx context.Context) ([]domain.Token, error) {
			return a.retrier.Do(ctx, operation)
		})
	case a.circuitBreaker != nil:
		tokens, err = a.circuitBreaker.Execute(ctx, operation)
	case a.retrier != nil:
		tokens, err = a.retrier.Do(ctx, operation)
	default:
		tokens, err = operation(ctx)
	}

	if err != nil && ctx.Err() == nil && !errors.Is(err, domain.ErrAnnotationUnavailable) {
		err = fmt.Errorf("%w: %v", domain.ErrAnnotationUnavailable, err)
	}
	return tokens, err
}

// Close releases resources held by the wrapper
func (a *ResilientAnnotator) Close() error {
	if a.rateLimit != nil {
		return a.rateLimit.Close()
	}
	return nil
}

var retryableStatus = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// isRetryable retries transient HTTP statuses and network timeouts
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return slices.Contains(retryableStatus, statusErr.StatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
