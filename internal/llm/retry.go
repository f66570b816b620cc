package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Retrying decorates a Client with a provider rate limit and bounded
// exponential backoff. Transient failures (timeout, 5xx, rate limit) are
// retried up to MaxAttempts; permanent failures return immediately.
type Retrying struct {
	inner       Client
	limiter     *rate.Limiter
	maxAttempts int
	minDelay    time.Duration
	maxDelay    time.Duration
	logger      *zap.Logger
}

type RetryOption func(*Retrying)

func WithMaxAttempts(n int) RetryOption {
	return func(r *Retrying) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithRateLimit(perSec int) RetryOption {
	return func(r *Retrying) {
		if perSec > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
		}
	}
}

func WithBackoffWindow(min, max time.Duration) RetryOption {
	return func(r *Retrying) {
		r.minDelay, r.maxDelay = min, max
	}
}

func NewRetrying(inner Client, logger *zap.Logger, opts ...RetryOption) *Retrying {
	r := &Retrying{
		inner:       inner,
		limiter:     rate.NewLimiter(rate.Limit(2), 2),
		maxAttempts: 3,
		minDelay:    500 * time.Millisecond,
		maxDelay:    8 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Complete(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	b := &backoff.Backoff{
		Min:    r.minDelay,
		Max:    r.maxDelay,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		msg, err := r.inner.Complete(ctx, messages, tools)
		if err == nil {
			return msg, nil
		}
		lastErr = err

		if !Transient(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			// The caller's deadline is already gone; another attempt
			// cannot succeed.
			return nil, lastErr
		}
		if attempt == r.maxAttempts {
			break
		}

		delay := b.Duration()
		r.logger.Warn("llm completion failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, lastErr
		}
	}
	return nil, lastErr
}
