package gateway

import (
	"context"
	"time"

	"chatcommerce/internal/domain"
)

// RetryConfig bounds gateway calls: a per-attempt timeout and a fixed
// number of retries at a fixed interval. No unbounded polling.
type RetryConfig struct {
	Timeout  time.Duration
	Attempts int
	Interval time.Duration
}

func DefaultRetry() RetryConfig {
	return RetryConfig{
		Timeout:  5 * time.Second,
		Attempts: 3,
		Interval: 2 * time.Second,
	}
}

// Retrying wraps a Gateway with the bounded retry policy. When every
// attempt fails it returns domain.ErrGatewayUnavailable so callers can
// answer "verify manually" without touching session state.
type Retrying struct {
	inner Gateway
	cfg   RetryConfig
	sleep func(time.Duration)
}

func NewRetrying(inner Gateway, cfg RetryConfig) *Retrying {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	return &Retrying{inner: inner, cfg: cfg, sleep: time.Sleep}
}

func (r *Retrying) CheckStatus(ctx context.Context, invoiceID string) (Status, error) {
	for attempt := 0; attempt < r.cfg.Attempts; attempt++ {
		if attempt > 0 {
			r.sleep(r.cfg.Interval)
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		status, err := r.attempt(ctx, invoiceID)
		if err == nil {
			return status, nil
		}
	}
	return "", domain.ErrGatewayUnavailable
}

func (r *Retrying) attempt(ctx context.Context, invoiceID string) (Status, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return r.inner.CheckStatus(ctx, invoiceID)
}
