package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatcommerce/internal/domain"
)

type stubGateway struct {
	calls    int
	failures int
	status   Status
}

func (s *stubGateway) CheckStatus(_ context.Context, _ string) (Status, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("connection refused")
	}
	return s.status, nil
}

func newTestRetrying(inner Gateway, attempts int) *Retrying {
	r := NewRetrying(inner, RetryConfig{Attempts: attempts, Interval: time.Second})
	r.sleep = func(time.Duration) {}
	return r
}

func TestRetryingSucceedsFirstAttempt(t *testing.T) {
	stub := &stubGateway{status: StatusSucceeded}
	r := newTestRetrying(stub, 3)
	status, err := r.CheckStatus(context.Background(), "inv-1")
	if err != nil || status != StatusSucceeded {
		t.Fatalf("got %q err=%v", status, err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected 1 call, got %d", stub.calls)
	}
}

func TestRetryingRecoversWithinBudget(t *testing.T) {
	stub := &stubGateway{status: StatusPending, failures: 2}
	r := newTestRetrying(stub, 3)
	status, err := r.CheckStatus(context.Background(), "inv-1")
	if err != nil || status != StatusPending {
		t.Fatalf("got %q err=%v", status, err)
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.calls)
	}
}

func TestRetryingExhaustedReturnsUnavailable(t *testing.T) {
	stub := &stubGateway{failures: 10}
	r := newTestRetrying(stub, 3)
	_, err := r.CheckStatus(context.Background(), "inv-1")
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", stub.calls)
	}
}

func TestRetryingHonorsContextCancellation(t *testing.T) {
	stub := &stubGateway{failures: 10}
	r := newTestRetrying(stub, 5)
	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(time.Duration) { cancel() }
	_, err := r.CheckStatus(ctx, "inv-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
