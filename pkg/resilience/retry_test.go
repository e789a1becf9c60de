package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond, 10*time.Millisecond)
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	policy := NewRetryPolicy(5, time.Millisecond, 10*time.Millisecond)
	calls := 0
	base := errors.New("bad request")
	err := policy.Do(context.Background(), func() error {
		calls++
		return Permanent(base)
	})
	if !errors.Is(err, base) {
		t.Fatalf("expected base error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond, 10*time.Millisecond)
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return errors.New("down")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(2, 20*time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("breaker should start closed")
	}
	cb.OnFailure()
	cb.OnFailure()
	if cb.Allow() {
		t.Fatalf("breaker should open after threshold failures")
	}
	time.Sleep(25 * time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("breaker should close after cooldown")
	}
	cb.OnFailure()
	cb.OnSuccess()
	cb.OnFailure()
	if !cb.Allow() {
		t.Fatalf("success must reset the failure count")
	}
}
