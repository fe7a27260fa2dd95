package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flakyTransport fails the first n publishes, then succeeds.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transport unavailable")
	}
	return nil
}

type countingTelemetry struct {
	mu        sync.Mutex
	publishes map[string]int
	retries   int
	degraded  []bool
}

func newCountingTelemetry() *countingTelemetry {
	return &countingTelemetry{publishes: make(map[string]int)}
}

func (c *countingTelemetry) RecordPublish(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes[status]++
}

func (c *countingTelemetry) RecordRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries++
}

func (c *countingTelemetry) SetDegradedMode(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.degraded = append(c.degraded, active)
}

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}
}

func TestNewPublisher_Validation(t *testing.T) {
	if _, err := NewPublisher(nil, DefaultRetryConfig(), nil); err == nil {
		t.Error("expected error for nil transport")
	}
	bad := DefaultRetryConfig()
	bad.MaxRetries = -1
	if _, err := NewPublisher(&flakyTransport{}, bad, nil); err == nil {
		t.Error("expected error for negative retries")
	}
	bad = DefaultRetryConfig()
	bad.BackoffFactor = 0.5
	if _, err := NewPublisher(&flakyTransport{}, bad, nil); err == nil {
		t.Error("expected error for backoff factor below 1")
	}
}

func TestPublisher_RetriesTransientFailures(t *testing.T) {
	transport := &flakyTransport{failures: 2}
	telemetry := newCountingTelemetry()
	pub, err := NewPublisher(transport, fastRetryConfig(3), telemetry)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	if err := pub.Publish(context.Background(), "orders.created", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if transport.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", transport.calls)
	}
	if telemetry.retries != 2 {
		t.Errorf("expected 2 retry records, got %d", telemetry.retries)
	}
	if telemetry.publishes["success"] != 1 {
		t.Errorf("expected 1 success record, got %v", telemetry.publishes)
	}
	if pub.Degraded() {
		t.Error("successful publish must clear degraded mode")
	}
}

func TestPublisher_ExhaustedRetries(t *testing.T) {
	transport := &flakyTransport{failures: 100}
	telemetry := newCountingTelemetry()
	pub, err := NewPublisher(transport, fastRetryConfig(2), telemetry)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	if err := pub.Publish(context.Background(), "orders.created", []byte("x")); err == nil {
		t.Fatal("expected publish error after exhausted retries")
	}
	if transport.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", transport.calls)
	}
	if telemetry.publishes["failed"] != 1 {
		t.Errorf("expected 1 failed record, got %v", telemetry.publishes)
	}
	if !pub.Degraded() {
		t.Error("exhausted retries must set degraded mode")
	}

	// Recovery clears the flag.
	transport.mu.Lock()
	transport.failures = 0
	transport.calls = 0
	transport.mu.Unlock()
	if err := pub.Publish(context.Background(), "orders.created", []byte("x")); err != nil {
		t.Fatalf("Publish after recovery failed: %v", err)
	}
	if pub.Degraded() {
		t.Error("recovered publish must clear degraded mode")
	}
}

func TestPublisher_ContextCancelled(t *testing.T) {
	pub, err := NewPublisher(&flakyTransport{failures: 100}, fastRetryConfig(10), nil)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, "orders.created", []byte("x")); err != context.Canceled {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestNextBackoff(t *testing.T) {
	if got := nextBackoff(time.Millisecond, time.Second, 2); got != 2*time.Millisecond {
		t.Errorf("nextBackoff doubled wrong: %v", got)
	}
	if got := nextBackoff(800*time.Millisecond, time.Second, 2); got != time.Second {
		t.Errorf("nextBackoff must cap at max: %v", got)
	}
}
