package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Transport publishes bytes to a topic. MemoryBus satisfies it in-process;
// broker-backed deployments supply their own implementation.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Telemetry records publish pipeline health.
type Telemetry interface {
	RecordPublish(status string)
	RecordRetry()
	SetDegradedMode(active bool)
}

type nopTelemetry struct{}

func (nopTelemetry) RecordPublish(status string) {}
func (nopTelemetry) RecordRetry()                {}
func (nopTelemetry) SetDegradedMode(active bool) {}

// RetryConfig controls retry/backoff behavior for publish attempts.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns the default publish retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2,
	}
}

// Publisher publishes saga envelopes with retry, backoff, and degraded-mode
// tracking. A message handler must not acknowledge its inbound message until
// Publish has returned nil, so a crash mid-handling leads to redelivery
// rather than a lost transition.
type Publisher struct {
	transport Transport
	retry     RetryConfig
	telemetry Telemetry

	mu       sync.Mutex
	degraded bool
}

// NewPublisher creates a publisher over the given transport.
func NewPublisher(transport Transport, retry RetryConfig, telemetry Telemetry) (*Publisher, error) {
	if transport == nil {
		return nil, fmt.Errorf("eventbus: transport cannot be nil")
	}
	if retry.MaxRetries < 0 {
		return nil, fmt.Errorf("eventbus: max retries cannot be negative")
	}
	if retry.InitialBackoff <= 0 || retry.MaxBackoff <= 0 || retry.BackoffFactor < 1 {
		return nil, fmt.Errorf("eventbus: invalid retry config")
	}
	if telemetry == nil {
		telemetry = nopTelemetry{}
	}
	return &Publisher{
		transport: transport,
		retry:     retry,
		telemetry: telemetry,
	}, nil
}

// Publish sends payload to topic, retrying transient transport failures with
// exponential backoff.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	backoff := p.retry.InitialBackoff
	var publishErr error
	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		publishErr = p.transport.Publish(ctx, topic, payload)
		if publishErr == nil {
			p.telemetry.RecordPublish("success")
			p.setDegraded(false)
			return nil
		}
		if attempt == p.retry.MaxRetries {
			break
		}
		p.telemetry.RecordRetry()
		p.setDegraded(true)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, p.retry.MaxBackoff, p.retry.BackoffFactor)
	}

	p.telemetry.RecordPublish("failed")
	p.setDegraded(true)
	return fmt.Errorf("eventbus: publish to %s failed: %w", topic, publishErr)
}

// Degraded reports whether the last publish cycle saw transport failures.
func (p *Publisher) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

func (p *Publisher) setDegraded(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.degraded == active {
		return
	}
	p.degraded = active
	p.telemetry.SetDegradedMode(active)
}

func nextBackoff(current, max time.Duration, factor float64) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}
