// Package eventbus provides the message transport used by the saga
// orchestrator and step services: a Transport abstraction with a retrying
// publisher, and an in-memory topic bus for tests and single-process runs.
package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Message is a delivered topic message.
type Message struct {
	Topic     string
	Payload   []byte
	Timestamp time.Time
}

// Subscription is a live topic subscription.
type Subscription struct {
	pattern string
	ch      chan Message
	bus     *MemoryBus
	once    sync.Once
}

// C returns the read-only message channel.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close removes the subscription and closes its channel.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s.pattern, s.ch)
		close(s.ch)
	})
	return nil
}

// MemoryBus is an in-memory pub/sub transport. Delivery to subscribers
// blocks rather than drops: the saga protocol relies on every published
// transition reaching its consumer.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
}

// NewMemoryBus creates an in-memory topic bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subscribers: make(map[string][]chan Message),
	}
}

// Publish delivers the payload to all matching subscriptions.
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return fmt.Errorf("eventbus: topic cannot be empty")
	}

	b.mu.RLock()
	targets := make([]chan Message, 0)
	for pattern, channels := range b.subscribers {
		if !topicMatches(pattern, topic) {
			continue
		}
		targets = append(targets, channels...)
	}
	b.mu.RUnlock()

	msg := Message{
		Topic:     topic,
		Payload:   append([]byte(nil), payload...),
		Timestamp: time.Now().UTC(),
	}
	for _, ch := range targets {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe subscribes by topic pattern.
func (b *MemoryBus) Subscribe(pattern string, buffer int) (*Subscription, error) {
	if pattern == "" {
		return nil, fmt.Errorf("eventbus: subscription pattern cannot be empty")
	}
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Message, buffer)

	b.mu.Lock()
	b.subscribers[pattern] = append(b.subscribers[pattern], ch)
	b.mu.Unlock()

	return &Subscription{
		pattern: pattern,
		ch:      ch,
		bus:     b,
	}, nil
}

func (b *MemoryBus) unsubscribe(pattern string, target chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	channels := b.subscribers[pattern]
	filtered := channels[:0]
	for _, ch := range channels {
		if ch == target {
			continue
		}
		filtered = append(filtered, ch)
	}
	if len(filtered) == 0 {
		delete(b.subscribers, pattern)
		return
	}
	b.subscribers[pattern] = filtered
}

// topicMatches supports exact, "*" segment, and ">" suffix wildcards.
func topicMatches(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	if strings.HasSuffix(pattern, ".>") {
		prefix := strings.TrimSuffix(pattern, ".>")
		if prefix == "" {
			return true
		}
		return topic == prefix || strings.HasPrefix(topic, prefix+".")
	}

	patternParts := strings.Split(pattern, ".")
	topicParts := strings.Split(topic, ".")
	if len(patternParts) != len(topicParts) {
		return false
	}
	for i := range patternParts {
		if patternParts[i] == "*" {
			continue
		}
		if patternParts[i] != topicParts[i] {
			return false
		}
	}
	return true
}
