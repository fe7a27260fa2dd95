package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore stores idempotency records in Redis for step services that
// share their bookkeeping across instances. SetNX pins the creation
// timestamp on first write; later Puts overwrite the value in place.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

// RedisStoreConfig configures the Redis-backed store.
type RedisStoreConfig struct {
	// KeyPrefix namespaces the records of one step service.
	KeyPrefix string
	// TTL expires records after the saga is long settled; zero keeps them
	// forever.
	TTL time.Duration
}

// NewRedisStore creates a Redis-backed idempotency store.
func NewRedisStore(client redis.Cmdable, cfg RedisStoreConfig) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("idempotency: redis client cannot be nil")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "idempotency"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
		ttl:       cfg.TTL,
	}, nil
}

// Exists checks whether a record exists for the key.
func (s *RedisStore) Exists(ctx context.Context, sagaID, transactionID string) (bool, error) {
	count, err := s.client.Exists(ctx, s.key(sagaID, transactionID)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: redis exists: %w", err)
	}
	return count > 0, nil
}

// Get loads one record, ErrNotFound when absent.
func (s *RedisStore) Get(ctx context.Context, sagaID, transactionID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(sagaID, transactionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: redis get: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return &record, nil
}

// Put inserts or updates one record. An insert race between two duplicate
// deliveries resolves to whichever SetNX wins; the loser falls through to a
// plain Set carrying the same outcome.
func (s *RedisStore) Put(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("idempotency: record cannot be nil")
	}

	stored := *record
	stored.UpdatedAt = time.Now().UTC()

	key := s.key(record.SagaID, record.TransactionID)
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("idempotency: encode record: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency: redis setnx: %w", err)
	}
	if created {
		return nil
	}

	// Key already present: preserve the stored creation time on update.
	if existing, err := s.Get(ctx, record.SagaID, record.TransactionID); err == nil {
		stored.CreatedAt = existing.CreatedAt
		if data, err = json.Marshal(&stored); err != nil {
			return fmt.Errorf("idempotency: encode record: %w", err)
		}
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) key(sagaID, transactionID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, Key(sagaID, transactionID))
}
