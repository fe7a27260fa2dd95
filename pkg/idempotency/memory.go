package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an in-memory idempotency store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Exists checks whether a record exists for the key.
func (s *MemoryStore) Exists(_ context.Context, sagaID, transactionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[Key(sagaID, transactionID)]
	return ok, nil
}

// Get loads one record, ErrNotFound when absent.
func (s *MemoryStore) Get(_ context.Context, sagaID, transactionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[Key(sagaID, transactionID)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *record
	return &clone, nil
}

// Put inserts or updates one record, preserving the original creation time
// on update.
func (s *MemoryStore) Put(_ context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("idempotency: record cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	clone.UpdatedAt = time.Now().UTC()
	if existing, ok := s.records[Key(record.SagaID, record.TransactionID)]; ok {
		clone.CreatedAt = existing.CreatedAt
	}
	s.records[Key(record.SagaID, record.TransactionID)] = &clone
	return nil
}
