package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/orderflow/orderflow/pkg/saga"
)

// ErrNotFound is returned when an order or saga outcome does not exist.
var ErrNotFound = errors.New("order: not found")

// Store persists orders and the terminal saga event per order.
type Store interface {
	SaveOrder(ctx context.Context, ord Order) error
	GetOrder(ctx context.Context, id string) (Order, error)

	SaveOutcome(ctx context.Context, event saga.Event) error
	GetOutcome(ctx context.Context, orderID string) (saga.Event, error)
}

// MemoryStore is an in-memory Store for tests and the memory storage backend.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]Order
	outcomes map[string]saga.Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[string]Order),
		outcomes: make(map[string]saga.Event),
	}
}

func (s *MemoryStore) SaveOrder(_ context.Context, ord Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[ord.ID] = ord
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ord, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

func (s *MemoryStore) SaveOutcome(_ context.Context, event saga.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[event.SagaID] = event
	return nil
}

func (s *MemoryStore) GetOutcome(_ context.Context, orderID string) (saga.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.outcomes[orderID]
	if !ok {
		return saga.Event{}, ErrNotFound
	}
	return event, nil
}

const (
	orderKeyPrefix   = "order:"
	outcomeKeyPrefix = "order-outcome:"
)

// BadgerStore is a BadgerDB-backed Store.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a store on an open Badger database.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("order: badger db is required")
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) SaveOrder(_ context.Context, ord Order) error {
	data, err := json.Marshal(ord)
	if err != nil {
		return fmt.Errorf("order: marshal order: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(orderKeyPrefix+ord.ID), data)
	})
	if err != nil {
		return fmt.Errorf("order: save order %s: %w", ord.ID, err)
	}
	return nil
}

func (s *BadgerStore) GetOrder(_ context.Context, id string) (Order, error) {
	var ord Order
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(orderKeyPrefix + id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ord)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("order: get order %s: %w", id, err)
	}
	return ord, nil
}

func (s *BadgerStore) SaveOutcome(_ context.Context, event saga.Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("order: marshal outcome: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(outcomeKeyPrefix+event.SagaID), data)
	})
	if err != nil {
		return fmt.Errorf("order: save outcome for %s: %w", event.SagaID, err)
	}
	return nil
}

func (s *BadgerStore) GetOutcome(_ context.Context, orderID string) (saga.Event, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(outcomeKeyPrefix + orderID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return saga.Event{}, ErrNotFound
		}
		return saga.Event{}, fmt.Errorf("order: get outcome for %s: %w", orderID, err)
	}
	return saga.UnmarshalEvent(raw)
}
