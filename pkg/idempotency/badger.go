package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const recordKeyPrefix = "idempotency:"

// BadgerStore stores idempotency records in Badger. The get-then-set inside
// one Update transaction gives upsert semantics without clobbering the
// original creation timestamp.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a Badger-backed idempotency store.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("idempotency: badger db cannot be nil")
	}
	return &BadgerStore{db: db}, nil
}

// Exists checks whether a record exists for the key.
func (s *BadgerStore) Exists(ctx context.Context, sagaID, transactionID string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := txn.Get(recordKey(sagaID, transactionID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// Get loads one record, ErrNotFound when absent.
func (s *BadgerStore) Get(ctx context.Context, sagaID, transactionID string) (*Record, error) {
	var record Record
	err := s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := txn.Get(recordKey(sagaID, transactionID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &record) })
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Put inserts or updates one record.
func (s *BadgerStore) Put(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("idempotency: record cannot be nil")
	}

	key := recordKey(record.SagaID, record.TransactionID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		stored := *record
		stored.UpdatedAt = time.Now().UTC()

		if item, err := txn.Get(key); err == nil {
			var previous Record
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &previous) }); err == nil {
				stored.CreatedAt = previous.CreatedAt
			}
		}

		data, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func recordKey(sagaID, transactionID string) []byte {
	return []byte(recordKeyPrefix + Key(sagaID, transactionID))
}
