package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func openTestBadger(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).
		WithLogger(nil).
		WithValueLogFileSize(1 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close badger: %v", err)
		}
	})
	return db
}

// storeUnderTest runs the shared contract against one Store implementation.
func storeUnderTest(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := store.Get(ctx, "saga-missing", "tx-missing"); err != ErrNotFound {
			t.Errorf("got %v, want ErrNotFound", err)
		}
		exists, err := store.Exists(ctx, "saga-missing", "tx-missing")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			t.Error("missing record must not exist")
		}
	})

	t.Run("PutGet", func(t *testing.T) {
		if err := store.Put(ctx, NewRecord("saga-1", "tx-1", true)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		record, err := store.Get(ctx, "saga-1", "tx-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if record.SagaID != "saga-1" || record.TransactionID != "tx-1" || !record.Succeeded {
			t.Errorf("unexpected record: %+v", record)
		}
		exists, err := store.Exists(ctx, "saga-1", "tx-1")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if !exists {
			t.Error("stored record must exist")
		}
	})

	t.Run("UpsertPreservesCreation", func(t *testing.T) {
		if err := store.Put(ctx, NewRecord("saga-2", "tx-2", true)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		original, err := store.Get(ctx, "saga-2", "tx-2")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		time.Sleep(5 * time.Millisecond)
		update := NewRecord("saga-2", "tx-2", false)
		if err := store.Put(ctx, update); err != nil {
			t.Fatalf("update Put failed: %v", err)
		}

		record, err := store.Get(ctx, "saga-2", "tx-2")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if record.Succeeded {
			t.Error("update must flip the succeeded flag")
		}
		if !record.CreatedAt.Equal(original.CreatedAt) {
			t.Errorf("update must preserve creation time: %v != %v", record.CreatedAt, original.CreatedAt)
		}
		if !record.UpdatedAt.After(original.UpdatedAt) {
			t.Errorf("update must advance update time: %v <= %v", record.UpdatedAt, original.UpdatedAt)
		}
	})

	t.Run("NilRecord", func(t *testing.T) {
		if err := store.Put(ctx, nil); err == nil {
			t.Error("expected error for nil record")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Put(ctx, NewRecord("saga-1", "tx-1", true)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	record, err := store.Get(ctx, "saga-1", "tx-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	record.Succeeded = false

	reread, err := store.Get(ctx, "saga-1", "tx-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reread.Succeeded {
		t.Error("mutating a returned record must not change the store")
	}
}

func TestBadgerStore(t *testing.T) {
	store, err := NewBadgerStore(openTestBadger(t))
	if err != nil {
		t.Fatalf("NewBadgerStore failed: %v", err)
	}
	storeUnderTest(t, store)
}

func TestNewBadgerStore_NilDB(t *testing.T) {
	if _, err := NewBadgerStore(nil); err == nil {
		t.Error("expected error for nil db")
	}
}

func TestKey(t *testing.T) {
	if got := Key("saga-1", "tx-1"); got != "saga-1:tx-1" {
		t.Errorf("unexpected key %q", got)
	}
}
