package order

import (
	"context"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/orderflow/orderflow/pkg/saga"
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

func storeUnderTest(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("GetMissingOrder", func(t *testing.T) {
		if _, err := store.GetOrder(ctx, "missing"); err != ErrNotFound {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("SaveGetOrder", func(t *testing.T) {
		ord := Order{
			ID:            "order-1",
			Products:      sampleProducts(),
			CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
			TransactionID: "tx-1",
			TotalAmount:   40.9,
			TotalItems:    3,
		}
		if err := store.SaveOrder(ctx, ord); err != nil {
			t.Fatalf("SaveOrder failed: %v", err)
		}
		got, err := store.GetOrder(ctx, "order-1")
		if err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if got.ID != ord.ID || got.TransactionID != ord.TransactionID || got.TotalItems != ord.TotalItems {
			t.Errorf("order changed across store: %+v", got)
		}
		if len(got.Products) != len(ord.Products) {
			t.Errorf("line items lost: %+v", got.Products)
		}
	})

	t.Run("GetMissingOutcome", func(t *testing.T) {
		if _, err := store.GetOutcome(ctx, "missing"); err != ErrNotFound {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("SaveGetOutcome", func(t *testing.T) {
		event, err := saga.NewEvent("order-2", "tx-2", "payload")
		if err != nil {
			t.Fatalf("NewEvent failed: %v", err)
		}
		event = event.WithOutcome(saga.SourceOrchestrator, saga.StatusSuccess, "saga finished successfully")

		if err := store.SaveOutcome(ctx, event); err != nil {
			t.Fatalf("SaveOutcome failed: %v", err)
		}
		got, err := store.GetOutcome(ctx, "order-2")
		if err != nil {
			t.Fatalf("GetOutcome failed: %v", err)
		}
		if got.Status != saga.StatusSuccess || len(got.History) != 1 {
			t.Errorf("outcome changed across store: %+v", got)
		}
	})

	t.Run("OutcomeOverwrite", func(t *testing.T) {
		first, err := saga.NewEvent("order-3", "tx-3", "payload")
		if err != nil {
			t.Fatalf("NewEvent failed: %v", err)
		}
		if err := store.SaveOutcome(ctx, first.WithOutcome(saga.SourceOrchestrator, saga.StatusFail, "")); err != nil {
			t.Fatalf("SaveOutcome failed: %v", err)
		}
		// A retried saga attempt replaces the recorded outcome.
		second, err := saga.NewEvent("order-3", "tx-4", "payload")
		if err != nil {
			t.Fatalf("NewEvent failed: %v", err)
		}
		if err := store.SaveOutcome(ctx, second.WithOutcome(saga.SourceOrchestrator, saga.StatusSuccess, "")); err != nil {
			t.Fatalf("SaveOutcome failed: %v", err)
		}
		got, err := store.GetOutcome(ctx, "order-3")
		if err != nil {
			t.Fatalf("GetOutcome failed: %v", err)
		}
		if got.Status != saga.StatusSuccess || got.TransactionID != "tx-4" {
			t.Errorf("latest outcome must win: %+v", got)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemoryStore())
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
