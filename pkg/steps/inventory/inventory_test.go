package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/orderflow/orderflow/pkg/order"
)

func encodeOrder(t *testing.T, ord order.Order) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(ord)
	if err != nil {
		t.Fatalf("marshal order: %v", err)
	}
	return data
}

func stockOrder(items map[string]int) order.Order {
	ord := order.Order{ID: "order-1", TransactionID: "tx-1"}
	for code, qty := range items {
		ord.Products = append(ord.Products, order.OrderProduct{
			Product:  order.Product{Code: code, UnitValue: 10},
			Quantity: qty,
		})
	}
	return ord
}

func TestService_Execute(t *testing.T) {
	svc := NewService(map[string]int{"BOOKS": 5, "MOVIES": 3})

	_, err := svc.Execute(context.Background(), encodeOrder(t, stockOrder(map[string]int{"BOOKS": 2, "MOVIES": 3})))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := svc.Stock("BOOKS"); got != 3 {
		t.Errorf("BOOKS stock = %d, want 3", got)
	}
	if got := svc.Stock("MOVIES"); got != 0 {
		t.Errorf("MOVIES stock = %d, want 0", got)
	}

	movements := svc.Movements("order-1", "tx-1")
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %+v", movements)
	}
	for _, m := range movements {
		if m.NewQuantity != m.OldQuantity-m.OrderQuantity {
			t.Errorf("inconsistent movement: %+v", m)
		}
	}
}

func TestService_Execute_InsufficientStock(t *testing.T) {
	svc := NewService(map[string]int{"BOOKS": 5, "MOVIES": 1})

	_, err := svc.Execute(context.Background(), encodeOrder(t, stockOrder(map[string]int{"BOOKS": 2, "MOVIES": 3})))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}

	// The failing line item must not leave partial decrements behind.
	if got := svc.Stock("BOOKS"); got != 5 {
		t.Errorf("BOOKS stock = %d, want untouched 5", got)
	}
	if got := svc.Stock("MOVIES"); got != 1 {
		t.Errorf("MOVIES stock = %d, want untouched 1", got)
	}
	if movements := svc.Movements("order-1", "tx-1"); len(movements) != 0 {
		t.Errorf("failed execution must not record movements: %+v", movements)
	}
}

func TestService_Execute_Rejections(t *testing.T) {
	svc := NewService(nil)
	ctx := context.Background()

	if _, err := svc.Execute(ctx, []byte("not json")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := svc.Execute(ctx, encodeOrder(t, order.Order{ID: "order-1"})); err == nil {
		t.Error("expected error for empty product list")
	}
}

func TestService_Compensate(t *testing.T) {
	svc := NewService(map[string]int{"BOOKS": 5})
	payload := encodeOrder(t, stockOrder(map[string]int{"BOOKS": 4}))

	if _, err := svc.Execute(context.Background(), payload); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := svc.Stock("BOOKS"); got != 1 {
		t.Fatalf("BOOKS stock = %d, want 1", got)
	}

	detail, err := svc.Compensate(context.Background(), payload)
	if err != nil {
		t.Fatalf("Compensate failed: %v", err)
	}
	if !strings.Contains(detail, "restored") {
		t.Errorf("detail should mention the restore: %q", detail)
	}
	if got := svc.Stock("BOOKS"); got != 5 {
		t.Errorf("BOOKS stock = %d, want restored 5", got)
	}
	if movements := svc.Movements("order-1", "tx-1"); len(movements) != 0 {
		t.Errorf("compensation must consume the movements: %+v", movements)
	}
}

func TestService_Compensate_NothingToRestore(t *testing.T) {
	svc := NewService(map[string]int{"BOOKS": 5})

	detail, err := svc.Compensate(context.Background(), encodeOrder(t, stockOrder(map[string]int{"BOOKS": 1})))
	if err != nil {
		t.Fatalf("Compensate must tolerate missing movements: %v", err)
	}
	if !strings.Contains(detail, "no inventory movements") {
		t.Errorf("detail should say nothing was restored: %q", detail)
	}
	if got := svc.Stock("BOOKS"); got != 5 {
		t.Errorf("BOOKS stock = %d, want untouched 5", got)
	}
}

func TestService_SetStock(t *testing.T) {
	svc := NewService(nil)
	svc.SetStock("MUSIC", 9)
	if got := svc.Stock("MUSIC"); got != 9 {
		t.Errorf("MUSIC stock = %d, want 9", got)
	}
	if got := svc.Stock("UNSEEN"); got != 0 {
		t.Errorf("unknown product stock = %d, want 0", got)
	}
}
