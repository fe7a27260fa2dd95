package payment

import (
	"context"
	"encoding/json"
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

func testOrder(unitValue float64, quantity int) order.Order {
	return order.Order{
		ID:            "order-1",
		TransactionID: "tx-1",
		Products: []order.OrderProduct{
			{Product: order.Product{Code: "BOOKS", UnitValue: unitValue}, Quantity: quantity},
		},
	}
}

func TestService_Execute(t *testing.T) {
	svc := NewService()

	detail, err := svc.Execute(context.Background(), encodeOrder(t, testOrder(12.5, 2)))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(detail, "25.00") {
		t.Errorf("detail should carry the charged amount: %q", detail)
	}

	rec, ok := svc.Find("order-1", "tx-1")
	if !ok {
		t.Fatal("expected a payment record")
	}
	if rec.Status != StatusSuccess {
		t.Errorf("record status = %s, want SUCCESS", rec.Status)
	}
	if rec.TotalAmount != 25 || rec.TotalItems != 2 {
		t.Errorf("unexpected totals: %+v", rec)
	}
}

func TestService_Execute_BelowMinimum(t *testing.T) {
	svc := NewService()

	_, err := svc.Execute(context.Background(), encodeOrder(t, testOrder(0.01, 1)))
	if err == nil {
		t.Fatal("expected error for amount below the minimum")
	}
	if !strings.Contains(err.Error(), "minimum") {
		t.Errorf("error should mention the minimum: %v", err)
	}
	if _, ok := svc.Find("order-1", "tx-1"); ok {
		t.Error("rejected charge must not leave a record")
	}
}

func TestService_Execute_DecodeError(t *testing.T) {
	svc := NewService()
	if _, err := svc.Execute(context.Background(), []byte("not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestService_Compensate(t *testing.T) {
	svc := NewService()
	payload := encodeOrder(t, testOrder(12.5, 2))

	if _, err := svc.Execute(context.Background(), payload); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	detail, err := svc.Compensate(context.Background(), payload)
	if err != nil {
		t.Fatalf("Compensate failed: %v", err)
	}
	if !strings.Contains(detail, "refunded") {
		t.Errorf("detail should mention the refund: %q", detail)
	}

	rec, ok := svc.Find("order-1", "tx-1")
	if !ok {
		t.Fatal("refund must keep the record")
	}
	if rec.Status != StatusRefunded {
		t.Errorf("record status = %s, want REFUNDED", rec.Status)
	}
}

func TestService_Compensate_NothingToRefund(t *testing.T) {
	svc := NewService()

	detail, err := svc.Compensate(context.Background(), encodeOrder(t, testOrder(12.5, 2)))
	if err != nil {
		t.Fatalf("Compensate must tolerate a missing charge: %v", err)
	}
	if !strings.Contains(detail, "no payment found") {
		t.Errorf("detail should say nothing was refunded: %q", detail)
	}
}

func TestService_TransactionsAreIndependent(t *testing.T) {
	svc := NewService()
	first := testOrder(12.5, 2)
	second := first
	second.TransactionID = "tx-2"

	if _, err := svc.Execute(context.Background(), encodeOrder(t, first)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := svc.Execute(context.Background(), encodeOrder(t, second)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, err := svc.Compensate(context.Background(), encodeOrder(t, first)); err != nil {
		t.Fatalf("Compensate failed: %v", err)
	}

	rec, ok := svc.Find("order-1", "tx-2")
	if !ok || rec.Status != StatusSuccess {
		t.Errorf("refunding one attempt must not touch another: %+v", rec)
	}
}
