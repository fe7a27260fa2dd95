// Package inventory implements the stock reservation saga step.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/orderflow/orderflow/pkg/order"
)

// ErrInsufficientStock is returned when an order asks for more units than available.
var ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock")

// Movement records a stock decrement so compensation can restore it.
type Movement struct {
	ProductCode   string    `json:"product_code"`
	OrderQuantity int       `json:"order_quantity"`
	OldQuantity   int       `json:"old_quantity"`
	NewQuantity   int       `json:"new_quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

// Service reserves stock for orders and restores it on compensation.
type Service struct {
	mu        sync.Mutex
	stock     map[string]int
	movements map[string][]Movement
}

// NewService creates an inventory service with the given initial stock.
func NewService(stock map[string]int) *Service {
	s := &Service{
		stock:     make(map[string]int, len(stock)),
		movements: make(map[string][]Movement),
	}
	for code, qty := range stock {
		s.stock[code] = qty
	}
	return s
}

// SetStock sets the available quantity for a product.
func (s *Service) SetStock(code string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[code] = quantity
}

// Stock returns the available quantity for a product.
func (s *Service) Stock(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[code]
}

// Execute decrements stock for every line item, recording the old and new
// quantities per saga transaction. All line items are checked before any
// stock is touched so a failure leaves the inventory untouched.
func (s *Service) Execute(ctx context.Context, payload json.RawMessage) (string, error) {
	var ord order.Order
	if err := json.Unmarshal(payload, &ord); err != nil {
		return "", fmt.Errorf("inventory: decode order: %w", err)
	}
	if len(ord.Products) == 0 {
		return "", fmt.Errorf("inventory: product list is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range ord.Products {
		available := s.stock[p.Product.Code]
		if available < p.Quantity {
			return "", fmt.Errorf("%w: product %s has %d, order needs %d",
				ErrInsufficientStock, p.Product.Code, available, p.Quantity)
		}
	}

	now := time.Now().UTC()
	movements := make([]Movement, 0, len(ord.Products))
	for _, p := range ord.Products {
		old := s.stock[p.Product.Code]
		s.stock[p.Product.Code] = old - p.Quantity
		movements = append(movements, Movement{
			ProductCode:   p.Product.Code,
			OrderQuantity: p.Quantity,
			OldQuantity:   old,
			NewQuantity:   old - p.Quantity,
			CreatedAt:     now,
		})
	}
	s.movements[movementKey(ord.ID, ord.TransactionID)] = movements

	return fmt.Sprintf("inventory updated for order %s (%d products)", ord.ID, len(movements)), nil
}

// Compensate restores the quantities recorded when the stock was decremented.
// Without recorded movements there is nothing to restore.
func (s *Service) Compensate(ctx context.Context, payload json.RawMessage) (string, error) {
	var ord order.Order
	if err := json.Unmarshal(payload, &ord); err != nil {
		return "", fmt.Errorf("inventory: decode order: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := movementKey(ord.ID, ord.TransactionID)
	movements, ok := s.movements[key]
	if !ok {
		return fmt.Sprintf("no inventory movements to restore for order %s", ord.ID), nil
	}

	for _, m := range movements {
		s.stock[m.ProductCode] = m.OldQuantity
	}
	delete(s.movements, key)

	return fmt.Sprintf("inventory restored for order %s (%d products)", ord.ID, len(movements)), nil
}

// Movements returns the recorded movements for an order transaction.
func (s *Service) Movements(orderID, transactionID string) []Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	movements := s.movements[movementKey(orderID, transactionID)]
	out := make([]Movement, len(movements))
	copy(out, movements)
	return out
}

func movementKey(orderID, transactionID string) string {
	return orderID + ":" + transactionID
}
