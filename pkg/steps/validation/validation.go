// Package validation implements the product validation saga step.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/orderflow/orderflow/pkg/order"
)

// ErrUnknownProduct is returned when an ordered product is not in the catalog.
var ErrUnknownProduct = fmt.Errorf("validation: product does not exist in catalog")

// Service validates that every product in an order exists in the catalog.
type Service struct {
	mu      sync.RWMutex
	catalog map[string]struct{}
}

// NewService creates a validation service with the given catalog codes.
func NewService(codes ...string) *Service {
	catalog := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		catalog[code] = struct{}{}
	}
	return &Service{catalog: catalog}
}

// AddProduct registers a product code in the catalog.
func (s *Service) AddProduct(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[code] = struct{}{}
}

// KnownProduct reports whether a code exists in the catalog.
func (s *Service) KnownProduct(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.catalog[code]
	return ok
}

// Execute validates the ordered products against the catalog.
func (s *Service) Execute(ctx context.Context, payload json.RawMessage) (string, error) {
	var ord order.Order
	if err := json.Unmarshal(payload, &ord); err != nil {
		return "", fmt.Errorf("validation: decode order: %w", err)
	}

	if len(ord.Products) == 0 {
		return "", fmt.Errorf("validation: product list is empty")
	}
	for _, p := range ord.Products {
		if p.Product.Code == "" {
			return "", fmt.Errorf("validation: product code must be informed")
		}
		if !s.KnownProduct(p.Product.Code) {
			return "", fmt.Errorf("%w: %s", ErrUnknownProduct, p.Product.Code)
		}
	}

	return fmt.Sprintf("products validated successfully for order %s", ord.ID), nil
}

// Compensate has no real side effect to undo. Validation leaves only the
// bookkeeping record kept by the step worker.
func (s *Service) Compensate(ctx context.Context, payload json.RawMessage) (string, error) {
	var ord order.Order
	if err := json.Unmarshal(payload, &ord); err != nil {
		return "", fmt.Errorf("validation: decode order: %w", err)
	}
	return fmt.Sprintf("rollback executed on product validation for order %s", ord.ID), nil
}
