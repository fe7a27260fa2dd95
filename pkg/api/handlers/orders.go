// Package handlers provides HTTP request handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orderflow/orderflow/pkg/api/middleware"
	"github.com/orderflow/orderflow/pkg/api/response"
	"github.com/orderflow/orderflow/pkg/order"
)

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orders *order.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders *order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrderRequest is the request body for creating an order.
type CreateOrderRequest struct {
	Products []order.OrderProduct `json:"products"`
}

// CreateOrder handles POST /api/v1/orders. It persists the order and starts
// its saga, returning 202 because fulfillment completes asynchronously.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest,
			"invalid request body: "+err.Error(), requestID)
		return
	}

	ord, err := h.orders.Create(r.Context(), req.Products)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed,
			err.Error(), requestID)
		return
	}

	response.JSON(w, http.StatusAccepted, ord)
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	ord, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
				"order not found", requestID)
			return
		}
		response.HandleError(w, err, requestID)
		return
	}

	response.JSON(w, http.StatusOK, ord)
}

// GetSaga handles GET /api/v1/orders/{id}/saga. It returns the terminal
// saga event for the order, including the full history trail.
func (h *OrderHandler) GetSaga(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")

	event, err := h.orders.SagaOutcome(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
				"no finished saga for this order", requestID)
			return
		}
		response.HandleError(w, err, requestID)
		return
	}

	response.JSON(w, http.StatusOK, event)
}
