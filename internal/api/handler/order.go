// internal/api/handler/order.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"streamcart-orders/internal/auth"
	"streamcart-orders/internal/service"
	"streamcart-orders/internal/util"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	responder
	orders service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		responder: responder{logger: logger},
		orders:    orders,
	}
}

// OrderItemRequest is one line of CreateOrderRequest.
type OrderItemRequest struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// CreateOrderRequest represents the request body for order creation.
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// CreateOrder handles order creation for the caller.
// POST /orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if !identity.IsAuthenticated() {
		h.respondWithError(w, r, util.ErrUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	items := make([]service.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.ItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}

	order, err := h.orders.CreateOrder(r.Context(), identity, items)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, order)
}

// GetOrder returns one of the caller's orders.
// GET /orders/{orderID}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, order)
}

// ListMyOrders returns all of the caller's orders, newest first.
// GET /orders/mine
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, orders)
}
