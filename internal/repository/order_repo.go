// internal/repository/order_repo.go
package repository

import (
	"context"

	"streamcart-orders/internal/domain"
)

// OrderRepository defines the interface for order data operations.
type OrderRepository interface {
	// CreateOrder inserts the order row and all of its items. Callers pass a
	// transaction so that both land atomically.
	CreateOrder(ctx context.Context, q DBExecutor, order *domain.Order) error
	// GetOrderByID retrieves an order with its owner's username and items.
	GetOrderByID(ctx context.Context, q DBExecutor, id string) (*domain.Order, error)
	// GetOrdersByUsername retrieves all orders owned by the given username,
	// newest first, each with its items.
	GetOrdersByUsername(ctx context.Context, q DBExecutor, username string) ([]domain.Order, error)
}
