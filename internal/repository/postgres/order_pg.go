// internal/repository/postgres/order_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"streamcart-orders/internal/domain"
	"streamcart-orders/internal/repository"
	"streamcart-orders/internal/util"
)

const orderColumns = `o.id, o.user_id, u.username, o.status, o.total_amount, o.created_at`

// OrderRepository implements repository.OrderRepository for PostgreSQL.
type OrderRepository struct{}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository() repository.OrderRepository {
	return &OrderRepository{}
}

// CreateOrder inserts the order and its items. It must be given a
// transaction for the two inserts to be atomic.
func (r *OrderRepository) CreateOrder(ctx context.Context, q repository.DBExecutor, order *domain.Order) error {
	query := `INSERT INTO orders (id, user_id, status, total_amount, created_at)
              VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.TotalAmount,
		order.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create order %s: %w", order.ID, err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
                  VALUES ($1, $2, $3, $4, $5)`
	for i, item := range order.Items {
		if _, err := q.ExecContext(ctx, itemQuery,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Price,
		); err != nil {
			return fmt.Errorf("failed to create item %d of order %s: %w", i, order.ID, err)
		}
	}
	return nil
}

// GetOrderByID retrieves an order by its ID using the provided DBExecutor.
func (r *OrderRepository) GetOrderByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Order, error) {
	var order domain.Order
	query := `SELECT ` + orderColumns + `
              FROM orders o JOIN users u ON u.id = o.user_id
              WHERE o.id = $1`
	if err := q.GetContext(ctx, &order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}

	items := []domain.OrderItem{}
	itemQuery := `SELECT order_id, product_id, product_name, quantity, price
                  FROM order_items WHERE order_id = $1 ORDER BY id`
	if err := q.SelectContext(ctx, &items, itemQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get items of order %s: %w", id, err)
	}
	order.Items = items
	return &order, nil
}

// GetOrdersByUsername retrieves the user's orders, newest first.
// Items are loaded with a single query for all returned orders.
func (r *OrderRepository) GetOrdersByUsername(ctx context.Context, q repository.DBExecutor, username string) ([]domain.Order, error) {
	orders := []domain.Order{}
	query := `SELECT ` + orderColumns + `
              FROM orders o JOIN users u ON u.id = o.user_id
              WHERE u.username = $1
              ORDER BY o.created_at DESC, o.id`
	if err := q.SelectContext(ctx, &orders, query, username); err != nil {
		return nil, fmt.Errorf("failed to fetch orders for user '%s': %w", username, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		orders[i].Items = []domain.OrderItem{}
	}

	items := []domain.OrderItem{}
	itemQuery := `SELECT order_id, product_id, product_name, quantity, price
                  FROM order_items WHERE order_id = ANY($1) ORDER BY id`
	if err := q.SelectContext(ctx, &items, itemQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to fetch order items for user '%s': %w", username, err)
	}

	index := make(map[string]int, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
	}
	for _, item := range items {
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return orders, nil
}
