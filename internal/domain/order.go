// internal/domain/order.go
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// AmountScale is the fixed number of fractional digits of every amount.
const AmountScale = 2

// formatAmount renders d with exactly AmountScale fractional digits.
func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// OrderStatus defines the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusPaymentProcessing OrderStatus = "PAYMENT_PROCESSING"
	OrderStatusPaid              OrderStatus = "PAID"
	OrderStatusInventoryReserved OrderStatus = "INVENTORY_RESERVED"
	OrderStatusShipped           OrderStatus = "SHIPPED"
	OrderStatusDelivered         OrderStatus = "DELIVERED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusFailed            OrderStatus = "FAILED"
)

// IsValid reports whether s is one of the known order states.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaymentProcessing, OrderStatusPaid,
		OrderStatusInventoryReserved, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// Order represents a customer order. Owner fields are set once at creation
// from the authenticated identity.
type Order struct {
	ID          string          `db:"id" json:"orderId"`               // UUID, generated at creation
	UserID      int64           `db:"user_id" json:"-"`                // Owner foreign key
	Username    string          `db:"username" json:"username"`        // Owner username, joined from users
	Status      OrderStatus     `db:"status" json:"status"`            // Lifecycle state
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"` // Σ quantity × price, NUMERIC(19, 2) in DB
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`     // Timestamp of creation
	Items       []OrderItem     `db:"-" json:"items"`
}

// OrderItem is a line of an order. Items have no lifecycle of their own.
type OrderItem struct {
	OrderID     string          `db:"order_id" json:"-"`
	ProductID   string          `db:"product_id" json:"productId"`
	ProductName string          `db:"product_name" json:"productName"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
}

// MarshalJSON renders the total with a fixed scale ("50.50", not "50.5").
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		TotalAmount string `json:"totalAmount"`
	}{plain(o), formatAmount(o.TotalAmount)})
}

// MarshalJSON renders the price with a fixed scale.
func (i OrderItem) MarshalJSON() ([]byte, error) {
	type plain OrderItem
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(i), formatAmount(i.Price)})
}

// Subtotal returns quantity × price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrder creates a pending order owned by the given user. The order id is
// freshly generated, items are attached to it and the total is derived from
// them.
func NewOrder(owner *User, items []OrderItem) *Order {
	order := &Order{
		ID:        uuid.NewString(),
		UserID:    owner.ID,
		Username:  owner.Username,
		Status:    OrderStatusPending,
		CreatedAt: time.Now().UTC(),
		Items:     make([]OrderItem, 0, len(items)),
	}
	for _, item := range items {
		item.OrderID = order.ID
		order.Items = append(order.Items, item)
	}
	order.TotalAmount = CalculateTotal(order.Items)
	return order
}

// CalculateTotal sums the subtotals of items using exact decimal arithmetic.
func CalculateTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
