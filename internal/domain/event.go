// internal/domain/event.go
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is the notification published for every created order.
type OrderCreatedEvent struct {
	OrderID     string           `json:"orderId"`
	Username    string           `json:"username"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Items       []OrderEventItem `json:"items"`
	Timestamp   time.Time        `json:"timestamp"`
}

// OrderEventItem is an item line inside OrderCreatedEvent.
type OrderEventItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (e OrderCreatedEvent) MarshalJSON() ([]byte, error) {
	type plain OrderCreatedEvent
	return json.Marshal(struct {
		plain
		TotalAmount string `json:"totalAmount"`
	}{plain(e), formatAmount(e.TotalAmount)})
}

func (i OrderEventItem) MarshalJSON() ([]byte, error) {
	type plain OrderEventItem
	return json.Marshal(struct {
		plain
		Price string `json:"price"`
	}{plain(i), formatAmount(i.Price)})
}

// NewOrderCreatedEvent maps a persisted order to its event payload.
func NewOrderCreatedEvent(order *Order) OrderCreatedEvent {
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderEventItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return OrderCreatedEvent{
		OrderID:     order.ID,
		Username:    order.Username,
		TotalAmount: order.TotalAmount,
		Items:       items,
		Timestamp:   time.Now().UTC(),
	}
}
