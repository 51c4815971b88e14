// internal/service/order_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"streamcart-orders/internal/auth"
	"streamcart-orders/internal/domain"
	"streamcart-orders/internal/events"
	"streamcart-orders/internal/repository"
	"streamcart-orders/internal/util"
	"streamcart-orders/pkg/db"
)

// priceScale is the number of fractional digits stored for prices.
const priceScale = 2

// Column limits of the orders schema: amounts are NUMERIC(19, 2), product
// ids VARCHAR(100), product names VARCHAR(255).
const (
	maxAmountDigits   = 19 - priceScale
	minPriceExponent  = -18
	maxProductIDLen   = 100
	maxProductNameLen = 255
)

// maxAmount is the smallest value that no longer fits NUMERIC(19, 2).
var maxAmount = decimal.New(1, maxAmountDigits)

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// EventPublisher hands order events to the downstream channel.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event domain.OrderCreatedEvent) *events.Delivery
}

// OrderService defines the interface for order-related business logic.
// Every operation acts on behalf of the given identity.
type OrderService interface {
	CreateOrder(ctx context.Context, identity auth.Identity, items []ItemInput) (*domain.Order, error)
	GetOrder(ctx context.Context, identity auth.Identity, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, identity auth.Identity) ([]domain.Order, error)
}

// orderService implements the OrderService interface.
type orderService struct {
	dbBeginner db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	userRepo   repository.UserRepository
	orderRepo  repository.OrderRepository
	publisher  EventPublisher
	beginTx    db.BeginTxFunc    // Injected dependency for beginning transactions
	commitTx   db.CommitTxFunc   // Injected dependency for committing transactions
	rollbackTx db.RollbackTxFunc // Injected dependency for rolling back transactions
	logger     *slog.Logger
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	publisher EventPublisher,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	logger *slog.Logger,
) OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &orderService{
		dbBeginner: dbBeginner,
		dbExecutor: dbExecutor,
		userRepo:   userRepo,
		orderRepo:  orderRepo,
		publisher:  publisher,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
		logger:     logger.With("component", "order_service"),
	}
}

// CreateOrder persists a new pending order for the caller and emits an
// order-created event once the order is committed. The event outcome never
// affects the returned order.
func (s *orderService) CreateOrder(ctx context.Context, identity auth.Identity, items []ItemInput) (*domain.Order, error) {
	if !identity.IsAuthenticated() {
		return nil, util.ErrUnauthorized
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetUserByUsername(ctx, s.dbExecutor, identity.Subject)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, fmt.Errorf("create order: user %q: %w", identity.Subject, util.ErrUnknownIdentity)
		}
		return nil, fmt.Errorf("create order: failed to resolve owner: %w", err)
	}

	lines := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.OrderItem{
			ProductID:   strings.TrimSpace(item.ProductID),
			ProductName: strings.TrimSpace(item.ProductName),
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	order := domain.NewOrder(owner, lines)

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("create order: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("create order: transaction controller does not implement DBExecutor")
	}

	if err := s.orderRepo.CreateOrder(ctx, txExecutor, order); err != nil {
		return nil, fmt.Errorf("create order: failed to store order: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("create order: failed to commit transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Order created",
		"order_id", order.ID,
		"username", order.Username,
		"total_amount", order.TotalAmount.StringFixed(priceScale),
		"items", len(order.Items),
	)

	if s.publisher != nil {
		s.publisher.PublishOrderCreated(ctx, domain.NewOrderCreatedEvent(order))
	}

	return order, nil
}

// GetOrder returns the order with its items when the caller owns it.
// A missing order and another user's order are reported differently.
func (s *orderService) GetOrder(ctx context.Context, identity auth.Identity, orderID string) (*domain.Order, error) {
	if !identity.IsAuthenticated() {
		return nil, util.ErrUnauthorized
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, util.ErrNotFound
	}

	order, err := s.orderRepo.GetOrderByID(ctx, s.dbExecutor, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}

	if order.Username != identity.Subject {
		s.logger.WarnContext(ctx, "Order access denied",
			"order_id", orderID,
			"username", identity.Subject,
		)
		return nil, util.ErrForbidden
	}

	return order, nil
}

// ListOrders returns the caller's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, identity auth.Identity) ([]domain.Order, error) {
	if !identity.IsAuthenticated() {
		return nil, util.ErrUnauthorized
	}

	orders, err := s.orderRepo.GetOrdersByUsername(ctx, s.dbExecutor, identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

func validateItems(items []ItemInput) error {
	if len(items) == 0 {
		return util.NewValidationError("items", "order must contain at least one item")
	}
	total := decimal.Zero
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case strings.TrimSpace(item.ProductID) == "":
			return util.NewValidationError(field+".productId", "product id is required")
		case utf8.RuneCountInString(item.ProductID) > maxProductIDLen:
			return util.NewValidationError(field+".productId",
				fmt.Sprintf("product id must be at most %d characters", maxProductIDLen))
		case strings.TrimSpace(item.ProductName) == "":
			return util.NewValidationError(field+".productName", "product name is required")
		case utf8.RuneCountInString(item.ProductName) > maxProductNameLen:
			return util.NewValidationError(field+".productName",
				fmt.Sprintf("product name must be at most %d characters", maxProductNameLen))
		case item.Quantity <= 0:
			return util.NewValidationError(field+".quantity", "quantity must be positive")
		case item.Quantity > math.MaxInt32:
			return util.NewValidationError(field+".quantity", "quantity is too large")
		case item.Price.IsNegative():
			return util.NewValidationError(field+".price", "price must not be negative")
		// Exponent bounds come first: rounding a value with an extreme
		// exponent allocates a power of ten of that size.
		case item.Price.Exponent() < minPriceExponent:
			return util.NewValidationError(field+".price",
				fmt.Sprintf("price must have at most %d decimal places", priceScale))
		case item.Price.Exponent() > maxAmountDigits:
			return util.NewValidationError(field+".price", "price is too large")
		case !item.Price.Equal(item.Price.Round(priceScale)):
			return util.NewValidationError(field+".price",
				fmt.Sprintf("price must have at most %d decimal places", priceScale))
		case item.Price.GreaterThanOrEqual(maxAmount):
			return util.NewValidationError(field+".price", "price is too large")
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if total.GreaterThanOrEqual(maxAmount) {
		return util.NewValidationError("items", "order total is too large")
	}
	return nil
}
