package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ecommerce-backend/internal/entity"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// OrderStore persists orders. PlaceOrder must apply the whole draft atomically.
type OrderStore interface {
	PlaceOrder(ctx context.Context, draft entity.OrderDraft) (int64, error)
	GetOrderByID(ctx context.Context, id, userID int64) (*entity.Order, error)
	GetUserOrders(ctx context.Context, userID int64, page entity.PageRequest) ([]entity.Order, int, error)
	GetAllOrders(ctx context.Context, status entity.OrderStatus, page entity.PageRequest) ([]entity.OrderSummary, int, error)
	UpdateOrderStatus(ctx context.Context, id int64, status entity.OrderStatus) (bool, error)
	CancelOrder(ctx context.Context, id, userID int64) (bool, error)
}

// IdempotencyGuard remembers keys of in-flight or completed placements.
type IdempotencyGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher announces order lifecycle changes. Delivery failures never undo a committed order.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, eventType string, order *entity.Order) error
}

const (
	EventOrderPlaced        = "placed"
	EventOrderCancelled     = "cancelled"
	EventOrderStatusChanged = "status_changed"
)

// OrderService is a service that provides order-related operations
type OrderService struct {
	orders    OrderStore
	carts     CartStore
	products  ProductStore
	guard     IdempotencyGuard
	publisher EventPublisher
	paging    Paging
}

// NewOrderService creates a new instance of OrderService. guard and publisher may be nil.
func NewOrderService(orders OrderStore, carts CartStore, products ProductStore, guard IdempotencyGuard, publisher EventPublisher, paging Paging) *OrderService {
	return &OrderService{
		orders:    orders,
		carts:     carts,
		products:  products,
		guard:     guard,
		publisher: publisher,
		paging:    paging,
	}
}

// PlaceOrder turns the user's cart into a pending order.
func (s *OrderService) PlaceOrder(ctx context.Context, userID int64, req entity.PlaceOrderRequest) (*entity.Order, error) {
	address := strings.TrimSpace(req.ShippingAddress)
	if address == "" {
		return nil, &entity.ValidationError{Field: "shipping_address", Message: "Shipping address is required"}
	}
	payment := strings.TrimSpace(req.PaymentMethod)
	if payment == "" {
		payment = entity.DefaultPaymentMethod
	}

	key := ""
	if req.IdempotencyKey != "" && s.guard != nil {
		key = idempotencyKey(userID, req.IdempotencyKey)
		acquired, err := s.guard.Acquire(ctx, key)
		if err != nil {
			logger.Error().Err(err).Msgf("Error checking idempotency key for user %d", userID)
			return nil, &entity.PersistenceError{Op: "place order", Err: err}
		}
		if !acquired {
			logger.Warn().Msgf("Duplicate order request for user %d", userID)
			return nil, entity.ErrDuplicateRequest
		}
	}

	order, committed, err := s.placeOrder(ctx, userID, address, payment)
	if err != nil {
		// Once the order row exists the key must stay claimed, or a retry would place it twice.
		if key != "" && !committed {
			if releaseErr := s.guard.Release(ctx, key); releaseErr != nil {
				logger.Error().Err(releaseErr).Msgf("Error releasing idempotency key for user %d", userID)
			}
		}
		return nil, err
	}

	return order, nil
}

// placeOrder reports committed once the atomic unit has written the order, even if a later step fails.
func (s *OrderService) placeOrder(ctx context.Context, userID int64, address, payment string) (*entity.Order, bool, error) {
	lines, err := s.carts.GetCartLines(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error loading cart of user %d", userID)
		return nil, false, &entity.PersistenceError{Op: "load cart", Err: err}
	}
	if len(lines) == 0 {
		return nil, false, entity.ErrEmptyCart
	}

	// Cart rows can be stale; check each line against the product as it is now.
	for _, line := range lines {
		product, err := s.products.GetProductByID(ctx, line.ProductID)
		if err != nil {
			var notFound *entity.NotFoundError
			if errors.As(err, &notFound) {
				return nil, false, &entity.ProductUnavailableError{ProductID: line.ProductID, Name: line.Name}
			}
			logger.Error().Err(err).Msgf("Error checking product %d", line.ProductID)
			return nil, false, &entity.PersistenceError{Op: "check product", Err: err}
		}
		if product.Stock < line.Quantity {
			logger.Warn().Msgf("Product %d out of stock", line.ProductID)
			return nil, false, &entity.InsufficientStockError{
				ProductID: line.ProductID,
				Name:      line.Name,
				Available: product.Stock,
				Requested: line.Quantity,
			}
		}
	}

	draft := entity.NewOrderDraft(userID, address, payment, lines)
	orderID, err := s.orders.PlaceOrder(ctx, draft)
	if err != nil {
		if entity.IsBusinessError(err) {
			logger.Warn().Err(err).Msgf("Order placement for user %d rejected at write time", userID)
			return nil, false, err
		}
		logger.Error().Err(err).Msgf("Error placing order for user %d", userID)
		return nil, false, &entity.PersistenceError{Op: "place order", Err: err}
	}

	// The order is committed; a cart that fails to clear is only re-validated next time.
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		logger.Error().Err(err).Msgf("Error clearing cart of user %d after order %d", userID, orderID)
	}

	order, err := s.orders.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error reloading order %d, answering from the draft", orderID)
		order = committedOrder(orderID, draft)
	}

	s.publish(ctx, EventOrderPlaced, order)
	logger.Info().Msgf("Order %d placed by user %d, total %s", order.ID, userID, order.TotalAmount.StringFixed(2))
	return order, true, nil
}

// committedOrder rebuilds a just-placed order from its draft when it cannot be read back.
func committedOrder(id int64, draft entity.OrderDraft) *entity.Order {
	now := time.Now().UTC()
	order := &entity.Order{
		ID:              id,
		UserID:          draft.UserID,
		TotalAmount:     draft.Total,
		Status:          entity.OrderStatusPending,
		ShippingAddress: draft.ShippingAddress,
		PaymentMethod:   draft.PaymentMethod,
		Items:           make([]entity.OrderItem, 0, len(draft.Lines)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, line := range draft.Lines {
		order.Items = append(order.Items, entity.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return order
}

// idempotencyKey scopes a client key to its user so different users never collide.
func idempotencyKey(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}

// GetOrder returns an order owned by userID.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID int64) (*entity.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		return nil, storeError("get order", err)
	}
	return order, nil
}

func (s *OrderService) GetUserOrders(ctx context.Context, userID int64, page entity.PageRequest) ([]entity.Order, *entity.Pagination, error) {
	page = s.paging.normalize(page)
	orders, total, err := s.orders.GetUserOrders(ctx, userID, page)
	if err != nil {
		return nil, nil, storeError("list user orders", err)
	}
	return orders, entity.NewPagination(total, page), nil
}

// GetAllOrders is the admin listing; status may be empty.
func (s *OrderService) GetAllOrders(ctx context.Context, status string, page entity.PageRequest) ([]entity.OrderSummary, *entity.Pagination, error) {
	var filter entity.OrderStatus
	if strings.TrimSpace(status) != "" {
		parsed, err := entity.ParseOrderStatus(status)
		if err != nil {
			return nil, nil, err
		}
		filter = parsed
	}

	page = s.paging.normalize(page)
	orders, total, err := s.orders.GetAllOrders(ctx, filter, page)
	if err != nil {
		return nil, nil, storeError("list orders", err)
	}
	return orders, entity.NewPagination(total, page), nil
}

// CancelOrder cancels a pending or confirmed order owned by userID. Stock is not given back.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, userID int64) (*entity.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		return nil, storeError("get order", err)
	}
	if !order.Status.Cancellable() {
		return nil, &entity.InvalidStateError{Action: "cancel", Current: order.Status, Allowed: entity.CancellableStatuses}
	}

	cancelled, err := s.orders.CancelOrder(ctx, orderID, userID)
	if err != nil {
		return nil, storeError("cancel order", err)
	}
	if !cancelled {
		// The status moved between the read and the write.
		current, err := s.orders.GetOrderByID(ctx, orderID, userID)
		if err != nil {
			return nil, storeError("get order", err)
		}
		return nil, &entity.InvalidStateError{Action: "cancel", Current: current.Status, Allowed: entity.CancellableStatuses}
	}

	updated, err := s.orders.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		return nil, storeError("reload order", err)
	}

	s.publish(ctx, EventOrderCancelled, updated)
	logger.Info().Msgf("Order %d cancelled by user %d", orderID, userID)
	return updated, nil
}

// UpdateOrderStatus lets an admin set any of the known statuses, from any current status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*entity.Order, error) {
	newStatus, err := entity.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	found, err := s.orders.UpdateOrderStatus(ctx, orderID, newStatus)
	if err != nil {
		return nil, storeError("update order status", err)
	}
	if !found {
		return nil, &entity.NotFoundError{Entity: "order", ID: orderID}
	}

	order, err := s.orders.GetOrderByID(ctx, orderID, 0)
	if err != nil {
		return nil, storeError("reload order", err)
	}

	s.publish(ctx, EventOrderStatusChanged, order)
	logger.Info().Msgf("Order %d moved to %s", orderID, newStatus)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *entity.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, eventType, order); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for order %d", eventType, order.ID)
	}
}

// storeError passes business rejections through and hides everything else behind a PersistenceError.
func storeError(op string, err error) error {
	if entity.IsBusinessError(err) {
		return err
	}
	logger.Error().Err(err).Msgf("Error during %s", op)
	return &entity.PersistenceError{Op: op, Err: err}
}
