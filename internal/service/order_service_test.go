package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/service/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemGuard() *memGuard {
	return &memGuard{keys: map[string]bool{}}
}

func (g *memGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

func (g *memGuard) held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[key]
}

type recordedEvent struct {
	eventType string
	orderID   int64
	status    entity.OrderStatus
}

type recordingPublisher struct {
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, eventType string, order *entity.Order) error {
	p.events = append(p.events, recordedEvent{eventType, order.ID, order.Status})
	return p.err
}

type orderFixture struct {
	store     *servicetest.Store
	orders    *OrderService
	carts     *CartService
	guard     *memGuard
	publisher *recordingPublisher
	userID    int64
	productA  int64
	productB  int64
}

var testPaging = Paging{DefaultPageSize: 10, MaxPageSize: 100}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	store := servicetest.NewStore()
	f := &orderFixture{
		store:     store,
		guard:     newMemGuard(),
		publisher: &recordingPublisher{},
	}
	f.orders = NewOrderService(store, store, store, f.guard, f.publisher, testPaging)
	f.carts = NewCartService(store, store)
	f.userID = store.AddUser("Ann", "ann@example.com", "hash", entity.RoleCustomer)
	f.productA = store.AddProduct("A", "10.00", 5)
	f.productB = store.AddProduct("B", "5.50", 3)
	return f
}

func (f *orderFixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, f.userID, f.productA, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, f.userID, f.productB, 1)
	require.NoError(t, err)
}

func (f *orderFixture) place(t *testing.T) *entity.Order {
	t.Helper()
	f.fillCart(t)
	order, err := f.orders.PlaceOrder(context.Background(), f.userID, entity.PlaceOrderRequest{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	return order
}

func TestPlaceOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	order, err := f.orders.PlaceOrder(ctx, f.userID, entity.PlaceOrderRequest{ShippingAddress: "  1 Main St  "})
	require.NoError(t, err)

	assert.Equal(t, "25.50", order.TotalAmount.StringFixed(2))
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, "1 Main St", order.ShippingAddress)
	assert.Equal(t, entity.DefaultPaymentMethod, order.PaymentMethod)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "10.00", order.Items[0].UnitPrice.StringFixed(2))

	assert.Equal(t, 3, f.store.Product(f.productA).Stock)
	assert.Equal(t, 2, f.store.Product(f.productB).Stock)

	cart, err := f.carts.GetCart(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, EventOrderPlaced, f.publisher.events[0].eventType)
}

func TestPlaceOrderSnapshotsPrice(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	f.store.SetPrice(f.productA, "99.00")

	reloaded, err := f.orders.GetOrder(context.Background(), order.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", reloaded.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "25.50", reloaded.TotalAmount.StringFixed(2))
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.store.SetStock(f.productA, 10)
	_, err := f.carts.AddItem(ctx, f.userID, f.productA, 10)
	require.NoError(t, err)
	f.store.SetStock(f.productA, 2)

	req := entity.PlaceOrderRequest{ShippingAddress: "1 Main St"}
	for i := 0; i < 2; i++ {
		_, err = f.orders.PlaceOrder(ctx, f.userID, req)

		var stockErr *entity.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, "Insufficient stock for 'A'. Available: 2, requested: 10", stockErr.Error())
	}

	assert.Equal(t, 2, f.store.Product(f.productA).Stock)
	assert.Equal(t, 0, f.store.OrderCount())
	count, err := f.carts.ItemCount(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Empty(t, f.publisher.events)
}

func TestPlaceOrderStockDropsBeforeWrite(t *testing.T) {
	f := newOrderFixture(t)
	f.fillCart(t)
	f.store.BeforePlaceOrder = func(s *servicetest.Store) { s.SetStock(f.productB, 0) }

	_, err := f.orders.PlaceOrder(context.Background(), f.userID, entity.PlaceOrderRequest{ShippingAddress: "x"})

	var stockErr *entity.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 5, f.store.Product(f.productA).Stock)
	assert.Equal(t, 0, f.store.OrderCount())
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.PlaceOrder(context.Background(), f.userID, entity.PlaceOrderRequest{ShippingAddress: "x"})
	assert.ErrorIs(t, err, entity.ErrEmptyCart)
}

func TestPlaceOrderRequiresAddress(t *testing.T) {
	f := newOrderFixture(t)
	f.fillCart(t)

	_, err := f.orders.PlaceOrder(context.Background(), f.userID, entity.PlaceOrderRequest{ShippingAddress: "   "})

	var validation *entity.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "shipping_address", validation.Field)
}

func TestPlaceOrderDeactivatedProduct(t *testing.T) {
	f := newOrderFixture(t)
	f.fillCart(t)
	inactive := false
	require.NoError(t, f.store.UpdateProduct(context.Background(), f.productB, entity.ProductPatch{IsActive: &inactive}))

	_, err := f.orders.PlaceOrder(context.Background(), f.userID, entity.PlaceOrderRequest{ShippingAddress: "x"})

	var unavailable *entity.ProductUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "B", unavailable.Name)
	assert.Equal(t, 5, f.store.Product(f.productA).Stock)
}

func TestPlaceOrderStorageFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.fillCart(t)
	f.store.PlaceOrderErr = errors.New("connection reset")

	_, err := f.orders.PlaceOrder(context.Background(), f.userID, entity.PlaceOrderRequest{ShippingAddress: "x"})

	var persistence *entity.PersistenceError
	require.True(t, errors.As(err, &persistence))
	assert.NotContains(t, err.Error(), "connection reset")
}

func TestPlaceOrderSurvivesCartClearFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.fillCart(t)
	f.store.ClearCartErr = errors.New("timeout")

	order, err := f.orders.PlaceOrder(context.Background(), f.userID, entity.PlaceOrderRequest{ShippingAddress: "x"})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestPlaceOrderSurvivesPublishFailure(t *testing.T) {
	f := newOrderFixture(t)
	f.publisher.err = errors.New("broker down")

	order := f.place(t)
	assert.NotZero(t, order.ID)
}

func TestPlaceOrderIdempotencyKey(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	req := entity.PlaceOrderRequest{ShippingAddress: "x", IdempotencyKey: "k1"}

	_, err := f.orders.PlaceOrder(ctx, f.userID, req)
	require.NoError(t, err)
	assert.True(t, f.guard.held(idempotencyKey(f.userID, "k1")))

	f.fillCart(t)
	_, err = f.orders.PlaceOrder(ctx, f.userID, req)
	assert.ErrorIs(t, err, entity.ErrDuplicateRequest)
	assert.Equal(t, 1, f.store.OrderCount())
}

func TestPlaceOrderReleasesKeyOnFailure(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	req := entity.PlaceOrderRequest{ShippingAddress: "x", IdempotencyKey: "k2"}

	_, err := f.orders.PlaceOrder(ctx, f.userID, req)
	assert.ErrorIs(t, err, entity.ErrEmptyCart)
	assert.False(t, f.guard.held(idempotencyKey(f.userID, "k2")))

	f.fillCart(t)
	_, err = f.orders.PlaceOrder(ctx, f.userID, req)
	assert.NoError(t, err)
}

func TestPlaceOrderKeepsKeyWhenReloadFails(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	f.store.GetOrderErr = errors.New("storage failure")
	f.store.ClearCartErr = errors.New("storage failure")
	req := entity.PlaceOrderRequest{ShippingAddress: "1 Main St", IdempotencyKey: "same"}

	order, err := f.orders.PlaceOrder(ctx, f.userID, req)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, "25.50", order.TotalAmount.StringFixed(2))
	assert.Len(t, order.Items, 2)
	assert.True(t, f.guard.held(idempotencyKey(f.userID, "same")))
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, order.ID, f.publisher.events[0].orderID)

	_, err = f.orders.PlaceOrder(ctx, f.userID, req)
	assert.ErrorIs(t, err, entity.ErrDuplicateRequest)
	assert.Equal(t, 1, f.store.OrderCount())
	assert.Equal(t, 3, f.store.Product(f.productA).Stock)
}

func TestIdempotencyKeysArePerUser(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	other := f.store.AddUser("Bo", "bo@example.com", "hash", entity.RoleCustomer)
	f.fillCart(t)
	_, err := f.carts.AddItem(ctx, other, f.productA, 1)
	require.NoError(t, err)
	req := entity.PlaceOrderRequest{ShippingAddress: "x", IdempotencyKey: "shared"}

	_, err = f.orders.PlaceOrder(ctx, f.userID, req)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(ctx, other, req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.OrderCount())

	_, err = f.orders.PlaceOrder(ctx, other, req)
	assert.ErrorIs(t, err, entity.ErrDuplicateRequest)
}

func TestPlaceOrderWithoutGuard(t *testing.T) {
	store := servicetest.NewStore()
	orders := NewOrderService(store, store, store, nil, nil, testPaging)
	userID := store.AddUser("Bo", "bo@example.com", "hash", entity.RoleCustomer)
	productID := store.AddProduct("A", "1.00", 5)
	require.NoError(t, store.AddItem(context.Background(), userID, productID, 1))

	_, err := orders.PlaceOrder(context.Background(), userID, entity.PlaceOrderRequest{ShippingAddress: "x", IdempotencyKey: "k"})
	assert.NoError(t, err)
}

func TestCancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	cancelled, err := f.orders.CancelOrder(context.Background(), order.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)

	// Stock stays where placement left it.
	assert.Equal(t, 3, f.store.Product(f.productA).Stock)
	assert.Equal(t, 2, f.store.Product(f.productB).Stock)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, EventOrderCancelled, f.publisher.events[1].eventType)
}

func TestCancelConfirmedOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)
	f.store.SetOrderStatus(order.ID, entity.OrderStatusConfirmed)

	cancelled, err := f.orders.CancelOrder(context.Background(), order.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)
}

func TestCancelShippedOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)
	f.store.SetOrderStatus(order.ID, entity.OrderStatusShipped)

	_, err := f.orders.CancelOrder(context.Background(), order.ID, f.userID)

	var state *entity.InvalidStateError
	require.True(t, errors.As(err, &state))
	assert.Equal(t, "Cannot cancel an order with status 'shipped'", state.Error())

	current, err := f.orders.GetOrder(context.Background(), order.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusShipped, current.Status)
}

func TestCancelTwice(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	_, err := f.orders.CancelOrder(context.Background(), order.ID, f.userID)
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(context.Background(), order.ID, f.userID)
	var state *entity.InvalidStateError
	assert.True(t, errors.As(err, &state))
}

func TestCancelSomeoneElsesOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)
	other := f.store.AddUser("Eve", "eve@example.com", "hash", entity.RoleCustomer)

	_, err := f.orders.CancelOrder(context.Background(), order.ID, other)

	var notFound *entity.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, entity.OrderStatusPending, mustGetOrder(t, f, order.ID).Status)
}

func mustGetOrder(t *testing.T, f *orderFixture, id int64) *entity.Order {
	t.Helper()
	order, err := f.orders.GetOrder(context.Background(), id, f.userID)
	require.NoError(t, err)
	return order
}

func TestUpdateOrderStatusHasNoTransitionGraph(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	order := f.place(t)

	for _, status := range []string{"delivered", "PENDING", "cancelled", "shipped"} {
		updated, err := f.orders.UpdateOrderStatus(ctx, order.ID, status)
		require.NoError(t, err, status)
		assert.Equal(t, entity.OrderStatus(strings.ToLower(status)), updated.Status)
	}

	// Admin moves never touch stock either.
	assert.Equal(t, 3, f.store.Product(f.productA).Stock)
	assert.Equal(t, 2, f.store.Product(f.productB).Stock)
}

func TestUpdateOrderStatusRejectsUnknown(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	_, err := f.orders.UpdateOrderStatus(context.Background(), order.ID, "lost")

	var validation *entity.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, entity.OrderStatusPending, mustGetOrder(t, f, order.ID).Status)
}

func TestUpdateOrderStatusMissingOrder(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.UpdateOrderStatus(context.Background(), 404, "shipped")

	var notFound *entity.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestGetUserOrdersPaginates(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.store.SetStock(f.productA, 100)
	f.store.SetStock(f.productB, 100)
	for i := 0; i < 3; i++ {
		f.place(t)
	}

	orders, pagination, err := f.orders.GetUserOrders(ctx, f.userID, entity.PageRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, &entity.Pagination{Total: 3, Page: 1, PerPage: 2, Pages: 2}, pagination)
	assert.Greater(t, orders[0].ID, orders[1].ID)
}

func TestGetAllOrdersFilter(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	first := f.place(t)
	f.place(t)
	f.store.SetOrderStatus(first.ID, entity.OrderStatusShipped)

	orders, pagination, err := f.orders.GetAllOrders(ctx, "shipped", entity.PageRequest{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)
	assert.Equal(t, "Ann", orders[0].CustomerName)
	assert.Equal(t, 10, pagination.PerPage)

	_, _, err = f.orders.GetAllOrders(ctx, "bogus", entity.PageRequest{})
	var validation *entity.ValidationError
	assert.True(t, errors.As(err, &validation))
}
