package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewCartTotals(t *testing.T) {
	cart := NewCart([]CartLine{
		{ProductID: 1, Name: "A", Price: price("10.00"), Quantity: 2, Stock: 5},
		{ProductID: 2, Name: "B", Price: price("5.50"), Quantity: 1, Stock: 0},
	})

	assert.Equal(t, "25.50", cart.Total.StringFixed(2))
	assert.Equal(t, 2, cart.ItemCount)
	assert.Equal(t, "20.00", cart.Items[0].Subtotal.StringFixed(2))
	assert.True(t, cart.Items[0].InStock)
	assert.False(t, cart.Items[1].InStock)
}

func TestNewCartEmpty(t *testing.T) {
	cart := NewCart(nil)

	assert.True(t, cart.Total.IsZero())
	assert.NotNil(t, cart.Items)
	assert.Equal(t, 0, cart.ItemCount)
}

func TestNewOrderDraftUsesCartPrices(t *testing.T) {
	draft := NewOrderDraft(4, "addr", "COD", []CartLine{
		{ProductID: 1, Name: "A", Price: price("10.00"), Quantity: 2},
		{ProductID: 2, Name: "B", Price: price("5.50"), Quantity: 1},
	})

	assert.Equal(t, "25.50", draft.Total.StringFixed(2))
	require.Len(t, draft.Lines, 2)
	assert.Equal(t, "5.5", draft.Lines[1].UnitPrice.String())
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus(" Shipped ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, status)

	_, err = ParseOrderStatus("lost")
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "Invalid status. Must be one of: pending, confirmed, shipped, delivered, cancelled", validation.Message)
}

func TestCancellable(t *testing.T) {
	assert.True(t, OrderStatusPending.Cancellable())
	assert.True(t, OrderStatusConfirmed.Cancellable())
	assert.False(t, OrderStatusShipped.Cancellable())
	assert.False(t, OrderStatusDelivered.Cancellable())
	assert.False(t, OrderStatusCancelled.Cancellable())
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"defaults", PageRequest{}, PageRequest{Page: 1, PerPage: 10}},
		{"negative page", PageRequest{Page: -3, PerPage: 5}, PageRequest{Page: 1, PerPage: 5}},
		{"clamped", PageRequest{Page: 2, PerPage: 500}, PageRequest{Page: 2, PerPage: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(10, 100))
		})
	}
	assert.Equal(t, 20, PageRequest{Page: 3, PerPage: 10}.Offset())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(21, PageRequest{Page: 1, PerPage: 10})
	assert.Equal(t, 3, p.Pages)

	p = NewPagination(0, PageRequest{Page: 1, PerPage: 10})
	assert.Equal(t, 0, p.Pages)
}

func TestProductPatchValidate(t *testing.T) {
	var empty ProductPatch
	assert.Error(t, empty.Validate())

	blank := "   "
	assert.Error(t, (&ProductPatch{Name: &blank}).Validate())

	negative := price("-1")
	assert.Error(t, (&ProductPatch{Price: &negative}).Validate())

	stock := -2
	assert.Error(t, (&ProductPatch{Stock: &stock}).Validate())

	name := "  Lamp "
	patch := ProductPatch{Name: &name}
	require.NoError(t, patch.Validate())
	assert.Equal(t, "Lamp", *patch.Name)
}

func TestProductPatchFromJSON(t *testing.T) {
	var patch ProductPatch
	require.NoError(t, json.Unmarshal([]byte(`{"price": 12.5, "is_active": false}`), &patch))

	require.NotNil(t, patch.Price)
	assert.Equal(t, "12.5", patch.Price.String())
	require.NotNil(t, patch.IsActive)
	assert.False(t, *patch.IsActive)
	assert.Nil(t, patch.Name)
	assert.Nil(t, patch.Stock)
}

func TestCreateProductRequestValidate(t *testing.T) {
	p := price("3.00")
	req := CreateProductRequest{Name: " Mug ", Price: &p, Stock: 4}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Mug", req.Name)

	assert.Error(t, (&CreateProductRequest{Name: "Mug"}).Validate())
	assert.Error(t, (&CreateProductRequest{Price: &p}).Validate())
	assert.Error(t, (&CreateProductRequest{Name: "Mug", Price: &p, Stock: -1}).Validate())
}

func TestNormalizeSort(t *testing.T) {
	var f ProductFilter
	f.NormalizeSort("price; DROP TABLE", "asc")
	assert.Equal(t, SortByCreatedAt, f.SortBy)
	assert.False(t, f.Descending)

	f.NormalizeSort("name", "")
	assert.Equal(t, SortByName, f.SortBy)
	assert.True(t, f.Descending)
}

func TestPriceMarshalsAsNumber(t *testing.T) {
	body, err := json.Marshal(Product{Price: price("9.99")})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"price":9.99`)
}

func TestIsBusinessError(t *testing.T) {
	assert.True(t, IsBusinessError(ErrEmptyCart))
	assert.True(t, IsBusinessError(&InsufficientStockError{}))
	assert.True(t, IsBusinessError(&NotFoundError{Entity: "order"}))
	assert.False(t, IsBusinessError(errors.New("connection reset")))
	assert.False(t, IsBusinessError(&PersistenceError{Op: "x", Err: errors.New("boom")}))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "Order not found", (&NotFoundError{Entity: "order", ID: 1}).Error())
	assert.Equal(t, "Cannot cancel an order with status 'shipped'",
		(&InvalidStateError{Action: "cancel", Current: OrderStatusShipped}).Error())
	assert.Equal(t, "Insufficient stock for 'A'. Available: 2, requested: 10",
		(&InsufficientStockError{Name: "A", Available: 2, Requested: 10}).Error())

	cause := errors.New("boom")
	assert.Equal(t, cause, errors.Unwrap(&PersistenceError{Op: "x", Err: cause}))
}
