package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

const DefaultPaymentMethod = "COD"

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// CancellableStatuses are the states a customer may cancel from.
var CancellableStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed}

func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s OrderStatus) Cancellable() bool {
	for _, status := range CancellableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		names := make([]string, len(OrderStatuses))
		for i, s := range OrderStatuses {
			names[i] = string(s)
		}
		return "", &ValidationError{
			Field:   "status",
			Message: "Invalid status. Must be one of: " + strings.Join(names, ", "),
		}
	}
	return status, nil
}

type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status          OrderStatus     `db:"status" json:"status"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	Items           []OrderItem     `db:"-" json:"items"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is the purchase-time snapshot of one line. UnitPrice never follows later price changes.
type OrderItem struct {
	ProductID int64           `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	ImageURL  *string         `db:"image_url" json:"image_url"`
}

// OrderSummary is the admin listing row.
type OrderSummary struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	CustomerName  string          `db:"customer_name" json:"customer_name"`
	CustomerEmail string          `db:"customer_email" json:"customer_email"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status        OrderStatus     `db:"status" json:"status"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// OrderDraft is everything the atomic placement unit writes.
type OrderDraft struct {
	UserID          int64
	ShippingAddress string
	PaymentMethod   string
	Total           decimal.Decimal
	Lines           []OrderLine
}

type OrderLine struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// NewOrderDraft prices the order from the cart snapshot, not from a fresh product read.
func NewOrderDraft(userID int64, shippingAddress, paymentMethod string, lines []CartLine) OrderDraft {
	draft := OrderDraft{
		UserID:          userID,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		Total:           decimal.Zero,
		Lines:           make([]OrderLine, 0, len(lines)),
	}
	for _, line := range lines {
		draft.Lines = append(draft.Lines, OrderLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
		})
		draft.Total = draft.Total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return draft
}

type PlaceOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
	IdempotencyKey  string `json:"-"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}
