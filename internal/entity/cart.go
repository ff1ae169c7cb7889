package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one product in a user's cart joined with the live product row.
type CartLine struct {
	CartItemID int64           `db:"cart_item_id" json:"cart_item_id"`
	ProductID  int64           `db:"product_id" json:"product_id"`
	Name       string          `db:"name" json:"name"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Quantity   int             `db:"quantity" json:"quantity"`
	Subtotal   decimal.Decimal `db:"-" json:"subtotal"`
	ImageURL   *string         `db:"image_url" json:"image_url"`
	Stock      int             `db:"stock" json:"-"`
	IsActive   bool            `db:"is_active" json:"-"`
	InStock    bool            `db:"-" json:"in_stock"`
	AddedAt    time.Time       `db:"added_at" json:"added_at"`
}

type Cart struct {
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// NewCart fills the derived per-line fields and the rounded running total.
func NewCart(lines []CartLine) *Cart {
	cart := &Cart{Items: make([]CartLine, 0, len(lines)), Total: decimal.Zero}
	for _, line := range lines {
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		line.InStock = line.Stock >= line.Quantity
		cart.Items = append(cart.Items, line)
		cart.Total = cart.Total.Add(line.Subtotal)
	}
	cart.Total = cart.Total.Round(2)
	cart.ItemCount = len(cart.Items)
	return cart
}

type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}
