package service

import (
	"context"

	"ecommerce-backend/internal/entity"
)

type CartStore interface {
	GetCartLines(ctx context.Context, userID int64) ([]entity.CartLine, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) error
	SetQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error)
	RemoveItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
	ItemCount(ctx context.Context, userID int64) (int, error)
}

type CartService struct {
	carts    CartStore
	products ProductStore
}

func NewCartService(carts CartStore, products ProductStore) *CartService {
	return &CartService{carts: carts, products: products}
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*entity.Cart, error) {
	lines, err := s.carts.GetCartLines(ctx, userID)
	if err != nil {
		return nil, storeError("get cart", err)
	}
	return entity.NewCart(lines), nil
}

// AddItem puts quantity units of a product in the cart, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*entity.Cart, error) {
	if quantity < 1 {
		return nil, &entity.ValidationError{Field: "quantity", Message: "Quantity must be at least 1"}
	}
	if err := s.checkStock(ctx, productID, quantity); err != nil {
		return nil, err
	}

	if err := s.carts.AddItem(ctx, userID, productID, quantity); err != nil {
		return nil, storeError("add to cart", err)
	}
	return s.GetCart(ctx, userID)
}

// SetQuantity overwrites a line's quantity; zero or less removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID int64, quantity int) (*entity.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if err := s.checkStock(ctx, productID, quantity); err != nil {
		return nil, err
	}

	found, err := s.carts.SetQuantity(ctx, userID, productID, quantity)
	if err != nil {
		return nil, storeError("update cart", err)
	}
	if !found {
		return nil, &entity.NotFoundError{Entity: "cart item", ID: productID}
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID int64) (*entity.Cart, error) {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return nil, storeError("remove from cart", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		return storeError("clear cart", err)
	}
	return nil
}

func (s *CartService) ItemCount(ctx context.Context, userID int64) (int, error) {
	count, err := s.carts.ItemCount(ctx, userID)
	if err != nil {
		return 0, storeError("count cart", err)
	}
	return count, nil
}

// checkStock only advises; stock is enforced again when the order is placed.
func (s *CartService) checkStock(ctx context.Context, productID int64, quantity int) error {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return storeError("get product", err)
	}
	if product.Stock < quantity {
		return &entity.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Stock,
			Requested: quantity,
		}
	}
	return nil
}
