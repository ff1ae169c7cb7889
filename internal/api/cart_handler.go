package api

import (
	"net/http"

	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cartService *service.CartService
}

// NewCartHandler creates a new instance of CartHandler
func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// GetCart --> GET /cart
func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	cart, err := h.cartService.GetCart(c.Request().Context(), userID)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Cart fetched", cart)
}

// AddItem adds a product or increments its quantity --> POST /cart
func (h *CartHandler) AddItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := entity.AddToCartRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}
	if req.ProductID <= 0 {
		return fromError(c, &entity.ValidationError{Field: "product_id", Message: "product_id is required"})
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.cartService.AddItem(c.Request().Context(), userID, req.ProductID, quantity)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusCreated, "Item added to cart", cart)
}

// UpdateItem sets a line's quantity, 0 removes it --> PUT /cart/:product_id
func (h *CartHandler) UpdateItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	productID, ok := pathID(c, "product_id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid product ID")
	}
	req := entity.UpdateCartItemRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.cartService.SetQuantity(c.Request().Context(), userID, productID, quantity)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Cart updated", cart)
}

// RemoveItem --> DELETE /cart/:product_id
func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	productID, ok := pathID(c, "product_id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid product ID")
	}

	cart, err := h.cartService.RemoveItem(c.Request().Context(), userID, productID)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Item removed from cart", cart)
}

// ClearCart --> DELETE /cart
func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.cartService.ClearCart(c.Request().Context(), userID); err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Cart cleared", nil)
}

// ItemCount returns the total quantity in the cart --> GET /cart/count
func (h *CartHandler) ItemCount(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	count, err := h.cartService.ItemCount(c.Request().Context(), userID)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Cart count fetched", map[string]int{"count": count})
}
