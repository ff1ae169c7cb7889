package api

import (
	"net/http"

	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/service"

	"github.com/labstack/echo/v4"
)

const idempotencyHeader = "Idempotency-Key"

type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new instance of OrderHandler
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrder checks out the caller's cart --> POST /orders
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	req := entity.PlaceOrderRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}
	req.IdempotencyKey = c.Request().Header.Get(idempotencyHeader)

	order, err := h.orderService.PlaceOrder(c.Request().Context(), userID, req)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusCreated, "Order placed successfully", order)
}

// GetOrders --> GET /orders
func (h *OrderHandler) GetOrders(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	orders, pagination, err := h.orderService.GetUserOrders(c.Request().Context(), userID, pageRequest(c))
	if err != nil {
		return fromError(c, err)
	}
	return paginated(c, "Orders fetched", orders, pagination)
}

// GetOrder --> GET /orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid ID")
	}

	order, err := h.orderService.GetOrder(c.Request().Context(), id, userID)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Order fetched", order)
}

// CancelOrder --> PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid ID")
	}

	order, err := h.orderService.CancelOrder(c.Request().Context(), id, userID)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Order cancelled", order)
}

// GetAllOrders lists every order, optionally by status --> GET /orders/admin (admin)
func (h *OrderHandler) GetAllOrders(c echo.Context) error {
	orders, pagination, err := h.orderService.GetAllOrders(c.Request().Context(), c.QueryParam("status"), pageRequest(c))
	if err != nil {
		return fromError(c, err)
	}
	return paginated(c, "All orders fetched", orders, pagination)
}

// UpdateOrderStatus --> PUT /orders/admin/:id/status (admin)
func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid ID")
	}
	req := entity.UpdateOrderStatusRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}
	if req.Status == "" {
		return fromError(c, &entity.ValidationError{Field: "status", Message: "Status is required"})
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Order status updated", order)
}
