package api

import (
	"net/http"
	"time"

	"ecommerce-backend/internal/entity"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Auth    *AuthHandler
	Product *ProductHandler
	Cart    *CartHandler
	Order   *OrderHandler
}

type RouterConfig struct {
	Tokens    TokenVerifier
	RateLimit float64
	RateBurst int
}

// NewRouter wires every route onto a new echo instance.
func NewRouter(h Handlers, cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if cfg.RateLimit > 0 {
		e.Use(RateLimiter(cfg.RateLimit, cfg.RateBurst))
	}

	authed := RequireAuth(cfg.Tokens)
	admin := RequireRole(entity.RoleAdmin)

	e.GET("/", index)
	e.GET("/health", health)

	a := e.Group("/auth")
	a.POST("/register", h.Auth.Register)
	a.POST("/login", h.Auth.Login)
	a.POST("/refresh", h.Auth.Refresh)
	a.GET("/profile", h.Auth.GetProfile, authed)
	a.PUT("/profile", h.Auth.UpdateProfile, authed)
	a.PUT("/change-password", h.Auth.ChangePassword, authed)

	p := e.Group("/products")
	p.GET("", h.Product.GetProducts)
	p.GET("/categories", h.Product.GetCategories)
	p.GET("/:id", h.Product.GetProduct)
	p.POST("", h.Product.CreateProduct, authed, admin)
	p.PUT("/:id", h.Product.UpdateProduct, authed, admin)
	p.DELETE("/:id", h.Product.DeleteProduct, authed, admin)

	c := e.Group("/cart", authed)
	c.GET("", h.Cart.GetCart)
	c.POST("", h.Cart.AddItem)
	c.DELETE("", h.Cart.ClearCart)
	c.GET("/count", h.Cart.ItemCount)
	c.PUT("/:product_id", h.Cart.UpdateItem)
	c.DELETE("/:product_id", h.Cart.RemoveItem)

	o := e.Group("/orders", authed)
	o.POST("", h.Order.PlaceOrder)
	o.GET("", h.Order.GetOrders)
	o.GET("/admin", h.Order.GetAllOrders, admin)
	o.PUT("/admin/:id/status", h.Order.UpdateOrderStatus, admin)
	o.GET("/:id", h.Order.GetOrder)
	o.PUT("/:id/cancel", h.Order.CancelOrder)

	return e
}

func index(c echo.Context) error {
	return success(c, http.StatusOK, "E-Commerce API is running", map[string]interface{}{
		"version": "1.0.0",
		"endpoints": map[string]string{
			"auth":     "/auth",
			"products": "/products",
			"cart":     "/cart",
			"orders":   "/orders",
		},
	})
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "ecommerce-api",
		"time":    time.Now().Format(time.RFC3339),
	})
}
