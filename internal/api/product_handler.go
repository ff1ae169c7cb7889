package api

import (
	"net/http"
	"strconv"

	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler creates a new instance of ProductHandler
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryInt returns def when the parameter is absent or not a number.
func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}

func pageRequest(c echo.Context) entity.PageRequest {
	return entity.PageRequest{Page: queryInt(c, "page", 1), PerPage: queryInt(c, "per_page", 0)}
}

// GetProducts lists the catalogue --> GET /products
func (h *ProductHandler) GetProducts(c echo.Context) error {
	filter := entity.ProductFilter{
		PageRequest: pageRequest(c),
		Search:      c.QueryParam("search"),
	}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "Invalid category_id")
		}
		filter.CategoryID = &id
	}
	for name, target := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		if v := c.QueryParam(name); v != "" {
			price, err := decimal.NewFromString(v)
			if err != nil {
				return fail(c, http.StatusBadRequest, "Invalid "+name)
			}
			*target = &price
		}
	}
	filter.NormalizeSort(c.QueryParam("sort_by"), c.QueryParam("order"))

	products, pagination, err := h.productService.GetProducts(c.Request().Context(), filter)
	if err != nil {
		return fromError(c, err)
	}
	return paginated(c, "Products fetched", products, pagination)
}

// GetCategories --> GET /products/categories
func (h *ProductHandler) GetCategories(c echo.Context) error {
	categories, err := h.productService.GetCategories(c.Request().Context())
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Categories fetched", categories)
}

// GetProduct --> GET /products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid ID")
	}

	product, err := h.productService.GetProduct(c.Request().Context(), id)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Product fetched", product)
}

// CreateProduct --> POST /products (admin)
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	req := entity.CreateProductRequest{}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}

	product, err := h.productService.CreateProduct(c.Request().Context(), req)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusCreated, "Product created", product)
}

// UpdateProduct applies a partial update --> PUT /products/:id (admin)
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid ID")
	}
	patch := entity.ProductPatch{}
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request payload")
	}

	product, err := h.productService.UpdateProduct(c.Request().Context(), id, patch)
	if err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Product updated", product)
}

// DeleteProduct deactivates a product --> DELETE /products/:id (admin)
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return fail(c, http.StatusBadRequest, "Invalid ID")
	}

	if err := h.productService.DeleteProduct(c.Request().Context(), id); err != nil {
		return fromError(c, err)
	}
	return success(c, http.StatusOK, "Product deactivated", nil)
}
