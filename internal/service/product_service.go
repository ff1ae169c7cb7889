package service

import (
	"context"

	"ecommerce-backend/internal/entity"
)

// ProductStore reads and writes the catalogue. GetProductByID only sees active products.
type ProductStore interface {
	GetProductByID(ctx context.Context, id int64) (*entity.Product, error)
	GetAnyProductByID(ctx context.Context, id int64) (*entity.Product, error)
	GetProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, int, error)
	GetCategories(ctx context.Context) ([]entity.Category, error)
	CreateProduct(ctx context.Context, req entity.CreateProductRequest) (int64, error)
	UpdateProduct(ctx context.Context, id int64, patch entity.ProductPatch) error
}

type ProductService struct {
	products ProductStore
	paging   Paging
}

// NewProductService creates a new instance of ProductService.
func NewProductService(products ProductStore, paging Paging) *ProductService {
	return &ProductService{products: products, paging: paging}
}

// GetProducts lists active products matching filter.
func (s *ProductService) GetProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, *entity.Pagination, error) {
	filter.PageRequest = s.paging.normalize(filter.PageRequest)
	if filter.SortBy == "" {
		filter.NormalizeSort("", "DESC")
	}

	products, total, err := s.products.GetProducts(ctx, filter)
	if err != nil {
		return nil, nil, storeError("list products", err)
	}
	return products, entity.NewPagination(total, filter.PageRequest), nil
}

func (s *ProductService) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, storeError("get product", err)
	}
	return product, nil
}

func (s *ProductService) GetCategories(ctx context.Context) ([]entity.Category, error) {
	categories, err := s.products.GetCategories(ctx)
	if err != nil {
		return nil, storeError("list categories", err)
	}
	return categories, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req entity.CreateProductRequest) (*entity.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := s.products.CreateProduct(ctx, req)
	if err != nil {
		return nil, storeError("create product", err)
	}
	logger.Info().Msgf("Product %d created", id)
	return s.GetProduct(ctx, id)
}

// UpdateProduct applies a partial update and returns the product as stored.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, patch entity.ProductPatch) (*entity.Product, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.products.GetAnyProductByID(ctx, id); err != nil {
		return nil, storeError("get product", err)
	}

	if err := s.products.UpdateProduct(ctx, id, patch); err != nil {
		return nil, storeError("update product", err)
	}

	product, err := s.products.GetAnyProductByID(ctx, id)
	if err != nil {
		return nil, storeError("reload product", err)
	}
	return product, nil
}

// DeleteProduct deactivates an active product. Its order history stays intact.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.products.GetProductByID(ctx, id); err != nil {
		return storeError("get product", err)
	}

	inactive := false
	if err := s.products.UpdateProduct(ctx, id, entity.ProductPatch{IsActive: &inactive}); err != nil {
		return storeError("deactivate product", err)
	}
	logger.Info().Msgf("Product %d deactivated", id)
	return nil
}
