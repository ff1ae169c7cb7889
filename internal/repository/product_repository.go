package repository

import (
	"context"
	"database/sql"
	"strings"

	"ecommerce-backend/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const productColumns = `
	p.id, p.name, COALESCE(p.description, '') AS description, p.price, p.stock,
	p.category_id, c.name AS category_name, p.image_url, p.is_active,
	(p.stock > 0) AS in_stock, p.created_at, p.updated_at`

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db}
}

// GetProductByID returns an active product; inactive and missing products are both not found.
func (r *ProductRepository) GetProductByID(ctx context.Context, id int64) (*entity.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ? AND p.is_active = TRUE`

	product := &entity.Product{}
	err := r.db.GetContext(ctx, product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return product, nil
}

func (r *ProductRepository) GetProducts(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, int, error) {
	conditions := []string{"p.is_active = TRUE"}
	var args []interface{}

	if filter.CategoryID != nil {
		conditions = append(conditions, "p.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Search != "" {
		conditions = append(conditions, "MATCH(p.name, p.description) AGAINST (? IN BOOLEAN MODE)")
		args = append(args, filter.Search+"*")
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "p.price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "p.price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM products p `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	// SortBy is whitelisted by ProductFilter.NormalizeSort, so it is safe to splice.
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = entity.SortByCreatedAt
	}
	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}

	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		` + where + `
		ORDER BY p.` + string(sortBy) + ` ` + direction + `, p.id ` + direction + `
		LIMIT ? OFFSET ?`

	products := []entity.Product{}
	if err := r.db.SelectContext(ctx, &products, query, append(args, filter.PerPage, filter.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	return products, total, nil
}

func (r *ProductRepository) GetCategories(ctx context.Context) ([]entity.Category, error) {
	categories := []entity.Category{}
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name, description FROM categories ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

func (r *ProductRepository) CreateProduct(ctx context.Context, req entity.CreateProductRequest) (int64, error) {
	query := `INSERT INTO products (name, description, price, stock, category_id, image_url) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, req.Name, req.Description, *req.Price, req.Stock, req.CategoryID, req.ImageURL)
	if err != nil {
		return 0, errors.Wrap(err, "insert product")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "insert product")
	}
	return id, nil
}

// UpdateProduct writes only the fields set in patch. Inactive products can be updated too,
// which is how an admin brings one back.
func (r *ProductRepository) UpdateProduct(ctx context.Context, id int64, patch entity.ProductPatch) error {
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.ImageURL != nil {
		set("image_url", *patch.ImageURL)
	}
	if patch.IsActive != nil {
		set("is_active", *patch.IsActive)
	}
	if len(sets) == 0 {
		return &entity.ValidationError{Message: "No updatable fields supplied"}
	}

	query := `UPDATE products SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return errors.Wrapf(err, "update product %d", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update product %d", id)
	}
	if affected == 0 {
		return &entity.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

// GetAnyProductByID ignores the active flag; admin updates go through it.
func (r *ProductRepository) GetAnyProductByID(ctx context.Context, id int64) (*entity.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?`

	product := &entity.Product{}
	err := r.db.GetContext(ctx, product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return product, nil
}
