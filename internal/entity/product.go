package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, the way the catalogue has always exposed them.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Stock        int             `db:"stock" json:"stock"`
	CategoryID   *int64          `db:"category_id" json:"category_id"`
	CategoryName *string         `db:"category_name" json:"category_name"`
	ImageURL     *string         `db:"image_url" json:"image_url"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	InStock      bool            `db:"in_stock" json:"in_stock"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

type Category struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
}

// CreateProductRequest is the admin payload for a new catalogue entry.
type CreateProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       int              `json:"stock"`
	CategoryID  *int64           `json:"category_id"`
	ImageURL    *string          `json:"image_url"`
}

func (r *CreateProductRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "Product name is required"}
	}
	if r.Price == nil || r.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "Price must be a non-negative number"}
	}
	if r.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "Stock must be a non-negative integer"}
	}
	return nil
}

// ProductPatch is a partial product update. Only non-nil fields are written;
// the field set is the complete list of columns an admin may change.
type ProductPatch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	CategoryID  *int64           `json:"category_id"`
	ImageURL    *string          `json:"image_url"`
	IsActive    *bool            `json:"is_active"`
}

func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Stock == nil &&
		p.CategoryID == nil && p.ImageURL == nil && p.IsActive == nil
}

func (p *ProductPatch) Validate() error {
	if p.IsEmpty() {
		return &ValidationError{Message: "No updatable fields supplied"}
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return &ValidationError{Field: "name", Message: "Product name cannot be empty"}
		}
		p.Name = &name
	}
	if p.Price != nil && p.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "Price must be a non-negative number"}
	}
	if p.Stock != nil && *p.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "Stock must be a non-negative integer"}
	}
	return nil
}

type SortColumn string

const (
	SortByPrice     SortColumn = "price"
	SortByName      SortColumn = "name"
	SortByCreatedAt SortColumn = "created_at"
	SortByStock     SortColumn = "stock"
)

// ProductFilter drives the catalogue listing.
type ProductFilter struct {
	PageRequest
	CategoryID *int64
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	SortBy     SortColumn
	Descending bool
}

// NormalizeSort falls back to newest-first for anything outside the whitelist.
func (f *ProductFilter) NormalizeSort(sortBy, order string) {
	switch SortColumn(sortBy) {
	case SortByPrice, SortByName, SortByCreatedAt, SortByStock:
		f.SortBy = SortColumn(sortBy)
	default:
		f.SortBy = SortByCreatedAt
	}
	f.Descending = !strings.EqualFold(order, "ASC")
}
