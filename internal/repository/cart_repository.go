package repository

import (
	"context"

	"ecommerce-backend/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type CartRepository struct {
	db *sqlx.DB
}

func NewCartRepository(db *sqlx.DB) *CartRepository {
	return &CartRepository{db}
}

// GetCartLines joins every line with the live product row, inactive products included,
// so checkout can tell the customer which item went away.
func (r *CartRepository) GetCartLines(ctx context.Context, userID int64) ([]entity.CartLine, error) {
	query := `
		SELECT c.id AS cart_item_id, c.product_id, c.quantity, c.added_at,
		       p.name, p.price, p.image_url, p.stock, p.is_active
		FROM cart c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = ?
		ORDER BY c.added_at, c.id`

	lines := []entity.CartLine{}
	if err := r.db.SelectContext(ctx, &lines, query, userID); err != nil {
		return nil, errors.Wrapf(err, "get cart of user %d", userID)
	}
	return lines, nil
}

// AddItem inserts a line or adds quantity to the existing one for the same product.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) error {
	query := `
		INSERT INTO cart (user_id, product_id, quantity) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + ?`
	if _, err := r.db.ExecContext(ctx, query, userID, productID, quantity, quantity); err != nil {
		return errors.Wrapf(err, "add product %d to cart of user %d", productID, userID)
	}
	return nil
}

// SetQuantity overwrites the quantity of an existing line. It reports false when there is no such line.
func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID int64, quantity int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE cart SET quantity = ? WHERE user_id = ? AND product_id = ?`, quantity, userID, productID)
	if err != nil {
		return false, errors.Wrapf(err, "update cart line of user %d", userID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "update cart line of user %d", userID)
	}
	return affected > 0, nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart WHERE user_id = ? AND product_id = ?`, userID, productID); err != nil {
		return errors.Wrapf(err, "remove product %d from cart of user %d", productID, userID)
	}
	return nil
}

func (r *CartRepository) ClearCart(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart WHERE user_id = ?`, userID); err != nil {
		return errors.Wrapf(err, "clear cart of user %d", userID)
	}
	return nil
}

// ItemCount is the total number of units across all lines.
func (r *CartRepository) ItemCount(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COALESCE(SUM(quantity), 0) FROM cart WHERE user_id = ?`, userID); err != nil {
		return 0, errors.Wrapf(err, "count cart of user %d", userID)
	}
	return count, nil
}
