package repository

import (
	"context"
	"database/sql"

	"ecommerce-backend/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db}
}

// PlaceOrder writes the order, its items and the stock decrements as one unit and returns the new order id.
// A decrement that finds too little stock rolls everything back with an InsufficientStockError.
func (r *OrderRepository) PlaceOrder(ctx context.Context, draft entity.OrderDraft) (int64, error) {
	unit := NewAtomic()

	order := unit.Exec(
		`INSERT INTO orders (user_id, total_amount, status, shipping_address, payment_method) VALUES (?, ?, ?, ?, ?)`,
		draft.UserID, draft.Total, entity.OrderStatusPending, draft.ShippingAddress, draft.PaymentMethod,
	)

	for _, line := range draft.Lines {
		unit.Exec(
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?)`,
			order, line.ProductID, line.Quantity, line.UnitPrice,
		)
		unit.ExecGuarded(
			stockShortfall(line),
			`UPDATE products SET stock = stock - ? WHERE id = ? AND is_active = TRUE AND stock >= ?`,
			line.Quantity, line.ProductID, line.Quantity,
		)
	}

	ids, err := unit.Commit(ctx, r.db)
	if err != nil {
		return 0, err
	}
	return ids[order], nil
}

// stockShortfall explains a failed decrement using the product row as the transaction sees it.
func stockShortfall(line entity.OrderLine) GuardFunc {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		var current struct {
			Stock    int  `db:"stock"`
			IsActive bool `db:"is_active"`
		}
		err := tx.GetContext(ctx, &current, `SELECT stock, is_active FROM products WHERE id = ?`, line.ProductID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !current.IsActive) {
			return &entity.ProductUnavailableError{ProductID: line.ProductID, Name: line.Name}
		}
		if err != nil {
			return errors.Wrapf(err, "read stock of product %d", line.ProductID)
		}
		return &entity.InsufficientStockError{
			ProductID: line.ProductID,
			Name:      line.Name,
			Available: current.Stock,
			Requested: line.Quantity,
		}
	}
}

// GetOrderByID loads an order with its items. A userID of zero skips the ownership check.
func (r *OrderRepository) GetOrderByID(ctx context.Context, id, userID int64) (*entity.Order, error) {
	orderQuery := `SELECT id, user_id, total_amount, status, shipping_address, payment_method, created_at, updated_at FROM orders WHERE id = ?`
	args := []interface{}{id}
	if userID != 0 {
		orderQuery += ` AND user_id = ?`
		args = append(args, userID)
	}

	order := &entity.Order{}
	err := r.db.GetContext(ctx, order, orderQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "order", ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	itemQuery := `
		SELECT oi.product_id, p.name, oi.quantity, oi.unit_price, oi.unit_price * oi.quantity AS subtotal, p.image_url
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id`
	order.Items = []entity.OrderItem{}
	if err := r.db.SelectContext(ctx, &order.Items, itemQuery, id); err != nil {
		return nil, errors.Wrapf(err, "get items of order %d", id)
	}

	return order, nil
}

// GetUserOrders returns one page of a customer's orders, newest first, without items.
func (r *OrderRepository) GetUserOrders(ctx context.Context, userID int64, page entity.PageRequest) ([]entity.Order, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID); err != nil {
		return nil, 0, errors.Wrap(err, "count user orders")
	}

	query := `
		SELECT id, user_id, total_amount, status, shipping_address, payment_method, created_at, updated_at
		FROM orders WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	orders := []entity.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, userID, page.PerPage, page.Offset()); err != nil {
		return nil, 0, errors.Wrap(err, "list user orders")
	}
	for i := range orders {
		orders[i].Items = []entity.OrderItem{}
	}

	return orders, total, nil
}

// GetAllOrders is the admin listing. An empty status lists every order.
func (r *OrderRepository) GetAllOrders(ctx context.Context, status entity.OrderStatus, page entity.PageRequest) ([]entity.OrderSummary, int, error) {
	where := ""
	var args []interface{}
	if status != "" {
		where = "WHERE o.status = ?"
		args = append(args, status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders o `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	query := `
		SELECT o.id, o.user_id, u.name AS customer_name, u.email AS customer_email,
		       o.total_amount, o.status, o.payment_method, o.created_at
		FROM orders o
		JOIN users u ON o.user_id = u.id
		` + where + `
		ORDER BY o.created_at DESC, o.id DESC LIMIT ? OFFSET ?`
	orders := []entity.OrderSummary{}
	if err := r.db.SelectContext(ctx, &orders, query, append(args, page.PerPage, page.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}

	return orders, total, nil
}

// UpdateOrderStatus sets the status unconditionally. It reports false when no such order exists.
func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id int64, status entity.OrderStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return false, errors.Wrapf(err, "update status of order %d", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "update status of order %d", id)
	}
	return affected > 0, nil
}

// CancelOrder moves an owned order to cancelled only while it is still in a cancellable state.
// It reports false when the predicate matched nothing; the caller decides why.
func (r *OrderRepository) CancelOrder(ctx context.Context, id, userID int64) (bool, error) {
	query, args, err := sqlx.In(
		`UPDATE orders SET status = ? WHERE id = ? AND user_id = ? AND status IN (?)`,
		entity.OrderStatusCancelled, id, userID, entity.CancellableStatuses,
	)
	if err != nil {
		return false, errors.Wrap(err, "build cancel statement")
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return false, errors.Wrapf(err, "cancel order %d", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "cancel order %d", id)
	}
	return affected > 0, nil
}
