package repository

import (
	"context"
	"database/sql"

	"ecommerce-backend/internal/entity"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const mysqlDuplicateEntry = 1062

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*entity.User, error) {
	user := &entity.User{}
	query := `SELECT id, name, email, password, role, created_at, updated_at FROM users WHERE id = ?`
	err := r.db.GetContext(ctx, user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %d", id)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	user := &entity.User{}
	query := `SELECT id, name, email, password, role, created_at, updated_at FROM users WHERE email = ?`
	err := r.db.GetContext(ctx, user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &entity.NotFoundError{Entity: "user"}
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user by email")
	}
	return user, nil
}

// CreateUser stores a user whose password is already hashed and returns the new id.
// A unique-index violation on email is reported as a validation failure.
func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) (int64, error) {
	query := `INSERT INTO users (name, email, password, role) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, user.Name, user.Email, user.Password, user.Role)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return 0, &entity.ValidationError{Field: "email", Message: "Email is already registered"}
		}
		return 0, errors.Wrap(err, "insert user")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "insert user")
	}
	return id, nil
}

func (r *UserRepository) UpdateName(ctx context.Context, id int64, name string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id); err != nil {
		return errors.Wrapf(err, "update name of user %d", id)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, passwordHash, id); err != nil {
		return errors.Wrapf(err, "update password of user %d", id)
	}
	return nil
}
