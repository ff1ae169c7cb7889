package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart        = errors.New("your cart is empty")
	ErrDuplicateRequest = errors.New("a request with this idempotency key is already being processed")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	if e.Entity == "" {
		return "not found"
	}
	return strings.ToUpper(e.Entity[:1]) + e.Entity[1:] + " not found"
}

// InvalidStateError is returned when an operation is illegal in the entity's current state.
type InvalidStateError struct {
	Action  string
	Current OrderStatus
	Allowed []OrderStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("Cannot %s an order with status '%s'", e.Action, e.Current)
}

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for '%s'. Available: %d, requested: %d", e.Name, e.Available, e.Requested)
}

type ProductUnavailableError struct {
	ProductID int64
	Name      string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("Product '%s' is no longer available", e.Name)
}

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

// PersistenceError hides a storage failure behind an opaque message; the cause stays reachable through Unwrap.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: storage failure", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsBusinessError reports whether err is a rule rejection rather than an infrastructure failure.
func IsBusinessError(err error) bool {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		state        *InvalidStateError
		stock        *InsufficientStockError
		unavailable  *ProductUnavailableError
		unauthorized *UnauthorizedError
	)
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrDuplicateRequest):
		return true
	case errors.As(err, &validation), errors.As(err, &notFound), errors.As(err, &state),
		errors.As(err, &stock), errors.As(err, &unavailable), errors.As(err, &unauthorized):
		return true
	}
	return false
}
