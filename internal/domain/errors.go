package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ошибки уровня репозитория. Сервисный слой переводит их в типизированные ошибки ниже.
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStorageTimeout    = errors.New("storage timeout")
)

type ReasonType string

const (
	ReasonEmptyCart           ReasonType = "empty_cart"
	ReasonInvalidQuantity     ReasonType = "invalid_quantity"
	ReasonTotalMismatch       ReasonType = "total_mismatch"
	ReasonPointsExceedBalance ReasonType = "points_exceed_balance"
	ReasonPointsExceedTotal   ReasonType = "points_exceed_total"
	ReasonInvalidAmount       ReasonType = "invalid_amount"
	ReasonInvalidMethod       ReasonType = "invalid_payment_method"
	ReasonInvalidState        ReasonType = "invalid_state"
	ReasonInvalidIndex        ReasonType = "invalid_index"
	ReasonMalformed           ReasonType = "malformed"
)

// ValidationError некорректные входные данные. Повтор запроса без изменений бессмыслен.
type ValidationError struct {
	Reason ReasonType
	Detail string
}

func NewValidationError(reason ReasonType, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Reason, e.Detail)
}

type EntityType string

const (
	EntityOrder    EntityType = "order"
	EntitySale     EntityType = "sale"
	EntityProduct  EntityType = "product"
	EntityCustomer EntityType = "customer"
	EntityEmployee EntityType = "employee"
)

type NotFoundError struct {
	Entity EntityType
	Ref    string
}

func NewNotFoundError(entity EntityType, ref any) *NotFoundError {
	return &NotFoundError{Entity: entity, Ref: fmt.Sprint(ref)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s `%s` not found", e.Entity, e.Ref)
}

type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock for product %d: requested %d, available %d",
		e.ProductID,
		e.Requested,
		e.Available,
	)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ConflictError операция недопустима в текущем состоянии сущности.
type ConflictError struct {
	Entity EntityType
	Reason string
}

func NewConflictError(entity EntityType, format string, args ...any) *ConflictError {
	return &ConflictError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
}

// PersistenceError хранилище недоступно или не ответило вовремя. Запрос можно повторить.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure on %s: %s", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// roundMoney округление денежных сумм до копеек, одинаковое для всех сравнений.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2) //nolint:mnd
}

// MoneyEqual сравнивает суммы после округления до двух знаков.
func MoneyEqual(a, b decimal.Decimal) bool {
	return roundMoney(a).Equal(roundMoney(b))
}
