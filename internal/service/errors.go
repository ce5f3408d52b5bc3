package service

import (
	"errors"
	"fmt"

	"github.com/linemk/storefront/internal/storage"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAmountTooLarge - сумма не помещается в orders.amount NUMERIC(10,2)
	ErrAmountTooLarge = errors.New("order total exceeds the maximum amount")
	// ErrLockTimeout - транзакцию можно повторить целиком
	ErrLockTimeout = storage.ErrLockTimeout
)

// ValidationError привязана к полю запроса
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InsufficientStockError - на складе меньше, чем в строке корзины
type InsufficientStockError struct {
	CategoryID   int64
	CategoryName string
	Available    int
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s has less stock than the chosen amount: available %d, requested %d",
		e.CategoryName, e.Available, e.Requested)
}

// CategoryNotFoundError - категория удалена или не существует
type CategoryNotFoundError struct {
	CategoryID int64
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("category %d not found", e.CategoryID)
}

func (e *CategoryNotFoundError) Unwrap() error {
	return storage.ErrCategoryNotFound
}
