package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials возвращается при любой ошибке входа, не уточняя, что именно неверно.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInsufficientStock является базовой ошибкой нехватки остатка товара.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError сообщает, какого товара не хватает и сколько его доступно.
type InsufficientStockError struct {
	ProductID string
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s, available: %d", e.Product, e.Available)
}

// Message возвращает текст ошибки для ответа API.
func (e *InsufficientStockError) Message() string {
	return fmt.Sprintf("Not enough stock for %s. Available: %d", e.Product, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
