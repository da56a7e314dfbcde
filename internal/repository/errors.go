package repository

import (
	"errors"
	"fmt"
	"math"

	"github.com/mmeshcher/storefront/internal/model"
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с занятым именем или email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrCategoryExists возвращается при повторном создании категории.
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryNotFound возвращается, если категория не найдена.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductExists возвращается при повторном создании товара с тем же идентификатором.
	ErrProductExists = errors.New("product already exists")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден или принадлежит другому пользователю.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStockConflict возвращается, если списание остатка не прошло под блокировкой.
	ErrStockConflict = errors.New("stock changed during reservation")
)

// BuildOrderFunc собирает заказ по товарам, заблокированным в рамках транзакции.
// Ключ карты содержит идентификатор товара, отсутствующие в хранилище товары в карту не попадают.
// Ошибка функции откатывает транзакцию без изменений.
type BuildOrderFunc func(products map[string]model.Product) (*model.Order, error)

// reservations суммирует запрошенное количество по каждому товару заказа.
// Отрицательное количество или переполнение суммы дают ErrStockConflict.
func reservations(items []model.OrderItem) (map[string]int, error) {
	res := make(map[string]int, len(items))
	for _, it := range items {
		if it.Quantity < 0 || res[it.ProductID] > math.MaxInt-it.Quantity {
			return nil, fmt.Errorf("%w: %s", ErrStockConflict, it.ProductID)
		}
		res[it.ProductID] += it.Quantity
	}
	return res, nil
}
