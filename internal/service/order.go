package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

// ShippingFee задаёт фиксированную стоимость доставки непустого заказа.
var ShippingFee = decimal.New(1000, -2)

// PlaceOrder оформляет заказ: проверяет запрос, резервирует остатки и сохраняет заказ.
// Резервирование и сохранение выполняются хранилищем атомарно.
func (s *Service) PlaceOrder(ctx context.Context, userID string, req model.OrderRequest) (*model.Order, error) {
	if err := validation.NormalizeOrderRequest(&req); err != nil {
		s.rejected("validation")
		return nil, err
	}

	order, err := s.repo.PlaceOrder(ctx, userID, req.Items, func(products map[string]model.Product) (*model.Order, error) {
		return buildOrder(req, products)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientStock):
			s.rejected("insufficient_stock")
		case errors.Is(err, repository.ErrProductNotFound):
			s.rejected("product_not_found")
		}
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.OrderPlaced(order)
	}

	return order, nil
}

func (s *Service) rejected(reason string) {
	if s.recorder != nil {
		s.recorder.OrderRejected(reason)
	}
}

// buildOrder собирает заказ по текущим данным товаров.
// Сначала проверяется, что найдены все товары, затем остатки; цена каждой позиции фиксируется.
func buildOrder(req model.OrderRequest, products map[string]model.Product) (*model.Order, error) {
	for _, l := range req.Items {
		if _, ok := products[l.ProductID]; !ok {
			return nil, fmt.Errorf("%w: %s", repository.ErrProductNotFound, l.ProductID)
		}
	}

	// Сравнение с остатком до сложения не даёт сумме строк переполниться.
	requested := make(map[string]int, len(req.Items))
	for _, l := range req.Items {
		p := products[l.ProductID]
		already := requested[l.ProductID]
		if l.Quantity < 0 || l.Quantity > p.Stock-already {
			total := already + l.Quantity
			if total < already {
				total = math.MaxInt
			}
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Product:   p.Name,
				Available: p.Stock,
				Requested: total,
			}
		}
		requested[l.ProductID] = already + l.Quantity
	}

	order := &model.Order{
		Items:           make([]model.OrderItem, 0, len(req.Items)),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   model.StatusFor(req.PaymentMethod),
	}

	subtotal := decimal.Zero
	for _, l := range req.Items {
		p := products[l.ProductID]
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		order.Items = append(order.Items, model.OrderItem{
			ProductID: p.ID,
			Product:   &p,
			Quantity:  l.Quantity,
			Price:     p.Price,
		})
	}
	order.TotalAmount = subtotal.Add(ShippingFee)

	return order, nil
}

// GetOrdersByUser возвращает заказы пользователя от новых к старым.
func (s *Service) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetOrder возвращает заказ пользователя. Чужие и несуществующие заказы неотличимы.
func (s *Service) GetOrder(ctx context.Context, userID, rawID string) (*model.Order, error) {
	id, err := validation.ParseObjectID(rawID)
	if err != nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.repo.GetOrder(ctx, userID, id)
}
