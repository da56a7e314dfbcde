// Package model содержит доменные сущности витрины магазина.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного покупателя.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Category описывает раздел каталога.
type Category struct {
	ID           string
	Slug         string
	Name         string
	Description  string
	Image        string
	ProductCount int
	CreatedAt    time.Time
}

// Product описывает товар каталога. Category заполняется при чтении.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Description string
	CategoryID  string
	Category    *Category
	Images      []string
	Sizes       []string
	Colors      []string
	Features    []string
	Stock       int
	Rating      float64
	NumReviews  int
	CreatedAt   time.Time
}

// PaymentMethod задаёт способ оплаты заказа.
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentDebitCard      PaymentMethod = "debit_card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid сообщает, входит ли способ оплаты в поддерживаемый набор.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentDebitCard, PaymentCashOnDelivery:
		return true
	}
	return false
}

// PaymentStatus описывает статус оплаты заказа. Платёжного шлюза нет, статус вычисляется из способа оплаты.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// StatusFor возвращает статус оплаты для указанного способа оплаты.
func StatusFor(m PaymentMethod) PaymentStatus {
	if m == PaymentCashOnDelivery {
		return PaymentStatusPending
	}
	return PaymentStatusCompleted
}

// ShippingAddress содержит адрес доставки заказа.
type ShippingAddress struct {
	FullName   string
	Address    string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderLine описывает строку корзины, переданную клиентом при оформлении заказа.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// OrderRequest содержит данные для оформления заказа.
type OrderRequest struct {
	Items           []OrderLine
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
}

// OrderItem описывает позицию заказа с ценой, зафиксированной в момент оформления.
type OrderItem struct {
	ProductID string
	Product   *Product
	Quantity  int
	Price     decimal.Decimal
}

// Order описывает оформленный заказ. После создания не изменяется.
type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	TotalAmount     decimal.Decimal
	CreatedAt       time.Time
}

// ToCents переводит денежную сумму в целое число центов.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents переводит сумму в центах в денежное значение.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
