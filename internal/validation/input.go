package validation

import (
	"fmt"
	"math"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// MinPasswordLength задаёт минимальную длину пароля при регистрации.
const MinPasswordLength = 6

// MaxQuantity ограничивает количество товара в строке заказа и остаток товара (INTEGER в БД).
const MaxQuantity = math.MaxInt32

// MaxPrice ограничивает цену товара, чтобы сумма в центах помещалась в BIGINT с запасом на умножение.
var MaxPrice = decimal.New(1, 9)

// NormalizeEmail обрезает пробелы и приводит адрес к нижнему регистру.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration проверяет данные регистрации, уже нормализованные вызывающим кодом.
func ValidateRegistration(username, email, password string) error {
	if username == "" {
		return &FieldError{Field: "username", Reason: "is required"}
	}
	if email == "" {
		return &FieldError{Field: "email", Reason: "is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &FieldError{Field: "email", Reason: "is not a valid address"}
	}
	if len(password) < MinPasswordLength {
		return &FieldError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// NormalizeOrderRequest проверяет запрос на оформление заказа и приводит
// идентификаторы товаров и поля адреса к каноническому виду.
func NormalizeOrderRequest(req *model.OrderRequest) error {
	if len(req.Items) == 0 {
		return &FieldError{Field: "items", Reason: "must not be empty"}
	}

	for i := range req.Items {
		id, err := ParseObjectID(req.Items[i].ProductID)
		if err != nil {
			return &FieldError{Field: fmt.Sprintf("items[%d].product", i), Reason: "invalid id format"}
		}
		req.Items[i].ProductID = id

		if req.Items[i].Quantity < 1 {
			return &FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be a positive integer"}
		}
		if req.Items[i].Quantity > MaxQuantity {
			return &FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
		}
	}

	a := &req.ShippingAddress
	fields := []struct {
		name  string
		value *string
	}{
		{"shippingAddress.fullName", &a.FullName},
		{"shippingAddress.address", &a.Address},
		{"shippingAddress.city", &a.City},
		{"shippingAddress.state", &a.State},
		{"shippingAddress.postalCode", &a.PostalCode},
		{"shippingAddress.country", &a.Country},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return &FieldError{Field: f.name, Reason: "is required"}
		}
	}

	if !req.PaymentMethod.Valid() {
		return &FieldError{Field: "paymentMethod", Reason: "unsupported payment method"}
	}

	return nil
}

// ValidateProduct проверяет поля нового товара.
func ValidateProduct(p *model.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)

	if p.Name == "" {
		return &FieldError{Field: "name", Reason: "is required"}
	}
	if p.Description == "" {
		return &FieldError{Field: "description", Reason: "is required"}
	}
	if p.Price.IsNegative() {
		return &FieldError{Field: "price", Reason: "must not be negative"}
	}
	if p.Price.GreaterThan(MaxPrice) {
		return &FieldError{Field: "price", Reason: "must not exceed " + MaxPrice.String()}
	}
	if p.Stock < 0 {
		return &FieldError{Field: "stock", Reason: "must not be negative"}
	}
	if p.Stock > MaxQuantity {
		return &FieldError{Field: "stock", Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
	}
	if p.Rating < 0 || p.Rating > 5 {
		return &FieldError{Field: "rating", Reason: "must be between 0 and 5"}
	}
	if p.NumReviews < 0 {
		return &FieldError{Field: "numReviews", Reason: "must not be negative"}
	}

	id, err := ParseObjectID(p.CategoryID)
	if err != nil {
		return &FieldError{Field: "category", Reason: "invalid id format"}
	}
	p.CategoryID = id

	p.Price = p.Price.Round(2)
	return nil
}
