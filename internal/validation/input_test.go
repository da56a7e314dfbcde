package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
)

func validOrderRequest() model.OrderRequest {
	return model.OrderRequest{
		Items: []model.OrderLine{{ProductID: "103", Quantity: 2}},
		ShippingAddress: model.ShippingAddress{
			FullName:   " Jane Doe ",
			Address:    "1 Main St",
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62701",
			Country:    "US",
		},
		PaymentMethod: model.PaymentCreditCard,
	}
}

func TestNormalizeOrderRequest(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *model.OrderRequest)
		wantField string
	}{
		{
			name:   "valid request",
			mutate: func(r *model.OrderRequest) {},
		},
		{
			name:      "empty items",
			mutate:    func(r *model.OrderRequest) { r.Items = nil },
			wantField: "items",
		},
		{
			name:      "zero quantity",
			mutate:    func(r *model.OrderRequest) { r.Items[0].Quantity = 0 },
			wantField: "items[0].quantity",
		},
		{
			name:      "quantity above int32",
			mutate:    func(r *model.OrderRequest) { r.Items[0].Quantity = math.MaxInt32 + 1 },
			wantField: "items[0].quantity",
		},
		{
			name: "quantity wrapping int64 on a later line",
			mutate: func(r *model.OrderRequest) {
				r.Items = append(r.Items, model.OrderLine{ProductID: "103", Quantity: math.MaxInt64})
			},
			wantField: "items[1].quantity",
		},
		{
			name:      "bad product id",
			mutate:    func(r *model.OrderRequest) { r.Items[0].ProductID = "xyz" },
			wantField: "items[0].product",
		},
		{
			name:      "blank city",
			mutate:    func(r *model.OrderRequest) { r.ShippingAddress.City = "   " },
			wantField: "shippingAddress.city",
		},
		{
			name:      "unknown payment method",
			mutate:    func(r *model.OrderRequest) { r.PaymentMethod = "bitcoin" },
			wantField: "paymentMethod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validOrderRequest()
			tt.mutate(&req)

			err := NormalizeOrderRequest(&req)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "000000000000000000000103", req.Items[0].ProductID)
				assert.Equal(t, "Jane Doe", req.ShippingAddress.FullName)
				return
			}

			var fe *FieldError
			require.True(t, errors.As(err, &fe), "expected FieldError, got %v", err)
			assert.Equal(t, tt.wantField, fe.Field)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	assert.NoError(t, ValidateRegistration("jane", "jane@example.com", "secret1"))
	assert.ErrorIs(t, ValidateRegistration("", "jane@example.com", "secret1"), ErrInvalid)
	assert.ErrorIs(t, ValidateRegistration("jane", "not-an-email", "secret1"), ErrInvalid)
	assert.ErrorIs(t, ValidateRegistration("jane", "jane@example.com", "123"), ErrInvalid)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}

func TestValidateProduct(t *testing.T) {
	p := &model.Product{
		Name:        " Headphones ",
		Description: "Wireless",
		Price:       decimal.RequireFromString("99.999"),
		CategoryID:  "3",
		Stock:       5,
	}
	require.NoError(t, ValidateProduct(p))
	assert.Equal(t, "Headphones", p.Name)
	assert.Equal(t, "000000000000000000000003", p.CategoryID)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("100.00")))

	p.Price = decimal.NewFromInt(-1)
	assert.ErrorIs(t, ValidateProduct(p), ErrInvalid)

	p.Price = decimal.NewFromInt(1)
	p.Stock = -1
	assert.ErrorIs(t, ValidateProduct(p), ErrInvalid)
}

func TestValidateProduct_UpperBounds(t *testing.T) {
	newProduct := func() *model.Product {
		return &model.Product{Name: "Headphones", Description: "Wireless", Price: decimal.NewFromInt(100), CategoryID: "3", Stock: 5}
	}

	tests := []struct {
		name      string
		mutate    func(p *model.Product)
		wantField string
	}{
		{name: "price at limit", mutate: func(p *model.Product) { p.Price = MaxPrice }},
		{name: "stock at limit", mutate: func(p *model.Product) { p.Stock = MaxQuantity }},
		{
			name:      "price overflowing cents",
			mutate:    func(p *model.Product) { p.Price = decimal.RequireFromString("100000000000000000") },
			wantField: "price",
		},
		{
			name:      "stock above int32",
			mutate:    func(p *model.Product) { p.Stock = math.MaxInt32 + 1 },
			wantField: "stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProduct()
			tt.mutate(p)

			err := ValidateProduct(p)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var fe *FieldError
			require.True(t, errors.As(err, &fe), "expected FieldError, got %v", err)
			assert.Equal(t, tt.wantField, fe.Field)
		})
	}
}
