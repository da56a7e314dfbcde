package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

type stubRecorder struct {
	mu       sync.Mutex
	placed   int
	rejected map[string]int
}

func (r *stubRecorder) OrderPlaced(order *model.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed++
}

func (r *stubRecorder) OrderRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejected == nil {
		r.rejected = make(map[string]int)
	}
	r.rejected[reason]++
}

type stubCache struct {
	categories  []model.Category
	hit         bool
	sets        int
	invalidated int
}

func (c *stubCache) GetCategories(ctx context.Context) ([]model.Category, bool, error) {
	return c.categories, c.hit, nil
}

func (c *stubCache) SetCategories(ctx context.Context, categories []model.Category) error {
	c.sets++
	c.categories = categories
	return nil
}

func (c *stubCache) InvalidateCategories(ctx context.Context) error {
	c.invalidated++
	c.hit = false
	return nil
}

var testAddress = model.ShippingAddress{
	FullName:   "Jane Doe",
	Address:    "1 Main St",
	City:       "Springfield",
	State:      "IL",
	PostalCode: "62701",
	Country:    "US",
}

type fixture struct {
	svc      *Service
	repo     *repository.MemoryRepository
	recorder *stubRecorder
	user     *model.User
	category model.Category
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	repo := repository.NewMemoryRepository()
	rec := &stubRecorder{}
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost), WithRecorder(rec)}, opts...)
	svc := NewService(repo, opts...)

	c := model.Category{
		ID:          "000000000000000000000003",
		Slug:        "electronics",
		Name:        "Electronics",
		Description: "Gadgets, devices and electronic accessories",
		Image:       "electronics.jpg",
	}
	require.NoError(t, repo.CreateCategory(context.Background(), &c))

	u, err := svc.RegisterUser(context.Background(), "jane", "jane@example.com", "secret123")
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, recorder: rec, user: u, category: c}
}

func (f *fixture) addProduct(t *testing.T, name, price string, stock int) *model.Product {
	t.Helper()

	p, err := f.svc.CreateProduct(context.Background(), &model.Product{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Description: name + " description",
		CategoryID:  f.category.ID,
		Stock:       stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()

	p, err := f.repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func orderFor(method model.PaymentMethod, lines ...model.OrderLine) model.OrderRequest {
	return model.OrderRequest{
		Items:           lines,
		ShippingAddress: testAddress,
		PaymentMethod:   method,
	}
}

func TestRegisterUser_StoresHashOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stored, err := f.repo.GetUserByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))

	u, err := f.svc.AuthenticateUser(ctx, "  JANE@example.com ", " secret123 ")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, u.ID)
}

func TestRegisterUser_NormalizesEmail(t *testing.T) {
	f := newFixture(t)

	u, err := f.svc.RegisterUser(context.Background(), " john ", "  John@Example.COM ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "john", u.Username)
	assert.Equal(t, "john@example.com", u.Email)
}

func TestRegisterUser_Conflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterUser(ctx, "jane", "another@example.com", "secret123")
	assert.ErrorIs(t, err, repository.ErrUserExists)

	_, err = f.svc.RegisterUser(ctx, "janet", "Jane@Example.com", "secret123")
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestRegisterUser_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterUser(context.Background(), "short", "short@example.com", "123")
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestAuthenticateUser_InvalidCredentialsAreUndifferentiated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, wrongPassword := f.svc.AuthenticateUser(ctx, "jane@example.com", "wrong-password")
	_, unknownEmail := f.svc.AuthenticateUser(ctx, "nobody@example.com", "secret123")
	_, empty := f.svc.AuthenticateUser(ctx, "", "")

	assert.Equal(t, ErrInvalidCredentials, wrongPassword)
	assert.Equal(t, ErrInvalidCredentials, unknownEmail)
	assert.Equal(t, ErrInvalidCredentials, empty)
}

func TestPlaceOrder_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	headphones := f.addProduct(t, "Headphones", "100.00", 5)

	order, err := f.svc.PlaceOrder(ctx, f.user.ID, orderFor(model.PaymentCreditCard,
		model.OrderLine{ProductID: headphones.ID, Quantity: 2}))
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("210.00")), "total = %s", order.TotalAmount)
	assert.Equal(t, model.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, 3, f.stock(t, headphones.ID))

	_, err = f.svc.PlaceOrder(ctx, f.user.ID, orderFor(model.PaymentCreditCard,
		model.OrderLine{ProductID: headphones.ID, Quantity: 10}))

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "expected InsufficientStockError, got %v", err)
	assert.Equal(t, "Headphones", stockErr.Product)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, "Not enough stock for Headphones. Available: 3", stockErr.Message())
	assert.Equal(t, 3, f.stock(t, headphones.ID))

	assert.Equal(t, 1, f.recorder.placed)
	assert.Equal(t, 1, f.recorder.rejected["insufficient_stock"])
}

func TestPlaceOrder_TotalUsesCapturedPrices(t *testing.T) {
	f := newFixture(t)
	tee := f.addProduct(t, "T-Shirt", "29.99", 100)
	phones := f.addProduct(t, "Wireless Headphones", "129.99", 75)

	order, err := f.svc.PlaceOrder(context.Background(), f.user.ID, orderFor(model.PaymentDebitCard,
		model.OrderLine{ProductID: tee.ID, Quantity: 3},
		model.OrderLine{ProductID: phones.ID, Quantity: 1},
	))
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range order.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	assert.True(t, order.TotalAmount.Equal(sum.Add(ShippingFee)))
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("229.96")), "total = %s", order.TotalAmount)
	assert.True(t, order.Items[0].Price.Equal(decimal.RequireFromString("29.99")))
	assert.True(t, order.Items[1].Price.Equal(decimal.RequireFromString("129.99")))
}

func TestPlaceOrder_PaymentStatus(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Lamp", "15.00", 10)

	tests := []struct {
		method model.PaymentMethod
		want   model.PaymentStatus
	}{
		{model.PaymentCashOnDelivery, model.PaymentStatusPending},
		{model.PaymentCreditCard, model.PaymentStatusCompleted},
		{model.PaymentDebitCard, model.PaymentStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			order, err := f.svc.PlaceOrder(context.Background(), f.user.ID, orderFor(tt.method,
				model.OrderLine{ProductID: p.ID, Quantity: 1}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, order.PaymentStatus)
		})
	}
}

func TestPlaceOrder_MissingProductMutatesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Lamp", "15.00", 10)

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, orderFor(model.PaymentCreditCard,
		model.OrderLine{ProductID: p.ID, Quantity: 2},
		model.OrderLine{ProductID: "999", Quantity: 1},
	))
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Contains(t, err.Error(), "000000000000000000000999")
	assert.Equal(t, 10, f.stock(t, p.ID))
}

func TestPlaceOrder_LaterLineShortMutatesNothing(t *testing.T) {
	f := newFixture(t)
	first := f.addProduct(t, "Lamp", "15.00", 10)
	second := f.addProduct(t, "Chair", "45.00", 1)

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, orderFor(model.PaymentCreditCard,
		model.OrderLine{ProductID: first.ID, Quantity: 2},
		model.OrderLine{ProductID: second.ID, Quantity: 2},
	))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 10, f.stock(t, first.ID))
	assert.Equal(t, 1, f.stock(t, second.ID))
}

func TestPlaceOrder_RepeatedLinesAreSummed(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Lamp", "15.00", 3)

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, orderFor(model.PaymentCreditCard,
		model.OrderLine{ProductID: p.ID, Quantity: 2},
		model.OrderLine{ProductID: p.ID, Quantity: 2},
	))
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestPlaceOrder_QuantitySumDoesNotWrap(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Headphones", "100.00", 5)

	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, orderFor(model.PaymentCreditCard,
		model.OrderLine{ProductID: p.ID, Quantity: 2},
		model.OrderLine{ProductID: p.ID, Quantity: math.MaxInt64},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Equal(t, 1, f.recorder.rejected["validation"])
	assert.Equal(t, 5, f.stock(t, p.ID))

	orders, err := f.svc.GetOrdersByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestBuildOrder_HugeQuantitiesRejected(t *testing.T) {
	products := map[string]model.Product{
		"p1": {ID: "p1", Name: "Headphones", Price: decimal.NewFromInt(100), Stock: 5},
	}

	tests := []struct {
		name  string
		lines []model.OrderLine
	}{
		{
			name:  "sum wraps to a small number",
			lines: []model.OrderLine{{ProductID: "p1", Quantity: 3}, {ProductID: "p1", Quantity: math.MaxInt64}, {ProductID: "p1", Quantity: math.MaxInt64}},
		},
		{
			name:  "second line overflows",
			lines: []model.OrderLine{{ProductID: "p1", Quantity: 2}, {ProductID: "p1", Quantity: math.MaxInt64}},
		},
		{
			name:  "negative line hides excess",
			lines: []model.OrderLine{{ProductID: "p1", Quantity: 10}, {ProductID: "p1", Quantity: -6}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := buildOrder(orderFor(model.PaymentCreditCard, tt.lines...), products)
			assert.Nil(t, order)

			var stockErr *InsufficientStockError
			require.True(t, errors.As(err, &stockErr), "expected InsufficientStockError, got %v", err)
			assert.Equal(t, 5, stockErr.Available)
			assert.Greater(t, stockErr.Requested, stockErr.Available)
		})
	}
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Lamp", "15.00", 3)

	req := orderFor("paypal", model.OrderLine{ProductID: p.ID, Quantity: 1})
	_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, req)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	assert.Equal(t, 1, f.recorder.rejected["validation"])
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestPlaceOrder_ConcurrentOrdersForLastUnit(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Headphones", "100.00", 1)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PlaceOrder(context.Background(), f.user.ID, orderFor(model.PaymentCreditCard,
				model.OrderLine{ProductID: p.ID, Quantity: 1}))
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, f.stock(t, p.ID))
}

func TestGetOrder_OwnOrdersOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Lamp", "15.00", 3)

	order, err := f.svc.PlaceOrder(ctx, f.user.ID, orderFor(model.PaymentCreditCard,
		model.OrderLine{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)

	other, err := f.svc.RegisterUser(ctx, "john", "john@example.com", "secret123")
	require.NoError(t, err)

	got, err := f.svc.GetOrder(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.svc.GetOrder(ctx, other.ID, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	_, err = f.svc.GetOrder(ctx, f.user.ID, "not-an-id")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	orders, err := f.svc.GetOrdersByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestGetProduct_LegacyNumericID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateProduct(ctx, &model.Product{
		ID:          "000000000000000000000101",
		Name:        "Classic White T-Shirt",
		Price:       decimal.RequireFromString("29.99"),
		Description: "Cotton",
		CategoryID:  "3",
		Stock:       100,
	})
	require.NoError(t, err)

	p, err := f.svc.GetProduct(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "Classic White T-Shirt", p.Name)
	assert.Equal(t, "electronics", p.Category.Slug)

	_, err = f.svc.GetProduct(ctx, "zzz")
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = f.svc.GetProduct(ctx, "102")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProduct(context.Background(), &model.Product{
		Name:        "Orphan",
		Price:       decimal.NewFromInt(1),
		Description: "No category",
		CategoryID:  "42",
	})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestListCategories_UsesCache(t *testing.T) {
	cache := &stubCache{}
	f := newFixture(t, WithCategoryCache(cache))
	ctx := context.Background()

	categories, err := f.svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, 1, cache.sets)

	cache.hit = true
	cache.categories = []model.Category{{Slug: "cached"}}

	categories, err = f.svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cached", categories[0].Slug)

	f.addProduct(t, "Lamp", "15.00", 3)
	assert.Equal(t, 1, cache.invalidated)

	categories, err = f.svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "electronics", categories[0].Slug)
	assert.Equal(t, 1, categories[0].ProductCount)
}
