package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// MemoryRepository хранит записи в памяти процесса.
// Используется в демо-режиме без БД и в тестах; все операции сериализуются одним мьютексом.
type MemoryRepository struct {
	mu sync.RWMutex

	users      map[string]model.User
	categories map[string]model.Category
	products   map[string]model.Product
	orders     map[string]model.Order
	orderSeq   map[string]int64
	seq        int64

	now func() time.Time
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[string]model.User),
		categories: make(map[string]model.Category),
		products:   make(map[string]model.Product),
		orders:     make(map[string]model.Order),
		orderSeq:   make(map[string]int64),
		now:        time.Now,
	}
}

// Ping всегда успешен.
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает.
func (r *MemoryRepository) Close() error {
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *MemoryRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, username)
		}
	}

	u := model.User{
		ID:           validation.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	}
	r.users[u.ID] = u

	return &u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// ListCategories возвращает все категории с количеством товаров в каждой.
func (r *MemoryRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Category, 0, len(r.categories))
	for _, c := range r.categories {
		res = append(res, r.withCount(c))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })

	return res, nil
}

// GetCategoryBySlug возвращает категорию по её slug.
func (r *MemoryRepository) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.categories {
		if c.Slug == slug {
			c = r.withCount(c)
			return &c, nil
		}
	}
	return nil, ErrCategoryNotFound
}

func (r *MemoryRepository) withCount(c model.Category) model.Category {
	c.ProductCount = 0
	for _, p := range r.products {
		if p.CategoryID == c.ID {
			c.ProductCount++
		}
	}
	return c
}

// CreateCategory сохраняет новую категорию. Пустой идентификатор генерируется.
func (r *MemoryRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.categories {
		if existing.Slug == c.Slug || existing.ID == c.ID {
			return fmt.Errorf("%w: %s", ErrCategoryExists, c.Slug)
		}
	}

	if c.ID == "" {
		c.ID = validation.NewObjectID()
	}
	c.CreatedAt = r.now()
	r.categories[c.ID] = *c

	return nil
}

// ListProducts возвращает товары с категориями. Непустой categorySlug ограничивает выборку одной категорией.
func (r *MemoryRepository) ListProducts(ctx context.Context, categorySlug string) ([]model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		p = r.resolve(p)
		if categorySlug != "" && p.Category.Slug != categorySlug {
			continue
		}
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})

	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *MemoryRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	p = r.resolve(p)
	return &p, nil
}

// CountProducts возвращает количество товаров в каталоге.
func (r *MemoryRepository) CountProducts(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.products), nil
}

// CreateProduct сохраняет новый товар и возвращает его с заполненной категорией.
func (r *MemoryRepository) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[p.CategoryID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, p.CategoryID)
	}
	if p.ID == "" {
		p.ID = validation.NewObjectID()
	}
	if _, ok := r.products[p.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrProductExists, p.ID)
	}

	stored := *p
	stored.Category = nil
	stored.Images = cloneStrings(p.Images)
	stored.Sizes = cloneStrings(p.Sizes)
	stored.Colors = cloneStrings(p.Colors)
	stored.Features = cloneStrings(p.Features)
	stored.CreatedAt = r.now()
	r.products[stored.ID] = stored

	res := r.resolve(stored)
	return &res, nil
}

// resolve возвращает копию товара с заполненной категорией. Вызывается под мьютексом.
func (r *MemoryRepository) resolve(p model.Product) model.Product {
	p.Images = cloneStrings(p.Images)
	p.Sizes = cloneStrings(p.Sizes)
	p.Colors = cloneStrings(p.Colors)
	p.Features = cloneStrings(p.Features)
	if c, ok := r.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	return p
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// PlaceOrder резервирует остатки и сохраняет заказ атомарно относительно других операций хранилища.
func (r *MemoryRepository) PlaceOrder(ctx context.Context, userID string, lines []model.OrderLine, build BuildOrderFunc) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	products := make(map[string]model.Product, len(lines))
	for _, l := range lines {
		if p, ok := r.products[l.ProductID]; ok {
			products[p.ID] = r.resolve(p)
		}
	}

	order, err := build(products)
	if err != nil {
		return nil, err
	}

	reserved, err := reservations(order.Items)
	if err != nil {
		return nil, err
	}
	for id, qty := range reserved {
		p, ok := r.products[id]
		if !ok || p.Stock < qty {
			return nil, fmt.Errorf("%w: %s", ErrStockConflict, id)
		}
	}
	for id, qty := range reserved {
		p := r.products[id]
		p.Stock -= qty
		r.products[id] = p
	}

	r.seq++
	order.ID = validation.NewObjectID()
	order.UserID = userID
	order.CreatedAt = r.now()
	r.orders[order.ID] = cloneOrder(*order)
	r.orderSeq[order.ID] = r.seq

	for i := range order.Items {
		if p := order.Items[i].Product; p != nil {
			p.Stock = r.products[p.ID].Stock
		}
	}

	return order, nil
}

// GetOrdersByUser возвращает заказы пользователя от новых к старым с товарами в позициях.
func (r *MemoryRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			res = append(res, r.populate(o))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return r.orderSeq[res[i].ID] > r.orderSeq[res[j].ID]
	})

	return res, nil
}

// GetOrder возвращает заказ пользователя по идентификатору.
func (r *MemoryRepository) GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	o = r.populate(o)
	return &o, nil
}

// populate подставляет в позиции заказа актуальные данные товаров.
func (r *MemoryRepository) populate(o model.Order) model.Order {
	o = cloneOrder(o)
	for i := range o.Items {
		if p, ok := r.products[o.Items[i].ProductID]; ok {
			p = r.resolve(p)
			o.Items[i].Product = &p
		}
	}
	return o
}

func cloneOrder(o model.Order) model.Order {
	items := make([]model.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.Product = nil
		items[i] = it
	}
	o.Items = items
	return o
}
