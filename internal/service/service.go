// Package service реализует бизнес-логику витрины магазина.
package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

// Repository описывает контракт хранилища записей, используемый сервисом.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, username, email, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)
	ListProducts(ctx context.Context, categorySlug string) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)

	PlaceOrder(ctx context.Context, userID string, lines []model.OrderLine, build repository.BuildOrderFunc) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error)
}

// CategoryCache кэширует список категорий.
type CategoryCache interface {
	GetCategories(ctx context.Context) ([]model.Category, bool, error)
	SetCategories(ctx context.Context, categories []model.Category) error
	InvalidateCategories(ctx context.Context) error
}

// OrderRecorder получает события оформления заказов, например для метрик.
type OrderRecorder interface {
	OrderPlaced(order *model.Order)
	OrderRejected(reason string)
}

// Service содержит бизнес-логику витрины магазина.
type Service struct {
	repo     Repository
	cache    CategoryCache
	recorder OrderRecorder
	logger   *zap.Logger

	bcryptCost int
	dummyHash  []byte
}

// Option настраивает Service.
type Option func(*Service)

// WithCategoryCache включает кэширование списка категорий.
func WithCategoryCache(c CategoryCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRecorder подключает получателя событий заказов.
func WithRecorder(r OrderRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger задаёт логгер для некритичных ошибок (например, недоступности кэша).
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBcryptCost задаёт стоимость хэширования паролей.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService создаёт новый сервис поверх указанного хранилища.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		logger:     zap.NewNop(),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}

	// dummyHash проверяется при входе с неизвестным email.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), s.bcryptCost)

	return s
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
