// Package handler содержит HTTP-обработчики API витрины магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/metrics"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/validation"
)

// maxBodyBytes ограничивает размер тела запроса.
const maxBodyBytes = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, username, email, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)

	ListProducts(ctx context.Context, categorySlug string) ([]model.Product, error)
	GetProduct(ctx context.Context, rawID string) (*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, slug string) (*model.Category, error)

	PlaceOrder(ctx context.Context, userID string, req model.OrderRequest) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, userID, rawOrderID string) (*model.Order, error)

	Ping(ctx context.Context) error
}

// Handler реализует HTTP-обработчики API витрины магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        *metrics.Metrics
	env            string
}

// Option настраивает Handler.
type Option func(*Handler)

// WithMetrics подключает метрики HTTP-запросов и маршрут /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithEnv задаёт окружение. В окружении development ответы 500 содержат текст ошибки.
func WithEnv(env string) Option {
	return func(h *Handler) { h.env = env }
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		env:            "production",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) isDevelopment() bool {
	return h.env == "development"
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// writeInternal пишет в журнал непредвиденную ошибку и отвечает 500.
func (h *Handler) writeInternal(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	h.logger.Error(op+" error", append(fields, zap.Error(err))...)

	message := "Internal server error"
	if h.isDevelopment() {
		message = err.Error()
	}
	writeError(w, http.StatusInternalServerError, message)
}

// writeServiceError переводит ошибку бизнес-логики в HTTP-статус и сообщение.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	var (
		stockErr *service.InsufficientStockError
		fieldErr *validation.FieldError
	)

	switch {
	case errors.As(err, &stockErr):
		writeError(w, http.StatusBadRequest, stockErr.Message())
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusBadRequest, fieldErr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, repository.ErrUserExists):
		writeError(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, repository.ErrProductExists):
		writeError(w, http.StatusBadRequest, "Product already exists")
	case errors.Is(err, repository.ErrCategoryExists):
		writeError(w, http.StatusBadRequest, "Category already exists")
	case errors.Is(err, repository.ErrStockConflict):
		writeError(w, http.StatusBadRequest, "Not enough stock")
	case errors.Is(err, repository.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "Category not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, repository.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.writeInternal(w, op, err, fields...)
	}
}

// currentUser возвращает идентификатор пользователя, установленный AuthMiddleware.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
	}
	return userID, ok
}
