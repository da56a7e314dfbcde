// Package storeclient предоставляет HTTP-клиент для API витрины магазина.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client инкапсулирует HTTP-взаимодействие с API витрины магазина.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError описывает ответ API с кодом ошибки.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api: status %d: %s", e.StatusCode, e.Message)
}

// IsStatus сообщает, что err является ответом API с указанным кодом.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// NewClient создаёт HTTP-клиент для обращения к API по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// WithToken возвращает копию клиента, отправляющую указанный токен сессии.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token возвращает текущий токен сессии.
func (c *Client) Token() string {
	return c.token
}

// Register регистрирует пользователя.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Login выполняет вход пользователя.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me возвращает профиль владельца токена.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var res User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListProducts возвращает товары каталога, а при непустом category только одной категории.
func (c *Client) ListProducts(ctx context.Context, category string) ([]Product, error) {
	path := "/api/products"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var res []Product
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetProduct возвращает товар по идентификатору.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var res Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateProduct добавляет товар в каталог.
func (c *Client) CreateProduct(ctx context.Context, p NewProduct) (*Product, error) {
	var res Product
	if err := c.do(ctx, http.MethodPost, "/api/products", p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListCategories возвращает категории каталога.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var res []Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// PlaceOrder оформляет заказ.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	var res Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// MyOrders возвращает заказы владельца токена.
func (c *Client) MyOrders(ctx context.Context) ([]Order, error) {
	var res []Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/my-orders", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetOrder возвращает заказ владельца токена.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var res Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Health запрашивает состояние сервиса.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var res Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("storefront client not configured")
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	if resp.StatusCode == http.StatusTooManyRequests {
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, err := strconv.Atoi(v); err == nil {
				apiErr.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}
