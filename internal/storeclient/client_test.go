package storeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProduct_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/products/101", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Product{ID: "000000000000000000000101", Name: "Classic White T-Shirt", Price: 29.99, Stock: 100})
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := NewClient(ts.URL).GetProduct(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, "Classic White T-Shirt", p.Name)
	assert.Equal(t, 29.99, p.Price)
}

func TestPlaceOrder_SendsTokenAndBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req PlaceOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cash_on_delivery", req.PaymentMethod)
		require.Len(t, req.Items, 1)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Order{ID: "o1", PaymentStatus: "pending", TotalAmount: 39.99})
	}))
	defer ts.Close()

	c := NewClient(ts.URL + "/").WithToken("tkn")
	o, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items:         []OrderLine{{Product: "101", Quantity: 1}},
		PaymentMethod: "cash_on_delivery",
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", o.PaymentStatus)
	assert.Equal(t, 39.99, o.TotalAmount)
}

func TestAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Not enough stock for Headphones. Available: 3"}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Not enough stock for Headphones. Available: 3", apiErr.Message)
}

func TestAPIError_TooManyRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).ListProducts(context.Background(), "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, 5*time.Second, apiErr.RetryAfter)
	assert.Equal(t, http.StatusText(http.StatusTooManyRequests), apiErr.Message)
}

func TestListProducts_CategoryQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "home-living", r.URL.Query().Get("category"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	products, err := NewClient(ts.URL).ListProducts(context.Background(), "home-living")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestNotConfigured(t *testing.T) {
	_, err := NewClient("").Health(context.Background())
	assert.Error(t, err)
}
