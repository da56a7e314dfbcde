package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/validation"
)

// ListProducts возвращает товары каталога. Параметр category ограничивает выборку одной категорией.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeServiceError(w, "list products", err)
		return
	}

	resp := make([]*productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toProductResponse(&products[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		var fieldErr *validation.FieldError
		if errors.As(err, &fieldErr) {
			writeError(w, http.StatusBadRequest, "Invalid product ID format")
			return
		}
		h.writeServiceError(w, "get product", err, zap.String("productID", id))
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.service.CreateProduct(r.Context(), req.toModel())
	if err != nil {
		h.writeServiceError(w, "create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// ListCategories возвращает все категории каталога.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, "list categories", err)
		return
	}

	resp := make([]*categoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, toCategoryResponse(&categories[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCategory возвращает категорию по slug.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	c, err := h.service.GetCategory(r.Context(), slug)
	if err != nil {
		h.writeServiceError(w, "get category", err, zap.String("slug", slug))
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}
