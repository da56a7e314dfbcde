package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PlaceOrder оформляет заказ текущего пользователя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), userID, req.toModel())
	if err != nil {
		h.writeServiceError(w, "place order", err, zap.String("userID", userID))
		return
	}

	h.logger.Info("order placed",
		zap.String("orderID", order.ID),
		zap.String("userID", userID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// MyOrders возвращает заказы текущего пользователя от новых к старым.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "get orders", err, zap.String("userID", userID))
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ текущего пользователя по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	order, err := h.service.GetOrder(r.Context(), userID, id)
	if err != nil {
		h.writeServiceError(w, "get order", err, zap.String("userID", userID), zap.String("orderID", id))
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}
