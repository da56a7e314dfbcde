package handler

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status   string `json:"status"`
	Env      string `json:"env"`
	Database string `json:"database"`
}

// Health сообщает состояние сервиса и доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	db := "connected"
	if err := h.service.Ping(ctx); err != nil {
		db = "disconnected"
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Env: h.env, Database: db})
}
