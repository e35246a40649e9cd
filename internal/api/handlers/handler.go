// handler.go — основной обработчик API Catalog Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// APIHandler — основной обработчик API Catalog Module.
type APIHandler struct {
	health   *HealthHandler
	products *ProductsHandler
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	products *ProductsHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		products: products,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// Health возвращает обработчик health endpoints.
func (h *APIHandler) Health() *HealthHandler {
	return h.health
}

// Products возвращает обработчик записей каталога.
func (h *APIHandler) Products() *ProductsHandler {
	return h.products
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
