// products.go — HTTP handlers операций над записями каталога.
// Create, List, Get, Update, Delete, чтение изображения.
// Multipart form: image (файл), title, description, scheduled_date, status.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/catalogstore/catalog-module/internal/api/errors"
	"github.com/bigkaa/catalogstore/catalog-module/internal/api/middleware"
	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
	"github.com/bigkaa/catalogstore/catalog-module/internal/service"
)

// scheduledDateLayout — формат поля scheduled_date в multipart form.
const scheduledDateLayout = "2006-01-02"

// ProductsHandler — обработчик endpoints записей каталога.
type ProductsHandler struct {
	lifecycle      *service.ProductLifecycleService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewProductsHandler создаёт обработчик записей каталога.
// maxUploadBytes — лимит размера multipart body (CM_MAX_UPLOAD_BYTES).
func NewProductsHandler(lifecycle *service.ProductLifecycleService, maxUploadBytes int64, logger *slog.Logger) *ProductsHandler {
	return &ProductsHandler{
		lifecycle:      lifecycle,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "products_handler")),
	}
}

// productResponse — представление записи каталога в API.
type productResponse struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	ScheduledDate    string `json:"scheduled_date"`
	Status           string `json:"status"`
	AssetLocator     string `json:"asset_locator"`
	AssetContentType string `json:"asset_content_type"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// warningResponse — не-фатальный сбой внутри успешной операции.
type warningResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// mutationResponse — ответ мутирующих операций: запись + предупреждения.
type mutationResponse struct {
	Product  *productResponse  `json:"product,omitempty"`
	Warnings []warningResponse `json:"warnings,omitempty"`
}

// listResponse — ответ списка записей.
type listResponse struct {
	Products []*productResponse `json:"products"`
	Count    int                `json:"count"`
}

func toProductResponse(p *model.Product) *productResponse {
	return &productResponse{
		ID:               p.ID,
		OwnerID:          p.OwnerID,
		Title:            p.Title,
		Description:      p.Description,
		ScheduledDate:    p.ScheduledDate.UTC().Format(scheduledDateLayout),
		Status:           p.Status,
		AssetLocator:     p.AssetLocator,
		AssetContentType: p.AssetContentType,
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toWarningResponses(warnings []service.Warning) []warningResponse {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]warningResponse, 0, len(warnings))
	for _, warn := range warnings {
		out = append(out, warningResponse{Code: warn.Code, Message: warn.Message})
	}
	return out
}

// CreateProduct обрабатывает POST /api/v1/products.
// Multipart form: image (обязательно), title, description, scheduled_date, status.
func (h *ProductsHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствует аутентифицированный субъект")
		return
	}

	in, payload, ok := h.parseMultipart(w, r)
	if !ok {
		return
	}

	p, warnings, err := h.lifecycle.Create(r.Context(), principal, in, payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mutationResponse{
		Product:  toProductResponse(p),
		Warnings: toWarningResponses(warnings),
	})
}

// ListProducts обрабатывает GET /api/v1/products.
// Query параметры: sort (scheduled_date, title, status, created_at), direction (asc, desc).
// Admin видит весь каталог, владелец — только свои записи.
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствует аутентифицированный субъект")
		return
	}

	sortKey := r.URL.Query().Get("sort")
	direction := r.URL.Query().Get("direction")

	products, err := h.lifecycle.List(r.Context(), principal, sortKey, direction)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := listResponse{Products: make([]*productResponse, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}
	resp.Count = len(resp.Products)

	writeJSON(w, http.StatusOK, resp)
}

// GetProduct обрабатывает GET /api/v1/products/{productId}.
func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствует аутентифицированный субъект")
		return
	}

	p, err := h.lifecycle.Get(r.Context(), principal, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// UpdateProduct обрабатывает PUT /api/v1/products/{productId}.
// Multipart form: image (опционально — без него изображение сохраняется),
// title, description, scheduled_date, status (учитывается только для admin).
func (h *ProductsHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствует аутентифицированный субъект")
		return
	}

	in, payload, ok := h.parseMultipart(w, r)
	if !ok {
		return
	}

	p, warnings, err := h.lifecycle.Edit(r.Context(), principal, chi.URLParam(r, "productId"), in, payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Product:  toProductResponse(p),
		Warnings: toWarningResponses(warnings),
	})
}

// DeleteProduct обрабатывает DELETE /api/v1/products/{productId}.
// Возвращает 200 с предупреждениями (сбой удаления блоба не блокирует
// удаление записи, но должен быть виден вызывающему).
func (h *ProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствует аутентифицированный субъект")
		return
	}

	warnings, err := h.lifecycle.Delete(r.Context(), principal, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{Warnings: toWarningResponses(warnings)})
}

// GetProductAsset обрабатывает GET /api/v1/products/{productId}/asset.
// Возвращает содержимое изображения с исходным Content-Type.
func (h *ProductsHandler) GetProductAsset(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		apierrors.Unauthorized(w, "Отсутствует аутентифицированный субъект")
		return
	}

	data, contentType, err := h.lifecycle.ReadAsset(r.Context(), principal, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// --- Вспомогательные функции ---

// parseMultipart разбирает multipart form в ProductInput + UploadPayload.
// Отсутствие файла image — не ошибка парсинга: обязательность payload
// решает сервисный слой (create — обязателен, edit — опционален).
// При ошибке пишет ответ и возвращает ok=false.
func (h *ProductsHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (service.ProductInput, *service.UploadPayload, bool) {
	var in service.ProductInput

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return in, nil, false
	}

	in.Title = r.FormValue("title")
	in.Description = r.FormValue("description")
	in.Status = r.FormValue("status")

	if dateStr := r.FormValue("scheduled_date"); dateStr != "" {
		date, err := time.Parse(scheduledDateLayout, dateStr)
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Поле scheduled_date должно быть в формате %s", scheduledDateLayout))
			return in, nil, false
		}
		in.ScheduledDate = date
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, nil, true
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка чтения поля image: %s", err.Error()))
		return in, nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка чтения файла: %s", err.Error()))
		return in, nil, false
	}

	payload := &service.UploadPayload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}
	return in, payload, true
}

// writeServiceError маппит ошибки сервисного слоя в HTTP-ответы.
func (h *ProductsHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись не найдена")
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, "Запись принадлежит другому владельцу")
	case errors.Is(err, service.ErrStorage):
		apierrors.StorageUnavailable(w, "Хранилище ассетов недоступно")
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
