// lifecycle.go — lifecycle-сервис записей каталога.
//
// Единственная точка, через которую создаются, изменяются и удаляются
// записи и их ассеты. Следит за согласованностью пары запись/блоб:
//   - create: сначала блоб, потом запись (при сбое записи — компенсирующее
//     удаление блоба, хвосты добирает reconcile-обход);
//   - edit: сначала новый блоб, потом best-effort удаление старого,
//     потом обновление записи;
//   - delete: best-effort удаление блоба, потом удаление записи
//     с owner-фильтром на уровне SQL.
//
// Best-effort сбои очистки не блокируют операцию: логируются и
// возвращаются вызывающему списком Warning.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/catalogstore/catalog-module/internal/assetstore"
	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/rbac"
	"github.com/bigkaa/catalogstore/catalog-module/internal/repository"
)

// Prometheus-метрики lifecycle-операций.
var (
	lifecycleOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_lifecycle_operations_total",
		Help: "Количество lifecycle-операций над записями каталога.",
	}, []string{"operation", "result"}) // operation: create, edit, delete; result: ok, error, forbidden

	assetCleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_asset_cleanup_failures_total",
		Help: "Количество неудачных best-effort удалений блобов.",
	}, []string{"operation"})
)

// AssetStore — интерфейс хранилища ассетов, нужный lifecycle-сервису.
// Реализуется assetstore.Store.
type AssetStore interface {
	Put(ctx context.Context, payload []byte, contentType, suggestedName string) (string, error)
	Remove(ctx context.Context, locator string) error
	Read(ctx context.Context, locator string) ([]byte, string, error)
}

// ProductInput — валидированный набор полей записи от вызывающего.
type ProductInput struct {
	// Title — заголовок (минимум 3 символа)
	Title string
	// Description — описание (8–250 символов)
	Description string
	// ScheduledDate — дата записи
	ScheduledDate time.Time
	// Status — запрошенный статус; учитывается только для admin
	Status string
}

// UploadPayload — бинарный payload изображения.
type UploadPayload struct {
	// Data — содержимое файла
	Data []byte
	// ContentType — заявленный MIME-тип (image/png, image/jpg, image/jpeg)
	ContentType string
	// Filename — исходное имя файла
	Filename string
}

// ProductLifecycleService — оркестратор жизненного цикла записей.
type ProductLifecycleService struct {
	repo   repository.ProductRepository
	assets AssetStore
	cache  *CacheService
	logger *slog.Logger
}

// NewProductLifecycleService создаёт lifecycle-сервис.
// cache может быть nil — кэширование отключается.
func NewProductLifecycleService(
	repo repository.ProductRepository,
	assets AssetStore,
	cache *CacheService,
	logger *slog.Logger,
) *ProductLifecycleService {
	return &ProductLifecycleService{
		repo:   repo,
		assets: assets,
		cache:  cache,
		logger: logger.With(slog.String("component", "lifecycle_service")),
	}
}

// Create создаёт запись каталога с обязательным изображением.
//
// Порядок: валидация → запись блоба → вставка записи. При сбое вставки
// выполняется компенсирующее удаление блоба; если и оно не удалось —
// блоб остаётся сиротой до reconcile-обхода.
func (s *ProductLifecycleService) Create(
	ctx context.Context,
	principal model.Principal,
	in ProductInput,
	payload *UploadPayload,
) (*model.Product, []Warning, error) {
	if err := validatePayload(payload, true); err != nil {
		lifecycleOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, nil, err
	}
	if err := validateFields(in); err != nil {
		lifecycleOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, nil, err
	}

	// 1. Блоб — до записи в БД: при сбое хранилища не остаётся
	// записи, указывающей на несуществующий ассет.
	locator, err := s.assets.Put(ctx, payload.Data, payload.ContentType, payload.Filename)
	if err != nil {
		lifecycleOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	p := &model.Product{
		ID:               uuid.New().String(),
		OwnerID:          principal.ID,
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		ScheduledDate:    in.ScheduledDate,
		Status:           model.DefaultStatus,
		AssetLocator:     locator,
		AssetContentType: payload.ContentType,
	}

	// 2. Запись в БД
	if err := s.repo.Create(ctx, p); err != nil {
		// Компенсирующее удаление только что записанного блоба
		var warnings []Warning
		if rmErr := s.assets.Remove(ctx, locator); rmErr != nil {
			assetCleanupFailures.WithLabelValues("create").Inc()
			s.logger.Warn("Компенсирующее удаление блоба не удалось",
				slog.String("locator", locator),
				slog.String("error", rmErr.Error()),
			)
			warnings = append(warnings, Warning{
				Code:    WarnAssetCleanup,
				Message: fmt.Sprintf("блоб %s не удалён после сбоя создания записи", locator),
			})
		}
		lifecycleOpsTotal.WithLabelValues("create", "error").Inc()
		return nil, warnings, fmt.Errorf("создание записи: %w", err)
	}

	lifecycleOpsTotal.WithLabelValues("create", "ok").Inc()
	s.logger.Info("Запись каталога создана",
		slog.String("product_id", p.ID),
		slog.String("owner_id", p.OwnerID),
		slog.String("locator", locator),
	)
	return p, nil, nil
}

// Get возвращает запись по id с проверкой прав просмотра.
func (s *ProductLifecycleService) Get(ctx context.Context, principal model.Principal, id string) (*model.Product, error) {
	p, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanView(principal, p) {
		return nil, ErrForbidden
	}
	return p, nil
}

// Edit изменяет запись и, опционально, заменяет её изображение.
//
// Авторизация — явная проверка guard до любой мутации: чужая запись
// даёт ErrForbidden, а не тихий no-op. Статус правится только admin;
// для остальных любое запрошенное значение приводится к default.
// Замена изображения: новый блоб пишется до удаления старого, чтобы
// сбой записи оставил предыдущее согласованное состояние нетронутым.
func (s *ProductLifecycleService) Edit(
	ctx context.Context,
	principal model.Principal,
	id string,
	in ProductInput,
	payload *UploadPayload,
) (*model.Product, []Warning, error) {
	p, err := s.lookupFresh(ctx, id)
	if err != nil {
		lifecycleOpsTotal.WithLabelValues("edit", "error").Inc()
		return nil, nil, err
	}

	if !rbac.CanMutate(principal, p) {
		lifecycleOpsTotal.WithLabelValues("edit", "forbidden").Inc()
		return nil, nil, ErrForbidden
	}

	if err := validateFields(in); err != nil {
		lifecycleOpsTotal.WithLabelValues("edit", "error").Inc()
		return nil, nil, err
	}
	if payload != nil {
		if err := validatePayload(payload, false); err != nil {
			lifecycleOpsTotal.WithLabelValues("edit", "error").Inc()
			return nil, nil, err
		}
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Description = strings.TrimSpace(in.Description)
	p.ScheduledDate = in.ScheduledDate

	// Статус: admin выбирает, остальным — принудительно default.
	requested := in.Status
	if requested == "" {
		requested = p.Status
	}
	if principal.IsAdmin && !model.ValidStatus(requested) {
		lifecycleOpsTotal.WithLabelValues("edit", "error").Inc()
		return nil, nil, fmt.Errorf("%w: неизвестный статус %q", ErrValidation, requested)
	}
	p.Status = rbac.CoerceStatus(principal, requested)

	var warnings []Warning
	if payload != nil {
		// Новый блоб — до удаления старого.
		newLocator, putErr := s.assets.Put(ctx, payload.Data, payload.ContentType, payload.Filename)
		if putErr != nil {
			lifecycleOpsTotal.WithLabelValues("edit", "error").Inc()
			return nil, nil, fmt.Errorf("%w: %v", ErrStorage, putErr)
		}

		// Best-effort удаление старого блоба: сбой не блокирует правку.
		oldLocator := p.AssetLocator
		if rmErr := s.assets.Remove(ctx, oldLocator); rmErr != nil {
			assetCleanupFailures.WithLabelValues("edit").Inc()
			s.logger.Warn("Удаление старого блоба не удалось",
				slog.String("product_id", p.ID),
				slog.String("locator", oldLocator),
				slog.String("error", rmErr.Error()),
			)
			warnings = append(warnings, Warning{
				Code:    WarnAssetCleanup,
				Message: fmt.Sprintf("старый блоб %s не удалён", oldLocator),
			})
		}

		p.AssetLocator = newLocator
		p.AssetContentType = payload.ContentType
	}

	if err := s.repo.Update(ctx, p); err != nil {
		lifecycleOpsTotal.WithLabelValues("edit", "error").Inc()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, warnings, ErrNotFound
		}
		return nil, warnings, fmt.Errorf("обновление записи: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(p.ID)
	}

	lifecycleOpsTotal.WithLabelValues("edit", "ok").Inc()
	s.logger.Info("Запись каталога обновлена",
		slog.String("product_id", p.ID),
		slog.Bool("asset_replaced", payload != nil),
	)
	return p, warnings, nil
}

// Delete удаляет запись и её блоб.
//
// Блоб удаляется best-effort до записи: сбой хранилища не блокирует
// удаление записи (принятый риск осиротевшего блоба, который добирает
// reconcile-обход). На уровне SQL сохраняется owner-фильтр как
// дополнительная защита от гонки смены владельца.
func (s *ProductLifecycleService) Delete(ctx context.Context, principal model.Principal, id string) ([]Warning, error) {
	p, err := s.lookupFresh(ctx, id)
	if err != nil {
		lifecycleOpsTotal.WithLabelValues("delete", "error").Inc()
		return nil, err
	}

	if !rbac.CanMutate(principal, p) {
		lifecycleOpsTotal.WithLabelValues("delete", "forbidden").Inc()
		return nil, ErrForbidden
	}

	var warnings []Warning
	if rmErr := s.assets.Remove(ctx, p.AssetLocator); rmErr != nil {
		assetCleanupFailures.WithLabelValues("delete").Inc()
		s.logger.Warn("Удаление блоба не удалось",
			slog.String("product_id", p.ID),
			slog.String("locator", p.AssetLocator),
			slog.String("error", rmErr.Error()),
		)
		warnings = append(warnings, Warning{
			Code:    WarnAssetCleanup,
			Message: fmt.Sprintf("блоб %s не удалён", p.AssetLocator),
		})
	}

	var ownerFilter *string
	if !principal.IsAdmin {
		ownerFilter = &principal.ID
	}

	count, err := s.repo.Delete(ctx, id, ownerFilter)
	if err != nil {
		lifecycleOpsTotal.WithLabelValues("delete", "error").Inc()
		return warnings, fmt.Errorf("удаление записи: %w", err)
	}
	if count == 0 {
		// Запись исчезла между lookup и delete (или владелец сменился).
		lifecycleOpsTotal.WithLabelValues("delete", "error").Inc()
		return warnings, ErrNotFound
	}

	if s.cache != nil {
		s.cache.Invalidate(id)
	}

	lifecycleOpsTotal.WithLabelValues("delete", "ok").Inc()
	s.logger.Info("Запись каталога удалена",
		slog.String("product_id", id),
		slog.String("principal_id", principal.ID),
	)
	return warnings, nil
}

// List возвращает записи, видимые субъекту: admin — весь каталог,
// владелец — только свои. Сортировка — по whitelisted ключу,
// по умолчанию scheduled_date по возрастанию.
func (s *ProductLifecycleService) List(ctx context.Context, principal model.Principal, sortKey, direction string) ([]*model.Product, error) {
	if rbac.CanViewAll(principal) {
		products, err := s.repo.List(ctx, sortKey, direction)
		if err != nil {
			return nil, fmt.Errorf("список записей: %w", err)
		}
		return products, nil
	}

	products, err := s.repo.ListByOwner(ctx, principal.ID, sortKey, direction)
	if err != nil {
		return nil, fmt.Errorf("список записей владельца: %w", err)
	}
	return products, nil
}

// ReadAsset возвращает содержимое и MIME-тип изображения записи.
func (s *ProductLifecycleService) ReadAsset(ctx context.Context, principal model.Principal, id string) ([]byte, string, error) {
	p, err := s.lookup(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !rbac.CanView(principal, p) {
		return nil, "", ErrForbidden
	}

	data, ct, err := s.assets.Read(ctx, p.AssetLocator)
	if err != nil {
		if errors.Is(err, assetstore.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("чтение ассета: %w", err)
	}
	return data, ct, nil
}

// lookup возвращает запись из кэша или БД (read-путь).
func (s *ProductLifecycleService) lookup(ctx context.Context, id string) (*model.Product, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(id); ok {
			return p, nil
		}
	}

	p, err := s.lookupFresh(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(p)
	}
	return p, nil
}

// lookupFresh возвращает запись из БД, минуя кэш (mutate-путь).
func (s *ProductLifecycleService) lookupFresh(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи: %w", err)
	}
	return p, nil
}

// --- Валидация ---

// validatePayload проверяет наличие и MIME-тип изображения.
// required=true — payload обязателен (create).
func validatePayload(payload *UploadPayload, required bool) error {
	if payload == nil || len(payload.Data) == 0 {
		if required {
			return fmt.Errorf("%w: изображение отсутствует или пустое", ErrValidation)
		}
		return nil
	}
	if !assetstore.AllowedContentType(payload.ContentType) {
		return fmt.Errorf("%w: недопустимый тип изображения %q, допустимые: image/png, image/jpg, image/jpeg",
			ErrValidation, payload.ContentType)
	}
	return nil
}

// validateFields проверяет текстовые поля и дату записи.
func validateFields(in ProductInput) error {
	title := strings.TrimSpace(in.Title)
	if len([]rune(title)) < 3 {
		return fmt.Errorf("%w: заголовок короче 3 символов", ErrValidation)
	}

	descr := strings.TrimSpace(in.Description)
	n := len([]rune(descr))
	if n < 8 || n > 250 {
		return fmt.Errorf("%w: описание должно быть от 8 до 250 символов", ErrValidation)
	}

	if in.ScheduledDate.IsZero() {
		return fmt.Errorf("%w: дата записи не задана", ErrValidation)
	}
	return nil
}
