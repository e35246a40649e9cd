// Пакет assetstore — адаптер хранилища бинарных ассетов (изображений)
// поверх gocloud.dev/blob. Единый интерфейс над локальной файловой системой
// (file://) и S3-совместимым объектным хранилищем (s3://).
// Конфигурация backend передаётся явно через URL бакета, без ambient-состояния.
package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// Драйверы бакетов: локальная ФС и S3.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

// Ошибки адаптера хранилища.
var (
	// ErrWrite — backend отклонил запись блоба.
	ErrWrite = errors.New("ошибка записи в хранилище ассетов")
	// ErrDelete — backend отклонил удаление блоба.
	ErrDelete = errors.New("ошибка удаления из хранилища ассетов")
	// ErrNotFound — блоб с указанным локатором отсутствует.
	ErrNotFound = errors.New("ассет не найден")
)

// extByContentType — расширение файла по MIME-типу изображения.
var extByContentType = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpg",
}

// AllowedContentType проверяет, принимается ли MIME-тип как изображение.
func AllowedContentType(ct string) bool {
	_, ok := extByContentType[ct]
	return ok
}

// Object — метаданные блоба в хранилище (для reconcile-обхода).
type Object struct {
	// Locator — ключ блоба
	Locator string
	// ModTime — время последней записи
	ModTime time.Time
}

// Store — адаптер хранилища ассетов.
// Не содержит разделяемого мутируемого состояния, безопасен для
// конкурентного использования по несвязанным локаторам.
type Store struct {
	bucket *blob.Bucket
	logger *slog.Logger
}

// New открывает бакет по URL (file:///var/lib/catalog/assets, s3://bucket)
// и возвращает адаптер хранилища.
func New(ctx context.Context, bucketURL string, logger *slog.Logger) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия бакета %q: %w", bucketURL, err)
	}
	return NewFromBucket(bucket, logger), nil
}

// NewFromBucket создаёт адаптер над готовым бакетом.
// Используется в тестах с memblob.
func NewFromBucket(bucket *blob.Bucket, logger *slog.Logger) *Store {
	return &Store{
		bucket: bucket,
		logger: logger.With(slog.String("component", "assetstore")),
	}
}

// Put записывает новый блоб под коллизионно-устойчивым именем
// (timestamp + UUID + расширение по MIME-типу) и возвращает локатор.
// Повторные вызовы с одинаковым содержимым создают разные блобы.
func (s *Store) Put(ctx context.Context, payload []byte, contentType, suggestedName string) (string, error) {
	locator := buildLocator(contentType, suggestedName)

	opts := &blob.WriterOptions{ContentType: contentType}
	if err := s.bucket.WriteAll(ctx, locator, payload, opts); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrWrite, locator, err)
	}

	s.logger.Debug("Ассет записан",
		slog.String("locator", locator),
		slog.String("content_type", contentType),
		slog.Int("size", len(payload)),
	)
	return locator, nil
}

// Remove удаляет блоб по локатору.
// Отсутствие блоба не считается ошибкой (идемпотентное удаление).
func (s *Store) Remove(ctx context.Context, locator string) error {
	err := s.bucket.Delete(ctx, locator)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrDelete, locator, err)
	}
	return nil
}

// Read возвращает содержимое и MIME-тип блоба по локатору.
func (s *Store) Read(ctx context.Context, locator string) ([]byte, string, error) {
	r, err := s.bucket.NewReader(ctx, locator, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("ошибка чтения ассета %s: %w", locator, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка чтения ассета %s: %w", locator, err)
	}
	return data, r.ContentType(), nil
}

// Exists проверяет наличие блоба по локатору.
func (s *Store) Exists(ctx context.Context, locator string) (bool, error) {
	return s.bucket.Exists(ctx, locator)
}

// List возвращает все блобы бакета (локатор + время записи).
// Используется reconcile-обходом для поиска осиротевших блобов.
func (s *Store) List(ctx context.Context) ([]Object, error) {
	iter := s.bucket.List(&blob.ListOptions{})

	var objects []Object
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ошибка обхода бакета: %w", err)
		}
		objects = append(objects, Object{Locator: obj.Key, ModTime: obj.ModTime})
	}
	return objects, nil
}

// Close закрывает бакет.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// CheckReady проверяет доступность бакета для readiness probe.
// Возвращает статус ("ok", "fail") и сообщение.
func (s *Store) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil || !ok {
		return "fail", fmt.Sprintf("бакет недоступен: %v", err)
	}
	return "ok", "бакет доступен"
}

// buildLocator формирует ключ блоба: <timestamp>-<uuid><ext>.
// Расширение берётся из MIME-типа; suggestedName участвует только
// через своё расширение, если MIME-тип его не дал.
func buildLocator(contentType, suggestedName string) string {
	ext := extByContentType[contentType]
	if ext == "" {
		ext = strings.ToLower(path.Ext(suggestedName))
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s%s", ts, uuid.New().String(), ext)
}
