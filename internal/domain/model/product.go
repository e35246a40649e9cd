// Пакет model — доменные типы Catalog Module.
package model

import "time"

// Статусы записи каталога.
const (
	// StatusPending — запись создана, ожидает подтверждения.
	StatusPending = "pending"
	// StatusConfirmed — запись подтверждена admin.
	StatusConfirmed = "confirmed"
	// StatusDone — услуга оказана.
	StatusDone = "done"
	// StatusCancelled — запись отменена.
	StatusCancelled = "cancelled"
)

// DefaultStatus — статус новой записи. Выставляется всегда при создании
// и при любой правке не-admin субъектом.
const DefaultStatus = StatusPending

// validStatuses — допустимые значения статуса.
var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusDone:      true,
	StatusCancelled: true,
}

// ValidStatus проверяет, допустимо ли значение статуса.
func ValidStatus(s string) bool {
	return validStatuses[s]
}

// Product — запись каталога: услуга с датой и одним изображением
// во внешнем хранилище ассетов.
type Product struct {
	// ID — UUID записи
	ID string
	// OwnerID — идентификатор владельца (субъект, создавший запись)
	OwnerID string
	// Title — заголовок (минимум 3 символа)
	Title string
	// Description — описание (8–250 символов)
	Description string
	// ScheduledDate — дата оказания услуги
	ScheduledDate time.Time
	// Status — статус записи (pending, confirmed, done, cancelled)
	Status string
	// AssetLocator — ключ изображения в хранилище ассетов
	AssetLocator string
	// AssetContentType — MIME-тип изображения
	AssetContentType string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего изменения
	UpdatedAt time.Time
}

// Principal — аутентифицированный субъект запроса.
// Формируется из заголовков доверенного API Gateway.
type Principal struct {
	// ID — идентификатор субъекта
	ID string
	// IsAdmin — true для субъектов с admin-правами
	IsAdmin bool
}
