// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrForbidden — субъект не вправе выполнять операцию над записью.
	ErrForbidden = errors.New("операция запрещена — запись принадлежит другому владельцу")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStorage — хранилище ассетов отклонило операцию записи.
	ErrStorage = errors.New("хранилище ассетов недоступно")
)

// Коды предупреждений (не-фатальные сбои, возвращаемые вместе с успехом).
const (
	// WarnAssetCleanup — best-effort удаление блоба не удалось;
	// блоб останется сиротой до reconcile-обхода.
	WarnAssetCleanup = "ASSET_CLEANUP_FAILED"
)

// Warning — не-фатальный сбой внутри успешной операции.
// Возвращается вызывающему вместе с результатом, а не только в лог,
// чтобы best-effort очистка была наблюдаемой.
type Warning struct {
	// Code — машиночитаемый код предупреждения
	Code string
	// Message — человекочитаемое описание
	Message string
}
