// Пакет rbac — логика авторизации над записями каталога.
// Двухуровневая модель: администратор видит и мутирует всё,
// владелец — только собственные записи.
// Чистые функции без I/O и побочных эффектов.
package rbac

import "github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"

// CanMutate отвечает, может ли субъект изменять или удалять запись.
// Admin — всегда, владелец — только свою запись.
func CanMutate(p model.Principal, product *model.Product) bool {
	if p.IsAdmin {
		return true
	}
	return p.ID == product.OwnerID
}

// CanView отвечает, может ли субъект просматривать запись.
// Правила совпадают с CanMutate: чужие записи не видны не-администраторам.
func CanView(p model.Principal, product *model.Product) bool {
	return CanMutate(p, product)
}

// CanViewAll отвечает, видит ли субъект весь каталог.
// Только admin; остальные получают выборку по владельцу.
func CanViewAll(p model.Principal) bool {
	return p.IsAdmin
}

// CoerceStatus возвращает статус, который субъект вправе назначить.
// Не-администратор не управляет статусом: любое запрошенное значение
// приводится к статусу по умолчанию, без ошибки.
func CoerceStatus(p model.Principal, requested string) string {
	if !p.IsAdmin {
		return model.DefaultStatus
	}
	if requested == "" {
		return model.DefaultStatus
	}
	return requested
}
