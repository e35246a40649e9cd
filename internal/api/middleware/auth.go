// auth.go — middleware аутентификации Catalog Module.
// Извлекает субъекта из заголовков доверенного API Gateway: валидация
// токена и вычисление admin-признака происходит на gateway, сюда
// приходит уже проверенный результат. Catalog Module недоступен в обход
// gateway (network policy), поэтому заголовкам доверяем.
package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/catalogstore/catalog-module/internal/api/errors"
	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
)

// Заголовки доверенного API Gateway.
const (
	// HeaderSubject — идентификатор аутентифицированного субъекта.
	HeaderSubject = "X-Auth-Subject"
	// HeaderAdmin — "true" для субъектов с admin-правами.
	HeaderAdmin = "X-Auth-Admin"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyPrincipal — аутентифицированный субъект в контексте запроса.
const ContextKeyPrincipal contextKey = "principal"

// GatewayAuth возвращает middleware, формирующий model.Principal из
// заголовков gateway. Запрос без X-Auth-Subject отклоняется с 401.
func GatewayAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := strings.TrimSpace(r.Header.Get(HeaderSubject))
			if subject == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок "+HeaderSubject)
				return
			}

			principal := model.Principal{
				ID:      subject,
				IsAdmin: strings.EqualFold(r.Header.Get(HeaderAdmin), "true"),
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext извлекает субъекта из контекста запроса.
// Возвращает (principal, false), если субъект не найден.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(ContextKeyPrincipal).(model.Principal)
	return principal, ok
}
