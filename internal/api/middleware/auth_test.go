package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
)

func TestGatewayAuth(t *testing.T) {
	tests := []struct {
		name       string
		subject    string
		admin      string
		wantStatus int
		wantID     string
		wantAdmin  bool
	}{
		{
			name:       "обычный субъект",
			subject:    "user-1",
			wantStatus: http.StatusOK,
			wantID:     "user-1",
			wantAdmin:  false,
		},
		{
			name:       "admin-субъект",
			subject:    "admin-1",
			admin:      "true",
			wantStatus: http.StatusOK,
			wantID:     "admin-1",
			wantAdmin:  true,
		},
		{
			name:       "admin-заголовок в другом регистре",
			subject:    "admin-2",
			admin:      "TRUE",
			wantStatus: http.StatusOK,
			wantID:     "admin-2",
			wantAdmin:  true,
		},
		{
			name:       "не-true значение admin-заголовка",
			subject:    "user-2",
			admin:      "yes",
			wantStatus: http.StatusOK,
			wantID:     "user-2",
			wantAdmin:  false,
		},
		{
			name:       "без субъекта — 401",
			subject:    "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "пробельный субъект — 401",
			subject:    "   ",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.Principal
			var gotOK bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, gotOK = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
			if tt.subject != "" {
				req.Header.Set(HeaderSubject, tt.subject)
			}
			if tt.admin != "" {
				req.Header.Set(HeaderAdmin, tt.admin)
			}

			rec := httptest.NewRecorder()
			GatewayAuth()(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if !gotOK {
				t.Fatal("Principal отсутствует в контексте")
			}
			if got.ID != tt.wantID || got.IsAdmin != tt.wantAdmin {
				t.Errorf("Principal = %+v, хотели {ID:%s IsAdmin:%v}", got, tt.wantID, tt.wantAdmin)
			}
		})
	}
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := PrincipalFromContext(req.Context()); ok {
		t.Error("PrincipalFromContext() вернул ok для пустого контекста")
	}
}
