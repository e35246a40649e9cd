package rbac

import (
	"testing"

	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
)

func TestCanMutate(t *testing.T) {
	product := &model.Product{ID: "p-1", OwnerID: "user-1"}

	tests := []struct {
		name      string
		principal model.Principal
		want      bool
	}{
		{
			name:      "admin — любая запись",
			principal: model.Principal{ID: "admin-1", IsAdmin: true},
			want:      true,
		},
		{
			name:      "владелец — своя запись",
			principal: model.Principal{ID: "user-1"},
			want:      true,
		},
		{
			name:      "не владелец — чужая запись",
			principal: model.Principal{ID: "user-2"},
			want:      false,
		},
		{
			name:      "admin, совпадающий с владельцем",
			principal: model.Principal{ID: "user-1", IsAdmin: true},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanMutate(tt.principal, product); got != tt.want {
				t.Errorf("CanMutate(%+v) = %v, хотели %v", tt.principal, got, tt.want)
			}
		})
	}
}

func TestCanViewAll(t *testing.T) {
	if !CanViewAll(model.Principal{ID: "a", IsAdmin: true}) {
		t.Error("CanViewAll(admin) = false, хотели true")
	}
	if CanViewAll(model.Principal{ID: "u"}) {
		t.Error("CanViewAll(не-admin) = true, хотели false")
	}
}

func TestCoerceStatus(t *testing.T) {
	admin := model.Principal{ID: "a", IsAdmin: true}
	owner := model.Principal{ID: "u"}

	tests := []struct {
		name      string
		principal model.Principal
		requested string
		want      string
	}{
		{name: "admin назначает confirmed", principal: admin, requested: model.StatusConfirmed, want: model.StatusConfirmed},
		{name: "admin назначает cancelled", principal: admin, requested: model.StatusCancelled, want: model.StatusCancelled},
		{name: "admin без статуса — default", principal: admin, requested: "", want: model.DefaultStatus},
		{name: "не-admin запрашивает confirmed — принудительно default", principal: owner, requested: model.StatusConfirmed, want: model.DefaultStatus},
		{name: "не-admin запрашивает done — принудительно default", principal: owner, requested: model.StatusDone, want: model.DefaultStatus},
		{name: "не-admin без статуса — default", principal: owner, requested: "", want: model.DefaultStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoerceStatus(tt.principal, tt.requested); got != tt.want {
				t.Errorf("CoerceStatus(%+v, %q) = %q, хотели %q",
					tt.principal, tt.requested, got, tt.want)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{model.StatusPending, model.StatusConfirmed, model.StatusDone, model.StatusCancelled} {
		if !model.ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, хотели true", s)
		}
	}
	if model.ValidStatus("archived") {
		t.Error(`ValidStatus("archived") = true, хотели false`)
	}
	if model.ValidStatus("") {
		t.Error(`ValidStatus("") = true, хотели false`)
	}
}
