package service

import (
	"testing"
	"time"

	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
)

func TestCache_AddGet(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	p := &model.Product{ID: "p1", Title: "Стрижка"}
	cache.Add(p)

	got, ok := cache.Get("p1")
	if !ok {
		t.Fatal("Get() промах после Add()")
	}
	if got.Title != "Стрижка" {
		t.Errorf("Title = %q, хотели Стрижка", got.Title)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("Get() попадание для отсутствующего ключа")
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Add(&model.Product{ID: "p1"})
	cache.Invalidate("p1")

	if _, ok := cache.Get("p1"); ok {
		t.Error("Get() попадание после Invalidate()")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, хотели 0", cache.Len())
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := NewCacheService(10, 50*time.Millisecond)

	cache.Add(&model.Product{ID: "p1"})
	if _, ok := cache.Get("p1"); !ok {
		t.Fatal("Get() промах сразу после Add()")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("p1"); ok {
		t.Error("Get() попадание после истечения TTL")
	}
}

func TestCache_Eviction(t *testing.T) {
	cache := NewCacheService(2, time.Minute)

	cache.Add(&model.Product{ID: "p1"})
	cache.Add(&model.Product{ID: "p2"})
	cache.Add(&model.Product{ID: "p3"})

	if cache.Len() != 2 {
		t.Errorf("Len() = %d, хотели 2 (размер кэша)", cache.Len())
	}
	// Самый старый вытеснен
	if _, ok := cache.Get("p1"); ok {
		t.Error("p1 не вытеснен при переполнении")
	}
}
