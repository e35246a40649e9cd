package assetstore

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

// newTestStore создаёт адаптер над in-memory бакетом.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("Не удалось открыть memblob бакет: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })

	return NewFromBucket(bucket, slog.Default())
}

func TestPut_ReturnsRetrievableLocator(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	locator, err := store.Put(ctx, []byte("png-bytes"), "image/png", "photo.png")
	if err != nil {
		t.Fatalf("Put() ошибка: %v", err)
	}
	if locator == "" {
		t.Fatal("Put() вернул пустой локатор")
	}
	if !strings.HasSuffix(locator, ".png") {
		t.Errorf("локатор %q без расширения .png", locator)
	}

	data, ct, err := store.Read(ctx, locator)
	if err != nil {
		t.Fatalf("Read() ошибка: %v", err)
	}
	if !bytes.Equal(data, []byte("png-bytes")) {
		t.Errorf("Read() вернул %q, хотели %q", data, "png-bytes")
	}
	if ct != "image/png" {
		t.Errorf("ContentType = %q, хотели image/png", ct)
	}
}

func TestPut_UniqueLocators(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	payload := []byte("same-bytes")
	l1, err := store.Put(ctx, payload, "image/jpeg", "a.jpg")
	if err != nil {
		t.Fatalf("Put() #1 ошибка: %v", err)
	}
	l2, err := store.Put(ctx, payload, "image/jpeg", "a.jpg")
	if err != nil {
		t.Fatalf("Put() #2 ошибка: %v", err)
	}
	if l1 == l2 {
		t.Errorf("два Put() вернули одинаковый локатор %q", l1)
	}
}

func TestRemove_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	locator, err := store.Put(ctx, []byte("x"), "image/jpg", "x.jpg")
	if err != nil {
		t.Fatalf("Put() ошибка: %v", err)
	}

	if err := store.Remove(ctx, locator); err != nil {
		t.Fatalf("Remove() ошибка: %v", err)
	}

	// Повторное удаление — не ошибка
	if err := store.Remove(ctx, locator); err != nil {
		t.Errorf("повторный Remove() ошибка: %v", err)
	}

	// Удаление несуществующего локатора — не ошибка
	if err := store.Remove(ctx, "never-existed.png"); err != nil {
		t.Errorf("Remove(несуществующий) ошибка: %v", err)
	}

	exists, err := store.Exists(ctx, locator)
	if err != nil {
		t.Fatalf("Exists() ошибка: %v", err)
	}
	if exists {
		t.Error("блоб существует после Remove()")
	}
}

func TestRead_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, _, err := store.Read(ctx, "missing.png")
	if err != ErrNotFound {
		t.Errorf("Read(отсутствующий) = %v, хотели ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Put(ctx, []byte{byte(i)}, "image/png", "n.png"); err != nil {
			t.Fatalf("Put() ошибка: %v", err)
		}
	}

	objects, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(objects) != 3 {
		t.Errorf("List() вернул %d объектов, хотели 3", len(objects))
	}
	for _, obj := range objects {
		if obj.Locator == "" {
			t.Error("List() вернул объект с пустым локатором")
		}
	}
}

func TestAllowedContentType(t *testing.T) {
	for _, ct := range []string{"image/png", "image/jpg", "image/jpeg"} {
		if !AllowedContentType(ct) {
			t.Errorf("AllowedContentType(%q) = false, хотели true", ct)
		}
	}
	for _, ct := range []string{"image/gif", "application/pdf", "text/html", ""} {
		if AllowedContentType(ct) {
			t.Errorf("AllowedContentType(%q) = true, хотели false", ct)
		}
	}
}
