package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/catalogstore/catalog-module/internal/domain/model"
)

// newReconcileFixture готовит репозиторий, хранилище и сервис сверки
// с нулевым grace-периодом (любой сирота старше момента обхода).
func newReconcileFixture(t *testing.T, grace time.Duration) (*fakeRepo, *recordingAssets, *ReconcileService) {
	t.Helper()
	repo := newFakeRepo()
	assets := newTestAssets(t)
	svc := NewReconcileService(repo, assets.inner, time.Hour, grace, slog.Default())
	return repo, assets, svc
}

func putOrphan(t *testing.T, assets *recordingAssets, data string) string {
	t.Helper()
	locator, err := assets.inner.Put(context.Background(), []byte(data), "image/png", "orphan.png")
	if err != nil {
		t.Fatalf("подготовка: Put() ошибка: %v", err)
	}
	return locator
}

func TestSweepNow_RemovesOrphans(t *testing.T) {
	ctx := context.Background()
	repo, assets, svc := newReconcileFixture(t, time.Millisecond)

	// Живая запись и два сироты
	liveLocator := putOrphan(t, assets, "live")
	if err := repo.Create(ctx, &model.Product{ID: "p1", OwnerID: "u", AssetLocator: liveLocator}); err != nil {
		t.Fatalf("подготовка: Create() ошибка: %v", err)
	}
	orphan1 := putOrphan(t, assets, "orphan-1")
	orphan2 := putOrphan(t, assets, "orphan-2")

	// Даём сиротам выйти из grace-периода
	time.Sleep(50 * time.Millisecond)

	result, err := svc.SweepNow(ctx)
	if err != nil {
		t.Fatalf("SweepNow() ошибка: %v", err)
	}
	if result.Scanned != 3 || result.Live != 1 || result.Deleted != 2 || result.Failed != 0 {
		t.Errorf("SweepNow() = %+v, хотели Scanned=3 Live=1 Deleted=2", result)
	}

	mustExist(t, assets, liveLocator)
	mustNotExist(t, assets, orphan1)
	mustNotExist(t, assets, orphan2)
}

func TestSweepNow_GraceSkipsYoungOrphans(t *testing.T) {
	ctx := context.Background()
	_, assets, svc := newReconcileFixture(t, time.Hour)

	orphan := putOrphan(t, assets, "young-orphan")

	result, err := svc.SweepNow(ctx)
	if err != nil {
		t.Fatalf("SweepNow() ошибка: %v", err)
	}
	if result.Scanned != 1 || result.Skipped != 1 || result.Deleted != 0 {
		t.Errorf("SweepNow() = %+v, хотели Skipped=1 Deleted=0", result)
	}
	mustExist(t, assets, orphan)
}

func TestSweepNow_AllLive(t *testing.T) {
	ctx := context.Background()
	repo, assets, svc := newReconcileFixture(t, 0)

	for i, id := range []string{"p1", "p2"} {
		locator := putOrphan(t, assets, string(rune('a'+i)))
		if err := repo.Create(ctx, &model.Product{ID: id, OwnerID: "u", AssetLocator: locator}); err != nil {
			t.Fatalf("подготовка: Create() ошибка: %v", err)
		}
	}

	time.Sleep(10 * time.Millisecond)

	result, err := svc.SweepNow(ctx)
	if err != nil {
		t.Fatalf("SweepNow() ошибка: %v", err)
	}
	if result.Live != 2 || result.Deleted != 0 || result.Failed != 0 {
		t.Errorf("SweepNow() = %+v, хотели Live=2 Deleted=0", result)
	}
}

func TestSweepNow_RemoveFailureCounted(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	assets := newTestAssets(t)
	putOrphan(t, assets, "stuck-orphan")
	assets.failRemove = true

	svc := NewReconcileService(repo, assets, time.Hour, time.Millisecond, slog.Default())

	time.Sleep(50 * time.Millisecond)

	result, err := svc.SweepNow(ctx)
	if err != nil {
		t.Fatalf("SweepNow() ошибка: %v", err)
	}
	if result.Failed != 1 || result.Deleted != 0 {
		t.Errorf("SweepNow() = %+v, хотели Failed=1 Deleted=0", result)
	}
}

func TestReconcile_StartStop(t *testing.T) {
	_, _, svc := newReconcileFixture(t, time.Hour)

	svc.Start(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() не завершился за 5 секунд")
	}
}
