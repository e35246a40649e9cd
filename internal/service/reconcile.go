// reconcile.go — сервис периодической сверки хранилища ассетов с БД.
//
// ReconcileService запускает фоновую горутину с ticker (CM_RECONCILE_INTERVAL),
// которая сравнивает блобы бакета с локаторами живых записей и удаляет
// осиротевшие блобы — следы сбоев компенсации на create и best-effort
// удалений на edit/delete.
//
// Grace-период: блобы моложе CM_RECONCILE_GRACE не трогаем — возможно,
// соответствующая запись ещё в процессе создания.
//
// Prometheus-метрики:
//   - cm_reconcile_duration_seconds — длительность обхода
//   - cm_reconcile_orphans_total — количество удалённых сирот
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/catalogstore/catalog-module/internal/assetstore"
	"github.com/bigkaa/catalogstore/catalog-module/internal/repository"
)

// Prometheus-метрики reconcile-обхода.
var (
	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cm_reconcile_duration_seconds",
		Help:    "Длительность сверки хранилища ассетов с БД",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s … ~204s
	})

	reconcileOrphansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_reconcile_orphans_total",
		Help: "Количество удалённых осиротевших блобов",
	})
)

// AssetLister — часть хранилища ассетов, нужная reconcile-обходу.
type AssetLister interface {
	List(ctx context.Context) ([]assetstore.Object, error)
	Remove(ctx context.Context, locator string) error
}

// SweepResult — итог одного reconcile-обхода.
type SweepResult struct {
	// Scanned — всего блобов в бакете
	Scanned int
	// Live — блобов, на которые ссылаются записи
	Live int
	// Skipped — сирот внутри grace-периода (пропущены)
	Skipped int
	// Deleted — удалённых сирот
	Deleted int
	// Failed — сирот, удаление которых не удалось
	Failed int
}

// ReconcileService — фоновый сервис сверки хранилища ассетов.
type ReconcileService struct {
	repo     repository.ProductRepository
	assets   AssetLister
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconcileService создаёт сервис сверки хранилища ассетов.
func NewReconcileService(
	repo repository.ProductRepository,
	assets AssetLister,
	interval time.Duration,
	grace time.Duration,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		repo:     repo,
		assets:   assets,
		interval: interval,
		grace:    grace,
		logger:   logger.With(slog.String("component", "reconcile")),
	}
}

// Start запускает фоновую горутину с периодической сверкой.
// Вызывается один раз при старте приложения.
func (s *ReconcileService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая сверка хранилища ассетов запущена",
			slog.String("interval", s.interval.String()),
			slog.String("grace", s.grace.String()),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая сверка хранилища ассетов остановлена")
				return
			case <-ticker.C:
				result, err := s.SweepNow(ctx)
				if err != nil {
					s.logger.Error("Ошибка сверки хранилища ассетов", slog.String("error", err.Error()))
				} else {
					s.logger.Info("Сверка хранилища ассетов завершена",
						slog.Int("scanned", result.Scanned),
						slog.Int("live", result.Live),
						slog.Int("skipped", result.Skipped),
						slog.Int("deleted", result.Deleted),
						slog.Int("failed", result.Failed),
					)
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *ReconcileService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// SweepNow выполняет один обход: удаляет блобы, на которые не ссылается
// ни одна запись и которые старше grace-периода.
func (s *ReconcileService) SweepNow(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	defer func() {
		reconcileDuration.Observe(time.Since(start).Seconds())
	}()

	// Сначала живые локаторы, потом содержимое бакета: блоб, записанный
	// между двумя выборками, моложе grace-периода и не будет тронут.
	locators, err := s.repo.AssetLocators(ctx)
	if err != nil {
		return nil, fmt.Errorf("выборка живых локаторов: %w", err)
	}
	live := make(map[string]bool, len(locators))
	for _, l := range locators {
		live[l] = true
	}

	objects, err := s.assets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("обход бакета: %w", err)
	}

	result := &SweepResult{Scanned: len(objects)}
	cutoff := time.Now().Add(-s.grace)

	for _, obj := range objects {
		if live[obj.Locator] {
			result.Live++
			continue
		}
		if obj.ModTime.After(cutoff) {
			result.Skipped++
			continue
		}

		if err := s.assets.Remove(ctx, obj.Locator); err != nil {
			result.Failed++
			s.logger.Warn("Удаление осиротевшего блоба не удалось",
				slog.String("locator", obj.Locator),
				slog.String("error", err.Error()),
			)
			continue
		}

		result.Deleted++
		reconcileOrphansTotal.Inc()
		s.logger.Info("Осиротевший блоб удалён",
			slog.String("locator", obj.Locator),
			slog.Time("mod_time", obj.ModTime),
		)
	}

	return result, nil
}
