// Точка входа Catalog Module — сервис записей каталога системы Catalogstore.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// открывает бакет хранилища ассетов, создаёт сервисный слой и API handlers,
// запускает фоновые задачи (reconcile-обход, topologymetrics),
// HTTP-сервер с gateway auth middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/catalogstore/catalog-module/internal/api/handlers"
	"github.com/bigkaa/catalogstore/catalog-module/internal/assetstore"
	"github.com/bigkaa/catalogstore/catalog-module/internal/config"
	"github.com/bigkaa/catalogstore/catalog-module/internal/database"
	"github.com/bigkaa/catalogstore/catalog-module/internal/repository"
	"github.com/bigkaa/catalogstore/catalog-module/internal/server"
	"github.com/bigkaa/catalogstore/catalog-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Catalog Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("CM_DEPHEALTH_GROUP") == "" {
		logger.Warn("CM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Хранилище ассетов (gocloud.dev/blob: file://, s3://)
	assets, err := assetstore.New(ctx, cfg.AssetBucketURL, logger)
	if err != nil {
		logger.Error("Ошибка открытия бакета ассетов",
			slog.String("bucket_url", cfg.AssetBucketURL),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer assets.Close()
	logger.Info("Хранилище ассетов открыто", slog.String("bucket_url", cfg.AssetBucketURL))

	// 6. Repositories
	productRepo := repository.NewProductRepository(pool)

	// 7. Services
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	lifecycleSvc := service.NewProductLifecycleService(productRepo, assets, cache, logger)
	reconcileSvc := service.NewReconcileService(
		productRepo, assets,
		cfg.ReconcileInterval, cfg.ReconcileGrace,
		logger,
	)

	// 8. Readiness checkers (PostgreSQL + хранилище ассетов)
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, assets)

	// 9. API handlers
	productsHandler := handlers.NewProductsHandler(lifecycleSvc, cfg.MaxUploadBytes, logger)
	apiHandler := handlers.NewAPIHandler(healthHandler, productsHandler, logger)

	// 10. Запуск фоновых задач
	reconcileSvc.Start(ctx)

	// 10.1 topologymetrics — мониторинг зависимостей (PostgreSQL)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"catalog-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	reconcileSvc.Stop()

	logger.Info("Catalog Module остановлен")
}
