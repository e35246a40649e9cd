package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"CM_DB_HOST":          "localhost",
		"CM_DB_NAME":          "catalog",
		"CM_DB_USER":          "catalog",
		"CM_DB_PASSWORD":      "secret",
		"CM_ASSET_BUCKET_URL": "file:///var/lib/catalog/assets",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, ожидается %d", cfg.MaxUploadBytes, 10<<20)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
	if cfg.AssetBucketURL != "file:///var/lib/catalog/assets" {
		t.Errorf("AssetBucketURL = %q", cfg.AssetBucketURL)
	}
	if cfg.CacheSize != 1000 {
		t.Errorf("CacheSize = %d, ожидается 1000", cfg.CacheSize)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, ожидается 5m", cfg.CacheTTL)
	}
	if cfg.ReconcileInterval != time.Hour {
		t.Errorf("ReconcileInterval = %v, ожидается 1h", cfg.ReconcileInterval)
	}
	if cfg.ReconcileGrace != time.Hour {
		t.Errorf("ReconcileGrace = %v, ожидается 1h", cfg.ReconcileGrace)
	}
	if cfg.DephealthGroup != "catalogstore" {
		t.Errorf("DephealthGroup = %q, ожидается catalogstore", cfg.DephealthGroup)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{"CM_DB_HOST", "CM_DB_NAME", "CM_DB_USER", "CM_DB_PASSWORD", "CM_ASSET_BUCKET_URL"}

	for _, missing := range required {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			delete(envs, missing)
			setEnvs(t, envs)
			t.Setenv(missing, "")

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() без %s не вернул ошибку", missing)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("ошибка %q не упоминает %s", err, missing)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	envs := minimalEnvs()
	envs["CM_PORT"] = "9090"
	envs["CM_LOG_LEVEL"] = "debug"
	envs["CM_LOG_FORMAT"] = "text"
	envs["CM_MAX_UPLOAD_BYTES"] = "1048576"
	envs["CM_CACHE_TTL"] = "30s"
	envs["CM_RECONCILE_INTERVAL"] = "10m"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, ожидается 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Errorf("MaxUploadBytes = %d, ожидается 1048576", cfg.MaxUploadBytes)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, ожидается 30s", cfg.CacheTTL)
	}
	if cfg.ReconcileInterval != 10*time.Minute {
		t.Errorf("ReconcileInterval = %v, ожидается 10m", cfg.ReconcileInterval)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "порт вне диапазона", key: "CM_PORT", val: "70000"},
		{name: "порт не число", key: "CM_PORT", val: "abc"},
		{name: "неизвестный уровень логов", key: "CM_LOG_LEVEL", val: "verbose"},
		{name: "неизвестный формат логов", key: "CM_LOG_FORMAT", val: "xml"},
		{name: "некорректный ssl mode", key: "CM_DB_SSL_MODE", val: "maybe"},
		{name: "некорректная длительность", key: "CM_CACHE_TTL", val: "five-minutes"},
		{name: "нулевой лимит загрузки", key: "CM_MAX_UPLOAD_BYTES", val: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, minimalEnvs())
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Errorf("Load() с %s=%q не вернул ошибку", tt.key, tt.val)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	dsn := cfg.DatabaseDSN()
	for _, part := range []string{"host=localhost", "dbname=catalog", "user=catalog", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q не содержит %q", dsn, part)
		}
	}
}
