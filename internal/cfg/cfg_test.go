package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"exoplanet-ai/internal/common"

	"github.com/rs/zerolog"
)

var envKeys = []string{
	common.EnvConfigFile, common.EnvPort, common.EnvStaticDir, common.EnvModelPath,
	common.EnvImputerPath, common.EnvPositiveClass, common.EnvExplainEnabled,
	common.EnvExplainerURL, common.EnvExplainTimeout, common.EnvStoreBackend,
	common.EnvDataPath, common.EnvRedisURL, common.EnvSessionTTL, common.EnvCORSOrigins,
	common.EnvDefaultLanguage, common.EnvHistoryLimit, common.EnvCacheSize,
	common.EnvCacheTTL, common.EnvImportancePath, common.EnvLogLevel, common.EnvLogFormat,
	common.EnvDriftWindow, common.EnvDriftThreshold,
}

// clearTestEnv blanks every key Load reads; empty values count as unset.
func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8000 {
					t.Errorf("expected default port 8000, got %d", settings.Port)
				}
				if settings.ModelPath != "models/catboost_model.json" {
					t.Errorf("expected default model path, got %s", settings.ModelPath)
				}
				if settings.PositiveClass != 0 {
					t.Errorf("expected default positive class 0, got %d", settings.PositiveClass)
				}
				if !settings.ExplainEnabled {
					t.Error("expected attribution enabled by default")
				}
				if settings.StoreBackend != "memory" {
					t.Errorf("expected memory backend, got %s", settings.StoreBackend)
				}
				if settings.DefaultLanguage != "ru" {
					t.Errorf("expected default language ru, got %s", settings.DefaultLanguage)
				}
				if settings.HistoryLimit != 10 {
					t.Errorf("expected history limit 10, got %d", settings.HistoryLimit)
				}
				if settings.SessionTTL != 24*time.Hour {
					t.Errorf("expected session TTL 24h, got %v", settings.SessionTTL)
				}
				if len(settings.CORSOrigins) != 4 {
					t.Errorf("expected 4 default CORS origins, got %v", settings.CORSOrigins)
				}
				if settings.Level() != zerolog.InfoLevel {
					t.Errorf("expected info level, got %v", settings.Level())
				}
				if settings.DriftWindow != 500 || settings.DriftThreshold != 0.2 {
					t.Errorf("expected drift window 500 and threshold 0.2, got %d %v", settings.DriftWindow, settings.DriftThreshold)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"PORT":             "9090",
				"POSITIVE_CLASS":   "1",
				"EXPLAIN_ENABLED":  "false",
				"STORE_BACKEND":    "bolt",
				"DATA_PATH":        "/tmp/exo",
				"CORS_ORIGINS":     "https://a.example, https://b.example,",
				"DEFAULT_LANGUAGE": "en",
				"CACHE_TTL":        "30s",
				"LOG_LEVEL":        "debug",
				"LOG_FORMAT":       "json",
				"DRIFT_WINDOW":     "0",
				"DRIFT_THRESHOLD":  "0.5",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.Addr() != ":9090" {
					t.Errorf("expected addr :9090, got %s", settings.Addr())
				}
				if settings.PositiveClass != 1 {
					t.Errorf("expected positive class 1, got %d", settings.PositiveClass)
				}
				if settings.ExplainEnabled {
					t.Error("expected attribution disabled")
				}
				if settings.StoreBackend != "bolt" || settings.DataPath != "/tmp/exo" {
					t.Errorf("unexpected storage %s %s", settings.StoreBackend, settings.DataPath)
				}
				if len(settings.CORSOrigins) != 2 || settings.CORSOrigins[1] != "https://b.example" {
					t.Errorf("unexpected CORS origins %v", settings.CORSOrigins)
				}
				if settings.CacheTTL != 30*time.Second {
					t.Errorf("expected cache TTL 30s, got %v", settings.CacheTTL)
				}
				if settings.Level() != zerolog.DebugLevel {
					t.Errorf("expected debug level, got %v", settings.Level())
				}
				if settings.DriftWindow != 0 || settings.DriftThreshold != 0.5 {
					t.Errorf("expected drift tracking off, got window %d threshold %v", settings.DriftWindow, settings.DriftThreshold)
				}
			},
		},
		{
			name:    "invalid positive class",
			envVars: map[string]string{"POSITIVE_CLASS": "2"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			envVars: map[string]string{"STORE_BACKEND": "mongo"},
			wantErr: true,
		},
		{
			name:    "unsupported language",
			envVars: map[string]string{"DEFAULT_LANGUAGE": "de"},
			wantErr: true,
		},
		{
			name:    "negative drift threshold",
			envVars: map[string]string{"DRIFT_THRESHOLD": "-1"},
			wantErr: true,
		},
		{
			name:    "port below range",
			envVars: map[string]string{"PORT": "80"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear all environment variables first
			clearTestEnv(t)

			// Set test environment variables
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
server:
  port: 8081
  staticDir: "./static"
  corsOrigins:
    - "https://exo.example"
  defaultLanguage: "en"
  historyLimit: 25

ml:
  modelPath: "artifacts/model.json"
  imputerPath: "artifacts/imputer.json"
  positiveClass: 1
  explain:
    enabled: false
    timeout: "2s"
  cache:
    size: 0

storage:
  backend: "bolt"
  dataPath: "/var/lib/exo"
  sessionTTL: "2h"

logging:
  level: "warn"
  format: "json"
`,
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 8081 {
					t.Errorf("expected port 8081, got %d", settings.Port)
				}
				if settings.StaticDir != "./static" {
					t.Errorf("expected static dir, got %s", settings.StaticDir)
				}
				if len(settings.CORSOrigins) != 1 || settings.CORSOrigins[0] != "https://exo.example" {
					t.Errorf("unexpected CORS origins %v", settings.CORSOrigins)
				}
				if settings.HistoryLimit != 25 {
					t.Errorf("expected history limit 25, got %d", settings.HistoryLimit)
				}
				if settings.ModelPath != "artifacts/model.json" || settings.ImputerPath != "artifacts/imputer.json" {
					t.Errorf("unexpected artifact paths %s %s", settings.ModelPath, settings.ImputerPath)
				}
				if settings.PositiveClass != 1 {
					t.Errorf("expected positive class 1, got %d", settings.PositiveClass)
				}
				if settings.ExplainEnabled {
					t.Error("expected attribution disabled")
				}
				if settings.ExplainTimeout != 2*time.Second {
					t.Errorf("expected explain timeout 2s, got %v", settings.ExplainTimeout)
				}
				if settings.CacheSize != 0 {
					t.Errorf("expected cache disabled, got %d", settings.CacheSize)
				}
				if settings.SessionTTL != 2*time.Hour {
					t.Errorf("expected session TTL 2h, got %v", settings.SessionTTL)
				}
				if settings.LogFormat != "json" {
					t.Errorf("expected json log format, got %s", settings.LogFormat)
				}
			},
		},
		{
			name: "explicit positive class 0 is kept",
			yamlContent: `
ml:
  positiveClass: 0
`,
			envOverrides: map[string]string{},
			validate: func(t *testing.T, settings Settings) {
				if settings.PositiveClass != 0 {
					t.Errorf("expected positive class 0, got %d", settings.PositiveClass)
				}
				if settings.ModelPath != "models/catboost_model.json" {
					t.Errorf("expected default model path, got %s", settings.ModelPath)
				}
			},
		},
		{
			name: "env overrides YAML",
			yamlContent: `
server:
  port: 8081
ml:
  positiveClass: 1
`,
			envOverrides: map[string]string{
				"PORT":           "9000",
				"POSITIVE_CLASS": "0",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.Port != 9000 {
					t.Errorf("expected env port 9000, got %d", settings.Port)
				}
				if settings.PositiveClass != 0 {
					t.Errorf("expected env positive class 0, got %d", settings.PositiveClass)
				}
			},
		},
		{
			name: "invalid YAML",
			yamlContent: `
server:
  port: [not, an, int
`,
			wantErr: true,
		},
		{
			name: "invalid values",
			yamlContent: `
ml:
  positiveClass: 3
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)

			tempDir := t.TempDir()
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}

			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			settings, err := loadFromYAML(configPath)

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad_UsesConfigFile(t *testing.T) {
	clearTestEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 8123\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(common.EnvConfigFile, configPath)

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Port != 8123 {
		t.Errorf("expected port from file, got %d", settings.Port)
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	clearTestEnv(t)

	if _, err := loadFromYAML(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
