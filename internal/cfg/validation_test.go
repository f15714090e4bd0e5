package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		Port:            8000,
		CORSOrigins:     []string{"http://localhost"},
		DefaultLanguage: "ru",
		HistoryLimit:    10,
		ModelPath:       "models/catboost_model.json",
		ImputerPath:     "models/knn_imputer.json",
		PositiveClass:   0,
		ExplainEnabled:  true,
		ExplainTimeout:  5 * time.Second,
		CacheSize:       1000,
		CacheTTL:        10 * time.Minute,
		StoreBackend:    "memory",
		DataPath:        "data",
		SessionTTL:      24 * time.Hour,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	err := validateSettings(settings)
	if err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"port too low", func(s *Settings) { s.Port = 80 }, "port must be between"},
		{"port too high", func(s *Settings) { s.Port = 70000 }, "port must be between"},
		{"zero history", func(s *Settings) { s.HistoryLimit = 0 }, "history limit"},
		{"huge history", func(s *Settings) { s.HistoryLimit = 5000 }, "history limit"},
		{"language", func(s *Settings) { s.DefaultLanguage = "fr" }, "default language"},
		{"model path", func(s *Settings) { s.ModelPath = "" }, "model path"},
		{"imputer path", func(s *Settings) { s.ImputerPath = "" }, "imputer path"},
		{"positive class", func(s *Settings) { s.PositiveClass = -1 }, "positive class"},
		{"explain timeout", func(s *Settings) { s.ExplainTimeout = time.Millisecond }, "explain timeout"},
		{"explainer url", func(s *Settings) { s.ExplainerURL = "ftp://shap" }, "explainer URL"},
		{"negative cache", func(s *Settings) { s.CacheSize = -1 }, "cache size"},
		{"cache ttl", func(s *Settings) { s.CacheTTL = 0 }, "cache TTL"},
		{"backend", func(s *Settings) { s.StoreBackend = "sqlite" }, "store backend"},
		{"bolt without path", func(s *Settings) { s.StoreBackend = "bolt"; s.DataPath = "" }, "data path"},
		{"session ttl", func(s *Settings) { s.SessionTTL = time.Second }, "session TTL"},
		{"redis without ttl", func(s *Settings) { s.RedisURL = "redis://localhost:6379"; s.SessionTTL = 0 }, "redis sessions"},
		{"log level", func(s *Settings) { s.LogLevel = "loud" }, "invalid log level"},
		{"log format", func(s *Settings) { s.LogFormat = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_EdgeCases(t *testing.T) {
	t.Run("cache disabled ignores TTL", func(t *testing.T) {
		settings := createValidSettings()
		settings.CacheSize = 0
		settings.CacheTTL = 0
		if err := validateSettings(settings); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("sessions that never expire", func(t *testing.T) {
		settings := createValidSettings()
		settings.SessionTTL = 0
		if err := validateSettings(settings); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("english default", func(t *testing.T) {
		settings := createValidSettings()
		settings.DefaultLanguage = "en"
		if err := validateSettings(settings); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("boundary ports", func(t *testing.T) {
		for _, port := range []int{1024, 65535} {
			settings := createValidSettings()
			settings.Port = port
			if err := validateSettings(settings); err != nil {
				t.Errorf("port %d: unexpected error: %v", port, err)
			}
		}
	})
}
