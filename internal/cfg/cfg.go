package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/narrative"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port            int
	StaticDir       string
	CORSOrigins     []string
	DefaultLanguage string
	HistoryLimit    int

	ModelPath      string
	ImputerPath    string
	PositiveClass  int
	ExplainEnabled bool
	ExplainerURL   string
	ExplainTimeout time.Duration
	CacheSize      int
	CacheTTL       time.Duration
	ImportancePath string
	DriftWindow    int
	DriftThreshold float64

	StoreBackend string
	DataPath     string
	RedisURL     string
	SessionTTL   time.Duration

	LogLevel  string
	LogFormat string
}

type ConfigFile struct {
	Server struct {
		Port            int      `yaml:"port"`
		StaticDir       string   `yaml:"staticDir"`
		CORSOrigins     []string `yaml:"corsOrigins"`
		DefaultLanguage string   `yaml:"defaultLanguage"`
		HistoryLimit    int      `yaml:"historyLimit"`
	} `yaml:"server"`

	ML struct {
		ModelPath   string `yaml:"modelPath"`
		ImputerPath string `yaml:"imputerPath"`
		// pointer so that an explicit 0 is told apart from an omitted key
		PositiveClass *int `yaml:"positiveClass"`
		Explain       struct {
			Enabled *bool  `yaml:"enabled"`
			URL     string `yaml:"url"`
			Timeout string `yaml:"timeout"`
		} `yaml:"explain"`
		Cache struct {
			Size *int   `yaml:"size"`
			TTL  string `yaml:"ttl"`
		} `yaml:"cache"`
		ImportancePath string `yaml:"importancePath"`
		Drift          struct {
			// 0 disables drift tracking
			Window    *int    `yaml:"window"`
			Threshold float64 `yaml:"threshold"`
		} `yaml:"drift"`
	} `yaml:"ml"`

	Storage struct {
		Backend    string `yaml:"backend"`
		DataPath   string `yaml:"dataPath"`
		RedisURL   string `yaml:"redisURL"`
		SessionTTL string `yaml:"sessionTTL"`
	} `yaml:"storage"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	positiveClass := common.DefaultPositiveClass
	if config.ML.PositiveClass != nil {
		positiveClass = *config.ML.PositiveClass
	}
	explainEnabled := true
	if config.ML.Explain.Enabled != nil {
		explainEnabled = *config.ML.Explain.Enabled
	}
	cacheSize := common.DefaultCacheSize
	if config.ML.Cache.Size != nil {
		cacheSize = *config.ML.Cache.Size
	}
	driftWindow := common.DefaultDriftWindow
	if config.ML.Drift.Window != nil {
		driftWindow = *config.ML.Drift.Window
	}
	driftThreshold := common.DefaultDriftThreshold
	if config.ML.Drift.Threshold != 0 {
		driftThreshold = config.ML.Drift.Threshold
	}

	// Override with environment variables if they exist
	settings := Settings{
		Port:            getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		StaticDir:       getEnvOrDefault(common.EnvStaticDir, config.Server.StaticDir),
		CORSOrigins:     getListFromEnvOrConfig(common.EnvCORSOrigins, config.Server.CORSOrigins),
		DefaultLanguage: getEnvOrDefault(common.EnvDefaultLanguage, orDefault(config.Server.DefaultLanguage, common.DefaultDefaultLanguage)),
		HistoryLimit:    getIntFromEnvOrConfig(common.EnvHistoryLimit, config.Server.HistoryLimit, common.DefaultHistoryLimit),

		ModelPath:      getEnvOrDefault(common.EnvModelPath, orDefault(config.ML.ModelPath, common.DefaultModelPath)),
		ImputerPath:    getEnvOrDefault(common.EnvImputerPath, orDefault(config.ML.ImputerPath, common.DefaultImputerPath)),
		PositiveClass:  getIntOrDefault(common.EnvPositiveClass, positiveClass),
		ExplainEnabled: getBoolOrDefault(common.EnvExplainEnabled, explainEnabled),
		ExplainerURL:   getEnvOrDefault(common.EnvExplainerURL, config.ML.Explain.URL),
		ExplainTimeout: getDurationFromEnvOrConfig(common.EnvExplainTimeout, config.ML.Explain.Timeout, common.DefaultExplainTimeout),
		CacheSize:      getIntOrDefault(common.EnvCacheSize, cacheSize),
		CacheTTL:       getDurationFromEnvOrConfig(common.EnvCacheTTL, config.ML.Cache.TTL, common.DefaultCacheTTL),
		ImportancePath: getEnvOrDefault(common.EnvImportancePath, config.ML.ImportancePath),
		DriftWindow:    getIntOrDefault(common.EnvDriftWindow, driftWindow),
		DriftThreshold: getFloatOrDefault(common.EnvDriftThreshold, driftThreshold),

		StoreBackend: getEnvOrDefault(common.EnvStoreBackend, orDefault(config.Storage.Backend, common.DefaultStoreBackend)),
		DataPath:     getEnvOrDefault(common.EnvDataPath, orDefault(config.Storage.DataPath, common.DefaultDataPath)),
		RedisURL:     getEnvOrDefault(common.EnvRedisURL, config.Storage.RedisURL),
		SessionTTL:   getDurationFromEnvOrConfig(common.EnvSessionTTL, config.Storage.SessionTTL, common.DefaultSessionTTL),

		LogLevel:  getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat: getEnvOrDefault(common.EnvLogFormat, orDefault(config.Logging.Format, common.DefaultLogFormat)),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:            getIntOrDefault(common.EnvPort, common.DefaultPort),
		StaticDir:       os.Getenv(common.EnvStaticDir), // optional
		CORSOrigins:     splitOrDefault(os.Getenv(common.EnvCORSOrigins), strings.Split(common.DefaultCORSOrigins, ",")),
		DefaultLanguage: getEnvOrDefault(common.EnvDefaultLanguage, common.DefaultDefaultLanguage),
		HistoryLimit:    getIntOrDefault(common.EnvHistoryLimit, common.DefaultHistoryLimit),

		ModelPath:      getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ImputerPath:    getEnvOrDefault(common.EnvImputerPath, common.DefaultImputerPath),
		PositiveClass:  getIntOrDefault(common.EnvPositiveClass, common.DefaultPositiveClass),
		ExplainEnabled: getBoolOrDefault(common.EnvExplainEnabled, true),
		ExplainerURL:   os.Getenv(common.EnvExplainerURL), // optional, native explainer otherwise
		ExplainTimeout: getDurationOrDefault(common.EnvExplainTimeout, common.DefaultExplainTimeout),
		CacheSize:      getIntOrDefault(common.EnvCacheSize, common.DefaultCacheSize),
		CacheTTL:       getDurationOrDefault(common.EnvCacheTTL, common.DefaultCacheTTL),
		ImportancePath: os.Getenv(common.EnvImportancePath),
		DriftWindow:    getIntOrDefault(common.EnvDriftWindow, common.DefaultDriftWindow),
		DriftThreshold: getFloatOrDefault(common.EnvDriftThreshold, common.DefaultDriftThreshold),

		StoreBackend: getEnvOrDefault(common.EnvStoreBackend, common.DefaultStoreBackend),
		DataPath:     getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		RedisURL:     os.Getenv(common.EnvRedisURL),
		SessionTTL:   getDurationOrDefault(common.EnvSessionTTL, common.DefaultSessionTTL),

		LogLevel:  getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat: getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Level returns the parsed log level. Settings that passed validation always
// parse.
func (s *Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Addr is the listen address of the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getListFromEnvOrConfig(key string, configValue []string) []string {
	if env := os.Getenv(key); env != "" {
		return splitOrDefault(env, nil)
	}
	if len(configValue) > 0 {
		return configValue
	}
	return strings.Split(common.DefaultCORSOrigins, ",")
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getDurationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if configValue != "" {
		if d, err := time.ParseDuration(configValue); err == nil {
			return d
		}
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate server
	if settings.Port < common.MinPort || settings.Port > common.MaxPort {
		return fmt.Errorf("port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.Port)
	}
	if settings.HistoryLimit <= 0 || settings.HistoryLimit > common.MaxHistoryLimit {
		return fmt.Errorf("history limit must be between 1 and %d, got %d", common.MaxHistoryLimit, settings.HistoryLimit)
	}
	if !narrative.Supported(settings.DefaultLanguage) {
		return fmt.Errorf("default language must be one of %v, got %q", narrative.Locales, settings.DefaultLanguage)
	}

	// Validate model artifacts
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.ImputerPath == "" {
		return fmt.Errorf("imputer path cannot be empty")
	}
	if settings.PositiveClass != 0 && settings.PositiveClass != 1 {
		return fmt.Errorf("positive class must be 0 or 1, got %d", settings.PositiveClass)
	}
	if settings.ExplainTimeout < 100*time.Millisecond || settings.ExplainTimeout > time.Minute {
		return fmt.Errorf("explain timeout must be between 100ms and 1m, got %v", settings.ExplainTimeout)
	}
	if settings.ExplainerURL != "" && !strings.HasPrefix(settings.ExplainerURL, "http://") && !strings.HasPrefix(settings.ExplainerURL, "https://") {
		return fmt.Errorf("explainer URL must be http(s), got %q", settings.ExplainerURL)
	}

	// Validate cache
	if settings.CacheSize < 0 || settings.CacheSize > common.MaxCacheSize {
		return fmt.Errorf("cache size must be between 0 and %d, got %d", common.MaxCacheSize, settings.CacheSize)
	}
	if settings.CacheSize > 0 && (settings.CacheTTL < time.Second || settings.CacheTTL > 24*time.Hour) {
		return fmt.Errorf("cache TTL must be between 1s and 24h, got %v", settings.CacheTTL)
	}

	// Validate drift tracking
	if settings.DriftWindow < 0 || settings.DriftWindow > common.MaxDriftWindow {
		return fmt.Errorf("drift window must be between 0 and %d, got %d", common.MaxDriftWindow, settings.DriftWindow)
	}
	if settings.DriftWindow > 0 && settings.DriftThreshold <= 0 {
		return fmt.Errorf("drift threshold must be positive, got %v", settings.DriftThreshold)
	}

	// Validate storage
	switch settings.StoreBackend {
	case common.StoreBackendMemory:
	case common.StoreBackendBolt:
		if settings.DataPath == "" {
			return fmt.Errorf("data path is required for the %s backend", common.StoreBackendBolt)
		}
	default:
		return fmt.Errorf("store backend must be %s or %s, got %q", common.StoreBackendMemory, common.StoreBackendBolt, settings.StoreBackend)
	}
	if settings.SessionTTL != 0 && (settings.SessionTTL < time.Minute || settings.SessionTTL > 30*24*time.Hour) {
		return fmt.Errorf("session TTL must be 0 or between 1m and 720h, got %v", settings.SessionTTL)
	}
	if settings.RedisURL != "" && settings.SessionTTL == 0 {
		return fmt.Errorf("redis sessions need a non-zero session TTL")
	}

	// Validate logging
	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}
	if settings.LogFormat != "console" && settings.LogFormat != "json" {
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}

	return nil
}
