package common

import "time"

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvPort            = "PORT"
	EnvStaticDir       = "STATIC_DIR"
	EnvModelPath       = "MODEL_PATH"
	EnvImputerPath     = "IMPUTER_PATH"
	EnvPositiveClass   = "POSITIVE_CLASS"
	EnvExplainEnabled  = "EXPLAIN_ENABLED"
	EnvExplainerURL    = "EXPLAINER_URL"
	EnvExplainTimeout  = "EXPLAIN_TIMEOUT"
	EnvStoreBackend    = "STORE_BACKEND"
	EnvDataPath        = "DATA_PATH"
	EnvRedisURL        = "REDIS_URL"
	EnvSessionTTL      = "SESSION_TTL"
	EnvCORSOrigins     = "CORS_ORIGINS"
	EnvDefaultLanguage = "DEFAULT_LANGUAGE"
	EnvHistoryLimit    = "HISTORY_LIMIT"
	EnvCacheSize       = "CACHE_SIZE"
	EnvCacheTTL        = "CACHE_TTL"
	EnvImportancePath  = "IMPORTANCE_PATH"
	EnvDriftWindow     = "DRIFT_WINDOW"
	EnvDriftThreshold  = "DRIFT_THRESHOLD"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
)

// Configuration defaults
const (
	DefaultPort            = 8000
	DefaultModelPath       = "models/catboost_model.json"
	DefaultImputerPath     = "models/knn_imputer.json"
	DefaultPositiveClass   = 0
	DefaultStoreBackend    = StoreBackendMemory
	DefaultDefaultLanguage = "ru"
	DefaultHistoryLimit    = 10
	DefaultCacheSize       = 1000
	DefaultDriftWindow     = 500
	DefaultDriftThreshold  = 0.2
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultDataPath        = "data"
	DefaultImportancePath  = "data/feature_importance.json"
	DefaultSessionTTL      = 24 * time.Hour
	DefaultCacheTTL        = 10 * time.Minute
	DefaultExplainTimeout  = 5 * time.Second
	DefaultCORSOrigins     = "http://localhost,http://localhost:8080,http://127.0.0.1:5500,http://127.0.0.1:8000"
)

// Storage backends
const (
	StoreBackendMemory = "memory"
	StoreBackendBolt   = "bolt"
)

// Validation constants
const (
	MinPort          = 1024
	MaxPort          = 65535
	MaxHistoryLimit  = 1000
	MaxCacheSize     = 1_000_000
	MaxDriftWindow   = 100_000
	FeedbackPreview  = 5
	MaxRequestBodyKB = 64
)
