package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exoplanet-ai/internal/api"
	"exoplanet-ai/internal/auth"
	"exoplanet-ai/internal/cfg"
	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/features"
	"exoplanet-ai/internal/metrics"
	"exoplanet-ai/internal/ml"
	"exoplanet-ai/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	pipeline := initializePipeline(c, metrics.NewWrapper(m))
	importance := ml.NewFeatureImportance(features.Names(), c.ImportancePath)
	if err := importance.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load feature importance, starting fresh")
	}
	pipeline.SetImportance(importance)
	go pipeline.Start(ctx)

	store := initializeStorage(ctx, c)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()
	if n, err := store.CountSearches(); err == nil {
		m.HistorySize.Set(float64(n))
	}

	srv := api.NewServer(api.Config{
		Addr:            c.Addr(),
		StaticDir:       c.StaticDir,
		CORSOrigins:     c.CORSOrigins,
		DefaultLanguage: c.DefaultLanguage,
		HistoryLimit:    c.HistoryLimit,
	}, pipeline, store, auth.NewService(store, store, c.SessionTTL), m, prometheus.DefaultGatherer)

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server")
	}

	waitForShutdown(ctx, cancel)

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := importance.Save(); err != nil {
		log.Error().Err(err).Msg("failed to save feature importance")
	}
	log.Info().Msg("shutdown complete")
}

// setupLogging configures the global logger from settings.
func setupLogging(c cfg.Settings) {
	zerolog.SetGlobalLevel(c.Level())
	zerolog.TimeFieldFormat = time.RFC3339
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initializePipeline loads the artifacts. The service does not start
// without them.
func initializePipeline(c cfg.Settings, mw *metrics.MetricsWrapper) *ml.Pipeline {
	pipeline, err := ml.LoadPipeline(ml.LoadOptions{
		ModelPath:      c.ModelPath,
		ImputerPath:    c.ImputerPath,
		Explain:        c.ExplainEnabled,
		ExplainerURL:   c.ExplainerURL,
		ExplainTimeout: c.ExplainTimeout,
		Pipeline: ml.PipelineConfig{
			PositiveClass: c.PositiveClass,
			CacheSize:     c.CacheSize,
			CacheTTL:      c.CacheTTL,
			Drift: ml.DriftConfig{
				Window:    c.DriftWindow,
				Threshold: c.DriftThreshold,
			},
		},
	}, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load model artifacts")
	}

	info := pipeline.Info()
	log.Info().
		Str("model_path", c.ModelPath).
		Int("trees", info.Trees).
		Int("positive_class", c.PositiveClass).
		Bool("explain", pipeline.ExplainerEnabled()).
		Msg("inference pipeline ready")
	return pipeline
}

// initializeStorage opens the configured backend and, when REDIS_URL is set,
// moves sessions to redis.
func initializeStorage(ctx context.Context, c cfg.Settings) storage.Store {
	var store storage.Store
	switch c.StoreBackend {
	case common.StoreBackendBolt:
		bolt, err := storage.NewBoltStore(c.DataPath)
		if err != nil {
			log.Fatal().Err(err).Str("data_path", c.DataPath).Msg("storage initialization failed")
		}
		store = bolt
	default:
		store = storage.NewMemoryStore()
	}
	log.Info().Str("backend", c.StoreBackend).Msg("store opened")

	if c.RedisURL == "" {
		return store
	}
	sessions, err := storage.NewRedisSessionStore(ctx, c.RedisURL, c.SessionTTL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, keeping sessions in the primary store")
		return store
	}
	log.Info().Msg("sessions stored in redis")
	return storage.WithRedisSessions(store, sessions)
}

// waitForShutdown blocks until a shutdown signal arrives or ctx is canceled.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()
}
