// Command exoctl scores observations offline, checks an artifact against
// labeled data, inspects stored searches and talks to a running exoserver.
package main

import (
	"errors"
	"os"

	"exoplanet-ai/internal/cfg"
	"exoplanet-ai/internal/ml"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	settings cfg.Settings

	modelPath     string
	imputerPath   string
	positiveClass int
	logLevel      string

	rootCmd = &cobra.Command{
		Use:           "exoctl",
		Short:         "Classify exoplanet candidates from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				level = zerolog.WarnLevel
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

			settings, err = cfg.Load()
			if err != nil {
				return err
			}
			// flags override the environment and config file
			if cmd.Flags().Changed("model") {
				settings.ModelPath = modelPath
			}
			if cmd.Flags().Changed("imputer") {
				settings.ImputerPath = imputerPath
			}
			if cmd.Flags().Changed("positive-class") {
				settings.PositiveClass = positiveClass
			}
			return nil
		},
	}
)

// newPipeline is replaced in tests.
var newPipeline = func(c cfg.Settings, explain bool) (*ml.Pipeline, error) {
	return ml.LoadPipeline(ml.LoadOptions{
		ModelPath:      c.ModelPath,
		ImputerPath:    c.ImputerPath,
		Explain:        explain,
		ExplainerURL:   c.ExplainerURL,
		ExplainTimeout: c.ExplainTimeout,
		Pipeline:       ml.PipelineConfig{PositiveClass: c.PositiveClass},
	}, nil)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "CatBoost JSON model (overrides MODEL_PATH)")
	rootCmd.PersistentFlags().StringVar(&imputerPath, "imputer", "", "KNN imputer JSON (overrides IMPUTER_PATH)")
	rootCmd.PersistentFlags().IntVar(&positiveClass, "positive-class", 0, "model class meaning exoplanet (overrides POSITIVE_CLASS)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(predictCmd, explainCmd, validateCmd, submitCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("exoctl failed")
	}
}
