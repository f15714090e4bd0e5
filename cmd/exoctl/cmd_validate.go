package main

import (
	"fmt"

	"exoplanet-ai/internal/evaluation"

	"github.com/spf13/cobra"
)

var (
	validateOutput string
	validateStrict bool

	validateCmd = &cobra.Command{
		Use:   "validate <labeled.csv>",
		Short: "Score labeled data under both class polarities and recommend positiveClass",
		Long: `validate reads a CSV whose header names feature columns (training or request
names) and a "label" column (1/0, true/false or CONFIRMED/FALSE POSITIVE),
scores every row and prints accuracy, precision and recall for positiveClass
0 and 1.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
)

func init() {
	validateCmd.Flags().StringVar(&validateOutput, "output", "", "directory for JSON and CSV reports")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "fail when the configured positive class is not the recommended one")
}

func runValidate(cmd *cobra.Command, args []string) error {
	loader := evaluation.NewDataLoader()
	if err := loader.LoadFromCSV(args[0]); err != nil {
		return err
	}

	pipeline, err := newPipeline(settings, false)
	if err != nil {
		return err
	}

	results, err := evaluation.NewEngine(pipeline, loader).Run(cmd.Context())
	if err != nil {
		return err
	}

	reporter := evaluation.NewReporter(results, validateOutput)
	if err := reporter.GenerateReport(); err != nil {
		return err
	}
	reporter.PrintSummary(cmd.OutOrStdout())

	if validateStrict && !results.Agrees() {
		return fmt.Errorf("configured positive class %d, data suggests %d", results.Configured, results.Recommended)
	}
	return nil
}
