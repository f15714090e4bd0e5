package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Reporter writes evaluation reports
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter. An empty outputPath disables the file
// reports; PrintSummary still works.
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes the JSON report and the per-polarity CSV.
func (r *Reporter) GenerateReport() error {
	if r.outputPath == "" {
		return nil
	}
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateJSONReport(); err != nil {
		return err
	}
	return r.generatePolarityReport()
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "evaluation_results.json")

	report := map[string]interface{}{
		"results":      r.results,
		"agrees":       r.results.Agrees(),
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

func (r *Reporter) generatePolarityReport() error {
	csvPath := filepath.Join(r.outputPath, "polarity_report.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create polarity report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"Positive Class", "TP", "FP", "TN", "FN", "Accuracy", "Precision", "Recall", "F1"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, p := range r.results.Polarities {
		record := []string{
			fmt.Sprintf("%d", p.PositiveClass),
			fmt.Sprintf("%d", p.TruePositives),
			fmt.Sprintf("%d", p.FalsePositives),
			fmt.Sprintf("%d", p.TrueNegatives),
			fmt.Sprintf("%d", p.FalseNegatives),
			fmt.Sprintf("%.4f", p.Accuracy),
			fmt.Sprintf("%.4f", p.Precision),
			fmt.Sprintf("%.4f", p.Recall),
			fmt.Sprintf("%.4f", p.F1),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write polarity report: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Polarity report generated")
	return nil
}

// PrintSummary writes a human-readable summary to w.
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.results
	fmt.Fprintln(w, "\n=== EVALUATION RESULTS ===")
	fmt.Fprintf(w, "Samples: %d (planets %d, skipped %d, failed %d)\n", res.Samples, res.Planets, res.Skipped, res.Failed)
	fmt.Fprintf(w, "Mean class-1 margin: planets %.3f, non-planets %.3f\n", res.MeanMarginPlanet, res.MeanMarginNonPlanet)
	for _, p := range res.Polarities {
		fmt.Fprintf(w, "positiveClass=%d  accuracy %.2f%%  precision %.2f%%  recall %.2f%%  f1 %.3f\n",
			p.PositiveClass, p.Accuracy*100, p.Precision*100, p.Recall*100, p.F1)
	}
	fmt.Fprintf(w, "Recommended positiveClass: %d\n", res.Recommended)
	if res.Agrees() {
		fmt.Fprintf(w, "Configured positiveClass %d matches the data\n", res.Configured)
	} else {
		fmt.Fprintf(w, "WARNING: configured positiveClass is %d\n", res.Configured)
	}
	fmt.Fprintln(w, "==========================")
}
