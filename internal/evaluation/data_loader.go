package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"exoplanet-ai/internal/features"

	"github.com/rs/zerolog/log"
)

// LabelColumn is the CSV column holding the ground truth.
const LabelColumn = "label"

// Sample is one labeled row of evaluation data.
type Sample struct {
	Line   int
	Values map[string]float64
	// Planet is the ground truth: true for a confirmed exoplanet.
	Planet bool
}

// DataLoader reads labeled observations for offline evaluation.
type DataLoader struct {
	samples []Sample
	columns []string
	skipped int
}

// NewDataLoader creates an empty data loader
func NewDataLoader() *DataLoader {
	return &DataLoader{samples: make([]Sample, 0)}
}

// LoadFromCSV loads labeled rows from a CSV file
func (dl *DataLoader) LoadFromCSV(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	if err := dl.LoadCSV(file); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	log.Info().
		Str("file", filePath).
		Int("samples", len(dl.samples)).
		Int("skipped", dl.skipped).
		Msg("CSV data loaded successfully")
	return nil
}

// LoadCSV reads a header row naming feature columns (training or request
// names) plus a label column, then one sample per row. Empty cells are
// missing values and are left to the imputer. Rows with an unreadable label
// or number are skipped and counted.
func (dl *DataLoader) LoadCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	labelIdx := -1
	featureIdx := make(map[int]string)
	for i, col := range header {
		col = strings.TrimSpace(col)
		if col == LabelColumn {
			labelIdx = i
			continue
		}
		if _, ok := features.Lookup(col); ok {
			featureIdx[i] = col
			dl.columns = append(dl.columns, col)
		}
	}
	if labelIdx < 0 {
		return fmt.Errorf("CSV header has no %q column", LabelColumn)
	}
	if len(featureIdx) == 0 {
		return errors.New("CSV header names no known feature columns")
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
				dl.skip(line, "wrong number of fields")
				continue
			}
			return fmt.Errorf("line %d: %w", line, err)
		}

		planet, ok := parseLabel(record[labelIdx])
		if !ok {
			dl.skip(line, "unreadable label")
			continue
		}

		sample := Sample{Line: line, Values: make(map[string]float64, len(featureIdx)), Planet: planet}
		valid := true
		for i, col := range featureIdx {
			raw := strings.TrimSpace(record[i])
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				valid = false
				break
			}
			sample.Values[col] = v
		}
		if !valid {
			dl.skip(line, "unreadable number")
			continue
		}
		dl.samples = append(dl.samples, sample)
	}
	return nil
}

func (dl *DataLoader) skip(line int, reason string) {
	dl.skipped++
	log.Debug().Int("line", line).Str("reason", reason).Msg("Skipping evaluation row")
}

// parseLabel accepts 1/0, true/false and the archive dispositions.
func parseLabel(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "confirmed":
		return true, true
	case "0", "false", "false positive":
		return false, true
	}
	return false, false
}

// Samples returns the loaded samples in file order.
func (dl *DataLoader) Samples() []Sample { return dl.samples }

// Columns returns the recognised feature columns from the header.
func (dl *DataLoader) Columns() []string { return dl.columns }

// Skipped returns the number of rows that could not be read.
func (dl *DataLoader) Skipped() int { return dl.skipped }
