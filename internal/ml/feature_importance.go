package ml

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FeatureImportance tracks how much each feature moves predictions, as the
// running mean of absolute attributions.
type FeatureImportance struct {
	mu             sync.RWMutex
	featureNames   []string
	importanceData map[string]*FeatureStats
	savePath       string
}

// FeatureStats contains statistics for a single feature
type FeatureStats struct {
	Name             string    `json:"name"`
	ImportanceScore  float64   `json:"importance_score"`
	MeanContribution float64   `json:"mean_contribution"`
	UsageCount       int64     `json:"usage_count"`
	MinValue         float64   `json:"min_value"`
	MaxValue         float64   `json:"max_value"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewFeatureImportance creates a tracker for names. When savePath is set,
// previously saved statistics are loaded from it.
func NewFeatureImportance(names []string, savePath string) *FeatureImportance {
	fi := &FeatureImportance{
		featureNames:   names,
		importanceData: make(map[string]*FeatureStats),
		savePath:       savePath,
	}
	fi.resetLocked()

	// Load existing data if available
	if savePath != "" {
		if err := fi.Load(); err != nil {
			log.Warn().Err(err).Str("path", savePath).Msg("Failed to load feature importance data")
		}
	}

	return fi
}

func (fi *FeatureImportance) resetLocked() {
	for _, name := range fi.featureNames {
		fi.importanceData[name] = &FeatureStats{
			Name:        name,
			MinValue:    math.Inf(1),
			MaxValue:    math.Inf(-1),
			LastUpdated: time.Now(),
		}
	}
}

// export copies s; untouched features hold infinite bounds, which JSON
// cannot encode.
func (s *FeatureStats) export() FeatureStats {
	c := *s
	if c.UsageCount == 0 {
		c.MinValue, c.MaxValue = 0, 0
	}
	return c
}

// Observe folds one attribution into the statistics.
func (fi *FeatureImportance) Observe(a Attribution) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	now := time.Now()
	for _, v := range a.Values {
		stats, ok := fi.importanceData[v.Feature]
		if !ok {
			continue
		}
		stats.UsageCount++
		n := float64(stats.UsageCount)
		stats.ImportanceScore += (math.Abs(v.Value) - stats.ImportanceScore) / n
		stats.MeanContribution += (v.Value - stats.MeanContribution) / n
		if v.Value < stats.MinValue {
			stats.MinValue = v.Value
		}
		if v.Value > stats.MaxValue {
			stats.MaxValue = v.Value
		}
		stats.LastUpdated = now
	}
}

// GetFeatureImportance returns a copy of the statistics, in feature order.
func (fi *FeatureImportance) GetFeatureImportance() []FeatureStats {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	result := make([]FeatureStats, 0, len(fi.featureNames))
	for _, name := range fi.featureNames {
		result = append(result, fi.importanceData[name].export())
	}
	return result
}

// GetTopFeatures returns the n features with the highest importance.
func (fi *FeatureImportance) GetTopFeatures(n int) []string {
	stats := fi.GetFeatureImportance()
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].ImportanceScore > stats[j].ImportanceScore
	})

	if n > len(stats) {
		n = len(stats)
	}
	result := make([]string, n)
	for i := 0; i < n; i++ {
		result[i] = stats[i].Name
	}
	return result
}

// Save saves the feature importance data to disk
func (fi *FeatureImportance) Save() error {
	if fi.savePath == "" {
		return nil
	}

	fi.mu.RLock()
	defer fi.mu.RUnlock()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(fi.savePath), 0o755); err != nil {
		return err
	}

	out := make(map[string]FeatureStats, len(fi.importanceData))
	for name, s := range fi.importanceData {
		out[name] = s.export()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(fi.savePath, data, 0o600)
}

// Load loads feature importance data from disk
func (fi *FeatureImportance) Load() error {
	if fi.savePath == "" {
		return nil
	}

	data, err := os.ReadFile(fi.savePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, start fresh
		}
		return err
	}

	loaded := make(map[string]*FeatureStats)
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()

	for name, s := range loaded {
		if _, known := fi.importanceData[name]; !known {
			continue
		}
		if s.UsageCount == 0 {
			s.MinValue, s.MaxValue = math.Inf(1), math.Inf(-1)
		}
		s.Name = name
		fi.importanceData[name] = s
	}
	return nil
}

// Reset resets all feature importance data
func (fi *FeatureImportance) Reset() {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.resetLocked()
}
