package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"exoplanet-ai/internal/api"
	"exoplanet-ai/internal/features"
	"exoplanet-ai/internal/ml"
	"exoplanet-ai/internal/narrative"

	"github.com/spf13/cobra"
)

var (
	predictLanguage string
	predictExplain  bool
	explainTop      int

	predictCmd = &cobra.Command{
		Use:   "predict [observation.json]",
		Short: "Classify one observation with the local artifacts (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPredict,
	}

	explainCmd = &cobra.Command{
		Use:   "explain [observation.json]",
		Short: "Show which features pushed the verdict, strongest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExplain,
	}
)

func init() {
	predictCmd.Flags().StringVar(&predictLanguage, "language", "en", "narrative language (en, ru)")
	predictCmd.Flags().BoolVar(&predictExplain, "explain", false, "include feature attributions")
	explainCmd.Flags().IntVar(&explainTop, "top", 5, "number of features to show, 0 for all")
}

// readObservation decodes the observation in path, or in stdin when path is
// empty or "-".
func readObservation(path string, stdin io.Reader) (features.Observation, error) {
	var obs features.Observation
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return obs, err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&obs); err != nil {
		return obs, fmt.Errorf("decode observation: %w", err)
	}
	return obs, nil
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func runPredict(cmd *cobra.Command, args []string) error {
	obs, err := readObservation(argOrEmpty(args), cmd.InOrStdin())
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(settings, predictExplain)
	if err != nil {
		return err
	}
	out, err := pipeline.Run(cmd.Context(), obs)
	if err != nil {
		return err
	}

	resp := api.SearchResponse{
		Habitable:   out.Result.Label,
		Confidence:  out.Result.Confidence,
		Probability: out.Result.Probability,
		Analysis:    narrative.Generate(out.Result.Label, out.Result.Confidence, obs.StarSystem, predictLanguage),
		Details:     obs.WithDefaults(),
		OutOfRange:  features.OutOfRange(out.Row),
	}
	if !out.Attribution.Empty() {
		resp.Attribution = &out.Attribution
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runExplain(cmd *cobra.Command, args []string) error {
	obs, err := readObservation(argOrEmpty(args), cmd.InOrStdin())
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(settings, true)
	if err != nil {
		return err
	}
	out, err := pipeline.Run(cmd.Context(), obs)
	if err != nil {
		return err
	}
	printAttribution(cmd.OutOrStdout(), out, explainTop)
	return nil
}

// printAttribution writes the verdict and the top contributions as a table.
func printAttribution(w io.Writer, out ml.Output, top int) {
	values := append([]ml.FeatureAttribution(nil), out.Attribution.Values...)
	sort.SliceStable(values, func(i, j int) bool {
		return math.Abs(values[i].Value) > math.Abs(values[j].Value)
	})
	if top > 0 && top < len(values) {
		values = values[:top]
	}

	fmt.Fprintf(w, "exoplanet: %t  confidence: %.2f%%\n", out.Result.Label, out.Result.Confidence)
	fmt.Fprintf(w, "expected value: %.4f\n\n", out.Attribution.ExpectedValue)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tCONTRIBUTION\tEFFECT")
	for _, v := range values {
		effect := "towards exoplanet"
		if v.Value < 0 {
			effect = "against"
		}
		fmt.Fprintf(tw, "%s\t%+.4f\t%s\n", v.Feature, v.Value, effect)
	}
	tw.Flush()
}
