package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"exoplanet-ai/internal/evaluation"
	"exoplanet-ai/internal/features"
	"exoplanet-ai/internal/storage"

	"github.com/spf13/cobra"
)

var (
	historyData   string
	historyLimit  int
	historyUser   string
	historyFormat string

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Inspect or export searches from a bolt data directory",
		Long: `history opens the bolt database of a stopped exoserver and prints the most
recent searches. --format csv writes the observations with the verdict as the
label column, in the layout validate reads.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().StringVar(&historyData, "data", "data", "bolt data directory (DATA_PATH)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of searches, newest last")
	historyCmd.Flags().StringVar(&historyUser, "user", "", "only searches by this user id")
	historyCmd.Flags().StringVar(&historyFormat, "format", "table", "output format: table or csv")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyFormat != "table" && historyFormat != "csv" {
		return fmt.Errorf("unknown format %q", historyFormat)
	}

	store, err := storage.NewBoltStore(historyData)
	if err != nil {
		return err
	}
	defer store.Close()

	var records []storage.SearchRecord
	if historyUser != "" {
		records, err = store.SearchesByOwner(historyUser, historyLimit)
	} else {
		records, err = store.RecentSearches(historyLimit)
	}
	if err != nil {
		return err
	}

	if historyFormat == "csv" {
		return writeHistoryCSV(cmd.OutOrStdout(), records)
	}
	total, err := store.CountSearches()
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), records, total)
	return nil
}

func printHistory(w io.Writer, records []storage.SearchRecord, total int) {
	fmt.Fprintf(w, "%d of %d searches\n\n", len(records), total)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tID\tSYSTEM\tEXOPLANET\tCONFIDENCE\tOUT OF RANGE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%.2f%%\t%d\n",
			r.Timestamp.Format(time.DateTime), r.ID, r.Parameters.StarSystem,
			r.Result.Label, r.Result.Confidence, len(r.OutOfRange))
	}
	tw.Flush()
}

func writeHistoryCSV(w io.Writer, records []storage.SearchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(features.Columns(), evaluation.LabelColumn)); err != nil {
		return err
	}
	for _, r := range records {
		obs := r.Parameters
		row := make([]string, 0, features.NumFeatures+1)
		for _, f := range features.Fields() {
			if v, ok := obs.Value(f); ok {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		label := "0"
		if r.Result.Label {
			label = "1"
		}
		if err := cw.Write(append(row, label)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
