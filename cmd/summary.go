package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crop-explorer/internal/entity"
	"github.com/sells-group/crop-explorer/internal/loader"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Load both sources and print catalog statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := loadData(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		s := summarize(res)
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		formatSummary(os.Stdout, s)
		return nil
	},
}

func init() {
	summaryCmd.Flags().Bool("json", false, "print the summary as JSON")
	rootCmd.AddCommand(summaryCmd)
}

// catalogSummary describes what the initial load produced.
type catalogSummary struct {
	Records         int            `json:"records"`
	Skipped         int            `json:"skipped"`
	Items           []string       `json:"items"`
	MinYear         int            `json:"min_year"`
	MaxYear         int            `json:"max_year"`
	Areas           map[string]int `json:"areas"`
	Features        int            `json:"features"`
	MatchedFeatures int            `json:"matched_features"`
	WorldName       string         `json:"world_name"`
	LoadMillis      int64          `json:"load_ms"`
}

func summarize(res *loader.Result) catalogSummary {
	lo, hi := res.Store.YearRange()
	s := catalogSummary{
		Records:    res.Store.Len(),
		Skipped:    res.Store.Skipped(),
		Items:      res.Store.AllItems(),
		MinYear:    lo,
		MaxYear:    hi,
		Areas:      make(map[string]int),
		Features:   len(res.Features),
		WorldName:  res.Policy.WorldName,
		LoadMillis: res.Duration.Milliseconds(),
	}
	for _, c := range []entity.Class{entity.Country, entity.Continent, entity.OtherAggregate} {
		s.Areas[c.String()] = len(res.Resolver.AreasOf(c))
	}
	for _, f := range res.Features {
		if area, ok := res.Resolver.ResolveGeometryFeature(f); ok && res.Store.HasArea(area) {
			s.MatchedFeatures++
		}
	}
	return s
}

func formatSummary(w io.Writer, s catalogSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Records:\t%d\n", s.Records)
	fmt.Fprintf(tw, "Skipped rows:\t%d\n", s.Skipped)
	fmt.Fprintf(tw, "Years:\t%d-%d\n", s.MinYear, s.MaxYear)
	fmt.Fprintf(tw, "Items:\t%d (%s)\n", len(s.Items), preview(s.Items, 5))
	fmt.Fprintf(tw, "Countries:\t%d\n", s.Areas[entity.Country.String()])
	fmt.Fprintf(tw, "Continents:\t%d\n", s.Areas[entity.Continent.String()])
	fmt.Fprintf(tw, "Aggregates:\t%d\n", s.Areas[entity.OtherAggregate.String()])
	fmt.Fprintf(tw, "Map features:\t%d (%d with data)\n", s.Features, s.MatchedFeatures)
	fmt.Fprintf(tw, "World row:\t%s\n", s.WorldName)
	fmt.Fprintf(tw, "Load time:\t%dms\n", s.LoadMillis)
	tw.Flush() //nolint:errcheck
}

func preview(items []string, n int) string {
	if len(items) <= n {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:n], ", ") + ", ..."
}
