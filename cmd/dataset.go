package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-advisor/internal/countrydata"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage the country indicator dataset",
}

var (
	datasetBase        string
	datasetSupplements []string
	datasetOut         string
	datasetCharset     string
)

var datasetBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Merge the base market CSV with supplemental country sources",
	Long: `Left-joins supplemental per-country CSVs onto the base market CSV by
normalized country name, suffixes each supplemental column with its label,
and fills missing index values by regional then global median.

Without --supplement, corruption.csv and cost_of_living.csv next to the base
file are used when present.

Example:
  dataset build --base data/market.csv \
    --supplement corruption=data/corruption.csv \
    --supplement cost_of_living=data/cost_of_living.csv \
    --out data/all_data.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sups, err := parseSupplements(datasetSupplements, datasetCharset)
		if err != nil {
			return err
		}
		if len(sups) == 0 {
			sups = countrydata.DefaultSupplements(filepath.Dir(datasetBase))
		}

		out := datasetOut
		if out == "" {
			out = cfg.Market.DataCSV
		}

		merged, err := countrydata.Build(countrydata.BuildOptions{
			BasePath:    datasetBase,
			Supplements: sups,
			OutPath:     out,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d countries to %s\n", merged.Len(), out)
		return nil
	},
}

// parseSupplements reads label=path pairs.
func parseSupplements(pairs []string, charset string) ([]countrydata.SourceFile, error) {
	out := make([]countrydata.SourceFile, 0, len(pairs))
	for _, pair := range pairs {
		label, path, ok := strings.Cut(pair, "=")
		label, path = strings.TrimSpace(label), strings.TrimSpace(path)
		if !ok || label == "" || path == "" {
			return nil, eris.Errorf("invalid --supplement %q, want label=path", pair)
		}
		out = append(out, countrydata.SourceFile{Label: label, Path: path, Charset: charset})
	}
	return out, nil
}

func init() {
	f := datasetBuildCmd.Flags()
	f.StringVar(&datasetBase, "base", "", "base market CSV")
	f.StringArrayVar(&datasetSupplements, "supplement", nil, "supplemental source as label=path (repeatable)")
	f.StringVar(&datasetOut, "out", "", "output CSV (default market.data_csv)")
	f.StringVar(&datasetCharset, "charset", "", "character set of the supplemental files (e.g. windows-1252)")
	_ = datasetBuildCmd.MarkFlagRequired("base")

	datasetCmd.AddCommand(datasetBuildCmd)
	rootCmd.AddCommand(datasetCmd)
}
