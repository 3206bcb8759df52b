package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-advisor/internal/insights"
	"github.com/sells-group/market-advisor/internal/table"
)

var (
	insightsFile  string
	insightsSheet string
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Analyze a KPI spreadsheet (CSV or XLSX)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		t, err := readTableFile(insightsFile, insightsSheet)
		if err != nil {
			return err
		}
		report, err := insights.Analyze(t, insights.Options{})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

// readTableFile loads a CSV, or an XLSX worksheet when the extension says so.
func readTableFile(path, sheet string) (*table.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		return table.ReadXLSX(data, sheet)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return table.ReadCSV(f, table.CSVOptions{})
}

func init() {
	insightsCmd.Flags().StringVar(&insightsFile, "file", "", "KPI file to analyze")
	insightsCmd.Flags().StringVar(&insightsSheet, "sheet", "", "worksheet to read from an XLSX file (default first)")
	_ = insightsCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(insightsCmd)
}
