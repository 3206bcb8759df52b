package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/market"
	"github.com/sells-group/market-advisor/internal/server"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank countries for a business profile",
	Long: `Scores every country in the market dataset against a business profile and
prints the market-entry payload as JSON.

Examples:
  # Rank all countries for a digital B2C technology business
  score --industry Technology --business-model Online --presence-mode Digital \
    --risk-profile High --customer-type B2C --capital 1000000

  # Restrict to two regions and use a specific dataset
  score --industry Retail --business-model B2B --presence-mode Hybrid \
    --risk-profile Low --customer-type B2B --regions "Europe & Central Asia,East Asia & Pacific" \
    --data ./data/all_data.csv`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	addProfileFlags(f)
	f.String("regions", "", "comma-separated regions to restrict scoring to")
	f.String("data", "", "country dataset CSV; wins over MARKET_DATA_CSV and market.data_csv")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	payload := profilePayload(f)
	regions, _ := f.GetString("regions")
	payload["regions"] = regions

	req, err := market.ParseRequest(payload)
	if err != nil {
		return err
	}

	rules, err := loadRules(cfg.Market)
	if err != nil {
		return err
	}
	dataPath, _ := f.GetString("data")

	srv := server.New(server.Options{
		Config:    cfg.Server,
		DataCSV:   cfg.Market.DataCSV,
		DataPath:  dataPath,
		Rules:     rules,
		Generator: newGenerator(cfg.Anthropic),
	})
	resp, warning, err := srv.MarketEntry(cmd.Context(), req)
	if err != nil {
		return err
	}
	if warning != "" {
		zap.L().Warn(warning)
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
