package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/config"
)

var cfg *config.Config

// Global flags. Non-empty values win over config.yaml and ADVISOR_* variables.
var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "advisor-api",
	Short: "Market-entry scoring and KPI analysis service",
	Long: `advisor-api ranks countries for a business profile, analyzes uploaded KPI
spreadsheets, and answers consulting questions.

Run "advisor-api serve" for the HTTP API, or use score, weights and insights
to get the same results on the command line. "advisor-api dataset build"
refreshes the country dataset the scorer reads.

Configuration comes from ./config.yaml (or --config), a .env file, and
ADVISOR_* environment variables. MARKET_DATA_CSV points the scorer at a
different dataset file.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.LoadFile(configFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if logFormat != "" {
			c.Log.Format = logFormat
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded", zap.String("command", cmd.CommandPath()), zap.String("data_csv", cfg.Market.DataCSV))
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
	f.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&logFormat, "log-format", "", "log format: json or console")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
