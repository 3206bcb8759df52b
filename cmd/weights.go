package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/market-advisor/internal/market"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the indicator weights derived for a business profile",
	RunE:  runWeights,
}

func init() {
	addProfileFlags(weightsCmd.Flags())
	rootCmd.AddCommand(weightsCmd)
}

func runWeights(cmd *cobra.Command, _ []string) error {
	req, err := market.ParseRequest(profilePayload(cmd.Flags()))
	if err != nil {
		return err
	}
	rules, err := loadRules(cfg.Market)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rules.For(req.Profile))
}

// profileFlags maps questionnaire flags to payload fields.
var profileFlags = []struct {
	flag, field, usage string
}{
	{"industry", "industry", "industry, e.g. Technology"},
	{"business-model", "business_model", "business model, e.g. Online"},
	{"presence-mode", "presence_mode", "presence mode: Digital, Physical or Hybrid"},
	{"target-market", "target_market", "target market (default Mass Market)"},
	{"risk-profile", "risk_profile", "risk profile: Low, Medium or High"},
	{"customer-type", "customer_type", "customer type: B2C or B2B"},
	{"capital", "capital", "available capital, e.g. 1,000,000"},
}

func addProfileFlags(f *pflag.FlagSet) {
	for _, p := range profileFlags {
		f.String(p.flag, "", p.usage)
	}
}

// profilePayload collects the profile flags into a request payload so the
// CLI shares the API's validation and defaults.
func profilePayload(f *pflag.FlagSet) map[string]any {
	payload := make(map[string]any, len(profileFlags)+1)
	for _, p := range profileFlags {
		if v, _ := f.GetString(p.flag); v != "" {
			payload[p.field] = v
		}
	}
	return payload
}
