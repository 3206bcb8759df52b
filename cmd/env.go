package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/config"
	"github.com/sells-group/market-advisor/internal/narrative"
	"github.com/sells-group/market-advisor/internal/weights"
	"github.com/sells-group/market-advisor/pkg/anthropic"
)

// newGenerator returns the narrative generator for the configured
// credentials, or nil when no API key is set.
func newGenerator(c config.AnthropicConfig) narrative.Generator {
	if c.Key == "" {
		zap.L().Info("anthropic key not configured, narratives use fallback text")
		return nil
	}
	opts := []anthropic.Option{anthropic.WithTimeout(c.Timeout())}
	if c.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(c.BaseURL))
	}
	return narrative.NewAnthropicGenerator(anthropic.NewClient(c.Key, opts...), c.Model, c.Timeout())
}

func loadRules(c config.MarketConfig) (*weights.Table, error) {
	rules, err := weights.Load(c.WeightRules)
	if err != nil {
		return nil, eris.Wrap(err, "load weight rules")
	}
	return rules, nil
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}
