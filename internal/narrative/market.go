package narrative

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/sells-group/market-advisor/internal/market"
	"github.com/sells-group/market-advisor/internal/weights"
)

const (
	marketMaxTokens    = 150
	marketTemperature  = 0.3
	emphasisLimit      = 5
	highlightCountries = 3
	highlightMetrics   = 3
	reasonMetrics      = 2
)

const marketInstructions = "You are an explainable AI assistant for strategy consultants. " +
	"Describe in 4 short sentences why certain markets scored highest. " +
	"Be plain-language, cite what each metric means, mention how the weights interact " +
	"across growth, digital readiness, scale, consumer purchasing power, inflation stability, " +
	"governance risk, and operating cost, " +
	"and reference the strongest metric for each highlighted country."

const marketRationale = "We ranked %s by blending GDP growth, digital adoption, market scale, " +
	"consumer purchasing power, price stability, governance risk, and operating cost. " +
	"Lower corruption and cost indices improve scores, while lower inflation rewards stability."

// MarketInput is what the explainable summary is written from.
type MarketInput struct {
	Profile   weights.Profile
	Weights   weights.Vector
	Leaders   []string
	Breakdown []market.CountryBreakdown
}

// Explainer writes explainable summaries for market rankings.
type Explainer struct {
	rules *weights.Table
	gen   Generator
}

// NewExplainer returns an Explainer. gen may be nil, in which case every
// summary is the local fallback.
func NewExplainer(rules *weights.Table, gen Generator) *Explainer {
	return &Explainer{rules: rules, gen: gen}
}

// Explain describes why the leaders ranked highest. A recommendation sentence
// is appended to generated text that omits it.
func (e *Explainer) Explain(ctx context.Context, in MarketInput) Result {
	top := lo.Slice(in.Breakdown, 0, highlightCountries)
	rec := e.recommendation(in.Profile.CustomerType, top)

	res := Run(ctx, e.gen, e.prompt(in, top, rec), func() string {
		return e.fallback(in, top, rec)
	})
	if rec != "" && !strings.Contains(res.Text, rec) {
		res.Text += "\nRecommendation: " + rec
	}
	return res
}

func (e *Explainer) prompt(in MarketInput, top []market.CountryBreakdown, rec string) Prompt {
	leaders := "the shortlisted markets"
	if len(in.Leaders) > 0 {
		leaders = strings.Join(lo.Slice(in.Leaders, 0, highlightCountries), ", ")
	}
	p := in.Profile
	profile := fmt.Sprintf("Industry: %s, Business model: %s, Presence: %s, Customer type: %s, Risk appetite: %s, Capital: %s",
		p.Industry, p.BusinessModel, p.PresenceMode, p.CustomerType, p.RiskProfile,
		strconv.FormatFloat(p.Capital, 'f', -1, 64))

	var b strings.Builder
	fmt.Fprintf(&b, "Top markets: %s. %s %s Business profile: %s. ",
		leaders, e.emphasis(in.Weights), e.highlights(top), profile)
	if rec != "" {
		fmt.Fprintf(&b, "Recommendation: %s ", rec)
	}
	b.WriteString("Keep the tone concise and educational.")

	return Prompt{
		System:      marketInstructions,
		CacheSystem: true,
		User:        b.String(),
		MaxTokens:   marketMaxTokens,
		Temperature: marketTemperature,
		Purpose:     "market_summary",
	}
}

func (e *Explainer) fallback(in MarketInput, top []market.CountryBreakdown, rec string) string {
	leaders := "the highlighted countries"
	if len(in.Leaders) > 0 {
		leaders = strings.Join(in.Leaders, ", ")
	}
	body := fmt.Sprintf(marketRationale, leaders)
	if lines := e.highlights(top); lines != "" {
		body += "\nKey highlights:\n" + lines
	}
	if rec != "" {
		body += "\nRecommendation: " + rec
	}
	return body
}

// emphasis lists the heaviest positive weights as "label (~N%)".
func (e *Explainer) emphasis(w weights.Vector) string {
	keys := e.orderedKeys(func(k string) bool { _, ok := w[k]; return ok })
	sort.SliceStable(keys, func(a, b int) bool { return w[keys[a]] > w[keys[b]] })

	var phrases []string
	for _, k := range lo.Slice(keys, 0, emphasisLimit) {
		if w[k] <= 0 {
			continue
		}
		ind, _ := e.rules.Indicator(k)
		phrases = append(phrases, fmt.Sprintf("%s (~%.0f%%)", ind.Label, w[k]*100))
	}
	return "Emphasis mix: " + strings.Join(phrases, ", ")
}

// highlights renders one bullet per country with its strongest metrics.
func (e *Explainer) highlights(entries []market.CountryBreakdown) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		var fragments []string
		for _, k := range e.strongest(entry, highlightMetrics) {
			ind, _ := e.rules.Indicator(k)
			fragments = append(fragments, ind.Label+": "+ind.FormatRaw(entry.Metrics[k].Raw))
		}
		lines = append(lines, fmt.Sprintf("• %s – %s", entry.Country, strings.Join(fragments, "; ")))
	}
	return strings.Join(lines, "\n")
}

func (e *Explainer) recommendation(customerType string, entries []market.CountryBreakdown) string {
	if len(entries) == 0 {
		return ""
	}
	leader := entries[0]
	var phrases []string
	for _, k := range e.strongest(leader, reasonMetrics) {
		ind, _ := e.rules.Indicator(k)
		qualifier := "high"
		if ind.Negative {
			qualifier = "low"
		}
		phrases = append(phrases, qualifier+" "+ind.Label)
	}
	if customerType == "" {
		customerType = "your"
	}
	return fmt.Sprintf("For a %s profile, %s stands out thanks to %s.",
		customerType, leader.Country, strings.Join(phrases, ", "))
}

// strongest returns the n metric keys with the largest contribution, ties in
// indicator order.
func (e *Explainer) strongest(entry market.CountryBreakdown, n int) []string {
	keys := e.orderedKeys(func(k string) bool { _, ok := entry.Metrics[k]; return ok })
	sort.SliceStable(keys, func(a, b int) bool {
		return entry.Metrics[keys[a]].Contribution > entry.Metrics[keys[b]].Contribution
	})
	return lo.Slice(keys, 0, n)
}

// orderedKeys returns the table's indicator keys accepted by keep, in table
// order.
func (e *Explainer) orderedKeys(keep func(string) bool) []string {
	return lo.Filter(e.rules.Keys(), func(k string, _ int) bool { return keep(k) })
}
