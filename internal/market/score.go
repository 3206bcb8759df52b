package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/sells-group/market-advisor/internal/apperr"
	"github.com/sells-group/market-advisor/internal/stats"
	"github.com/sells-group/market-advisor/internal/weights"
)

const (
	topMarkets     = 5
	chartRows      = 10
	breakdownLimit = 5
)

// MetricDetail attributes part of a country's score to one indicator.
type MetricDetail struct {
	Raw          float64 `json:"raw"`
	Normalized   float64 `json:"normalized"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Ranked is a scored country. Metrics hold unrounded values.
type Ranked struct {
	Country string
	Region  string
	Score   float64
	Metrics map[string]MetricDetail
}

// TopMarket is one shortlist entry.
type TopMarket struct {
	Country string  `json:"Country"`
	Score   float64 `json:"Score"`
}

// ChartData is the bar chart series for the leading countries.
type ChartData struct {
	Countries []string  `json:"countries"`
	Scores    []float64 `json:"scores"`
}

// CountryBreakdown is the per-indicator attribution of a leading country.
type CountryBreakdown struct {
	Country string                  `json:"country"`
	Score   float64                 `json:"score"`
	Metrics map[string]MetricDetail `json:"metrics"`
}

// Result is a ranked shortlist plus its explanation inputs.
type Result struct {
	Ranked     []Ranked           `json:"-"`
	TopMarkets []TopMarket        `json:"top_markets"`
	Weights    weights.Vector     `json:"weights_used"`
	Chart      ChartData          `json:"chart_data"`
	Breakdown  []CountryBreakdown `json:"metric_breakdown"`
}

// Leaders returns the shortlisted country names.
func (r *Result) Leaders() []string {
	return lo.Map(r.TopMarkets, func(m TopMarket, _ int) string { return m.Country })
}

// Score min-max normalizes every available indicator across ds, weights each
// one (negative indicators are inverted), and ranks countries by the summed
// contributions. Ties keep dataset order.
func Score(ds *Dataset, rules *weights.Table, w weights.Vector) (*Result, error) {
	if ds == nil || len(ds.Countries) == 0 {
		return nil, apperr.ErrNoUsableRows
	}

	ranked := make([]Ranked, len(ds.Countries))
	for i, c := range ds.Countries {
		ranked[i] = Ranked{
			Country: c.Name,
			Region:  c.Region,
			Metrics: make(map[string]MetricDetail, len(ds.Indicators)),
		}
	}

	for _, key := range ds.Indicators {
		raw := make([]float64, len(ds.Countries))
		for i, c := range ds.Countries {
			raw[i] = c.Values[key]
		}
		norm := stats.Scale(raw)
		ind, _ := rules.Indicator(key)
		weight := w[key]

		for i := range ranked {
			d := MetricDetail{Raw: raw[i], Normalized: norm[i], Weight: weight}
			if weight != 0 {
				if ind.Negative {
					d.Contribution = weight * (1 - norm[i])
				} else {
					d.Contribution = weight * norm[i]
				}
			}
			ranked[i].Metrics[key] = d
			ranked[i].Score += d.Contribution
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	for i := range ranked {
		ranked[i].Score = stats.Round(ranked[i].Score, 4)
	}

	res := &Result{Ranked: ranked, Weights: w}
	for i, r := range ranked {
		if i < topMarkets {
			res.TopMarkets = append(res.TopMarkets, TopMarket{Country: r.Country, Score: r.Score})
		}
		if i < chartRows {
			res.Chart.Countries = append(res.Chart.Countries, r.Country)
			res.Chart.Scores = append(res.Chart.Scores, r.Score)
		}
		if i < breakdownLimit {
			res.Breakdown = append(res.Breakdown, breakdownFor(r))
		}
	}
	return res, nil
}

func breakdownFor(r Ranked) CountryBreakdown {
	metrics := make(map[string]MetricDetail, len(r.Metrics))
	for key, d := range r.Metrics {
		metrics[key] = MetricDetail{
			Raw:          d.Raw,
			Normalized:   stats.Round(d.Normalized, 4),
			Weight:       d.Weight,
			Contribution: stats.Round(d.Contribution, 4),
		}
	}
	return CountryBreakdown{Country: r.Country, Score: r.Score, Metrics: metrics}
}

// Summary is the one-sentence recommendation shown above the chart.
func Summary(p weights.Profile, leaders []string) string {
	switch len(leaders) {
	case 0:
		return "No markets met the criteria. Adjust your profile inputs and retry."
	case 1:
		return fmt.Sprintf("Consider prioritizing %s for a %s %s expansion given the selected %s risk profile.",
			leaders[0], p.CustomerType, strings.ToLower(p.Industry), strings.ToLower(p.RiskProfile))
	}
	return fmt.Sprintf("For a %s %s company operating a %s model with a %s presence and %s risk appetite, consider %s and %s as leading expansion markets.",
		p.CustomerType, p.Industry, p.BusinessModel,
		strings.ToLower(p.PresenceMode), strings.ToLower(p.RiskProfile),
		strings.Join(leaders[:len(leaders)-1], ", "), leaders[len(leaders)-1])
}

// Evaluation is a scored request ready for the response envelope.
type Evaluation struct {
	*Result
	Summary string `json:"summary"`
}

// Evaluate filters ds to the requested regions, derives the profile weights,
// and ranks the remaining countries.
func Evaluate(req Request, ds *Dataset, rules *weights.Table) (*Evaluation, error) {
	filtered, err := FilterRegions(ds, req.Regions)
	if err != nil {
		return nil, err
	}
	res, err := Score(filtered, rules, rules.For(req.Profile))
	if err != nil {
		return nil, err
	}
	return &Evaluation{Result: res, Summary: Summary(req.Profile, res.Leaders())}, nil
}
