package insights

import (
	"time"

	"github.com/samber/lo"

	"github.com/sells-group/market-advisor/internal/stats"
	"github.com/sells-group/market-advisor/internal/table"
)

// KPISummary holds the headline figures for an upload.
type KPISummary struct {
	TotalRevenue    float64  `json:"total_revenue"`
	AvgProfitMargin float64  `json:"avg_profit_margin"`
	NumCompanies    int      `json:"num_companies"`
	AvgChurn        *float64 `json:"avg_churn"`
}

// BuildKPISummary totals revenue, averages margin and churn, and counts
// distinct companies (falling back to the row count).
func BuildKPISummary(t *table.Table, s *Series) KPISummary {
	kpi := KPISummary{
		TotalRevenue:    stats.Round(stats.Sum(s.Revenue), 2),
		AvgProfitMargin: stats.Round(stats.Mean(s.Margin), 4),
		NumCompanies:    t.Len(),
	}
	if s.CompanyColumn != "" {
		names := lo.Compact(t.Column(s.CompanyColumn))
		kpi.NumCompanies = len(lo.Uniq(names))
	}
	if s.Churn != nil {
		churn := stats.Round(stats.Mean(s.Churn), 4)
		kpi.AvgChurn = &churn
	}
	return kpi
}

// forecastPeriods is the number of months projected.
const forecastPeriods = 12

// Forecast is a naive monthly revenue projection.
type Forecast struct {
	Dates           []string  `json:"dates"`
	RevenueForecast []float64 `json:"revenue_forecast"`
}

// BuildForecast projects the mean of the last 12 revenue values forward with
// linear 1% monthly growth, starting at the month of now.
func BuildForecast(revenue table.Series, now time.Time) Forecast {
	var recent []float64
	for _, v := range revenue {
		if stats.Finite(v) {
			recent = append(recent, v)
		}
	}
	recent = lo.Subset(recent, -forecastPeriods, forecastPeriods)

	base := 0.0
	if len(recent) > 0 {
		base = stats.Mean(recent)
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	f := Forecast{
		Dates:           make([]string, forecastPeriods),
		RevenueForecast: make([]float64, forecastPeriods),
	}
	for i := 0; i < forecastPeriods; i++ {
		f.Dates[i] = start.AddDate(0, i, 0).Format("2006-01")
		f.RevenueForecast[i] = stats.Round(base*(1+0.01*float64(i)), 2)
	}
	return f
}
