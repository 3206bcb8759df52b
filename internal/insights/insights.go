package insights

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/market-advisor/internal/apperr"
	"github.com/sells-group/market-advisor/internal/table"
)

// minNumericColumns is the fewest numeric columns an upload needs.
const minNumericColumns = 2

// Options configures an analysis run.
type Options struct {
	// Now anchors the forecast. Defaults to time.Now.
	Now func() time.Time
}

// ChartData groups the chart-ready series of a report.
type ChartData struct {
	ClusterScatter    []ScatterPoint  `json:"cluster_scatter"`
	SegmentBreakdown  []Breakdown     `json:"segment_breakdown"`
	CategoryBreakdown []Breakdown     `json:"category_breakdown"`
	RegionBreakdown   []Breakdown     `json:"region_breakdown"`
	ProductLeaders    []ProductLeader `json:"product_leaders"`
	TrendData         []TrendPoint    `json:"trend_data"`
}

// Report is the complete business-insights payload for one upload.
type Report struct {
	ID           string           `json:"analysis_id"`
	KPISummary   KPISummary       `json:"kpi_summary"`
	Clusters     []ClusterSummary `json:"clusters"`
	ChartData    ChartData        `json:"chart_data"`
	Alerts       []Alert          `json:"alerts"`
	ForecastData Forecast         `json:"forecast_data"`
	Summary      string           `json:"gpt_summary"`

	Mapping RoleMapping `json:"-"`
}

// Analyze runs the full extraction pipeline over an uploaded table.
func Analyze(t *table.Table, opts Options) (*Report, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := zap.L().With(zap.String("component", "insights"))
	log.Debug("uploaded columns", zap.Strings("columns", t.Columns), zap.Int("rows", t.Len()))

	numeric, cache := table.ClassifyNumeric(t)
	if len(numeric) < minNumericColumns {
		return nil, apperr.Validation("Not enough numeric columns for analysis.")
	}

	mapping := ClassifyRoles(t)
	series, err := Resolve(t, mapping, numeric, cache)
	if err != nil {
		return nil, err
	}

	clusters, err := BuildClusters(series)
	if err != nil {
		return nil, err
	}

	dims := BuildDimensions(t, mapping, series)
	alerts := BuildAlerts(t, mapping, series, cache)

	report := &Report{
		ID:         uuid.NewString(),
		KPISummary: BuildKPISummary(t, series),
		Clusters:   clusters.Summaries,
		ChartData: ChartData{
			ClusterScatter:    clusters.Scatter,
			SegmentBreakdown:  dims.Segments,
			CategoryBreakdown: dims.Categories,
			RegionBreakdown:   dims.Regions,
			ProductLeaders:    dims.Products,
			TrendData:         BuildTrend(t, mapping, series),
		},
		Alerts:       alerts,
		ForecastData: BuildForecast(series.Revenue, opts.Now()),
		Mapping:      mapping,
	}
	report.Summary = summarize(dims, alerts)

	log.Info("analysis complete",
		zap.String("analysis_id", report.ID),
		zap.String("revenue_column", series.RevenueColumn),
		zap.Int("clusters", len(report.Clusters)),
		zap.Int("alerts", len(alerts)),
	)
	return report, nil
}

func summarize(dims Dimensions, alerts []Alert) string {
	var parts []string
	if len(dims.Segments) > 0 {
		parts = append(parts, dims.Segments[0].Label+" leads revenue contribution.")
	}
	if len(dims.Regions) > 0 {
		parts = append(parts, "Strongest geographic performance observed in "+dims.Regions[0].Label+".")
	}
	parts = append(parts, "Revenue and profit margin analysis completed. Higher-margin clusters show strong sales performance.")
	if len(alerts) > 0 {
		parts = append(parts, "Review the flagged discounts and low-margin items for corrective actions.")
	}
	return strings.Join(parts, " ")
}
