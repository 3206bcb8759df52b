package insights

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-advisor/internal/apperr"
	"github.com/sells-group/market-advisor/internal/kmeans"
	"github.com/sells-group/market-advisor/internal/stats"
)

const (
	// minClusterRows is the fewest complete rows segmentation accepts.
	minClusterRows = 3
	maxClusters    = 3
)

// ScatterPoint is one clustered record plotted as margin against revenue.
type ScatterPoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Cluster int     `json:"cluster"`
}

// ClusterSummary aggregates one segment.
type ClusterSummary struct {
	Cluster         int     `json:"cluster"`
	AvgProfit       float64 `json:"avg_profit"`
	AvgProfitMargin float64 `json:"avg_profit_margin"`
	Count           int     `json:"count"`
}

// Clusters is the segmentation payload.
type Clusters struct {
	Scatter   []ScatterPoint   `json:"cluster_scatter"`
	Summaries []ClusterSummary `json:"clusters"`
}

// BuildClusters segments records on {revenue, margin, profit}. Rows with a
// missing or infinite feature are dropped first; fewer than three remaining
// rows is an error.
func BuildClusters(s *Series) (*Clusters, error) {
	type row struct{ revenue, margin, profit float64 }
	var rows []row
	for i := range s.RawRevenue {
		r := row{s.RawRevenue[i], s.RawMargin[i], s.RawProfit[i]}
		if stats.Finite(r.revenue) && stats.Finite(r.margin) && stats.Finite(r.profit) {
			rows = append(rows, r)
		}
	}
	if len(rows) < minClusterRows {
		return nil, apperr.ErrInsufficientData
	}

	features := make([][]float64, len(rows))
	for i, r := range rows {
		features[i] = []float64{r.revenue, r.margin, r.profit}
	}

	fit, err := kmeans.Fit(kmeans.MinMaxScale(features), kmeans.DefaultOptions(min(maxClusters, len(rows))))
	if err != nil {
		return nil, eris.Wrap(err, "insights: cluster records")
	}

	out := &Clusters{Scatter: make([]ScatterPoint, len(rows))}
	type acc struct {
		profit, margin float64
		count          int
	}
	byCluster := make(map[int]*acc)
	for i, r := range rows {
		label := fit.Labels[i]
		out.Scatter[i] = ScatterPoint{X: r.margin, Y: r.revenue, Cluster: label}
		a, ok := byCluster[label]
		if !ok {
			a = &acc{}
			byCluster[label] = a
		}
		a.profit += r.profit
		a.margin += r.margin
		a.count++
	}

	for id, a := range byCluster {
		out.Summaries = append(out.Summaries, ClusterSummary{
			Cluster:         id,
			AvgProfit:       stats.Round(a.profit/float64(a.count), 2),
			AvgProfitMargin: stats.Round(a.margin/float64(a.count), 4),
			Count:           a.count,
		})
	}
	sort.Slice(out.Summaries, func(i, j int) bool {
		return out.Summaries[i].Cluster < out.Summaries[j].Cluster
	})
	return out, nil
}
