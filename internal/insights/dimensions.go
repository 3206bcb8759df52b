package insights

import (
	"sort"

	"github.com/samber/lo"

	"github.com/sells-group/market-advisor/internal/stats"
	"github.com/sells-group/market-advisor/internal/table"
)

// breakdownLimit caps every ranked breakdown.
const breakdownLimit = 5

// Breakdown is one ranked group of a dimension.
type Breakdown struct {
	Label        string  `json:"label"`
	Revenue      float64 `json:"revenue"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// ProductLeader is one ranked product. Product rows carry no margin.
type ProductLeader struct {
	Product string  `json:"product"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// Dimensions holds the top groups for each grouping dimension.
type Dimensions struct {
	Segments   []Breakdown     `json:"segments"`
	Categories []Breakdown     `json:"categories"`
	Regions    []Breakdown     `json:"regions"`
	Products   []ProductLeader `json:"products"`
}

type group struct {
	label   string
	revenue float64
	profit  float64
}

// groupSums sums revenue and profit per distinct non-empty label and returns
// the groups ordered by revenue descending. Ties keep label order.
func groupSums(labels []string, revenue, profit table.Series) []group {
	byLabel := make(map[string]*group)
	for i, label := range labels {
		if label == "" {
			continue
		}
		g, ok := byLabel[label]
		if !ok {
			g = &group{label: label}
			byLabel[label] = g
		}
		g.revenue += revenue[i]
		g.profit += profit[i]
	}

	keys := lo.Keys(byLabel)
	sort.Strings(keys)
	groups := lo.Map(keys, func(k string, _ int) group { return *byLabel[k] })
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].revenue > groups[j].revenue
	})
	return groups
}

func breakdown(t *table.Table, column string, s *Series) []Breakdown {
	out := []Breakdown{}
	if column == "" || !t.Has(column) {
		return out
	}
	groups := groupSums(t.Column(column), s.Revenue, s.Profit)
	for _, g := range lo.Slice(groups, 0, breakdownLimit) {
		margin := 0.0
		if g.revenue != 0 {
			margin = g.profit / g.revenue
		}
		out = append(out, Breakdown{
			Label:        g.label,
			Revenue:      stats.Round(g.revenue, 2),
			Profit:       stats.Round(g.profit, 2),
			ProfitMargin: stats.Round(margin, 4),
		})
	}
	return out
}

// BuildDimensions ranks segment, category, region and product groups by
// summed revenue.
func BuildDimensions(t *table.Table, mapping RoleMapping, s *Series) Dimensions {
	d := Dimensions{
		Segments:   breakdown(t, mapping.Get(RoleSegment), s),
		Categories: breakdown(t, mapping.Get(RoleCategory), s),
		Regions:    breakdown(t, mapping.Get(RoleRegion), s),
		Products:   []ProductLeader{},
	}

	if col := mapping.Get(RoleProduct); col != "" && t.Has(col) {
		groups := groupSums(t.Column(col), s.Revenue, s.Profit)
		for _, g := range lo.Slice(groups, 0, breakdownLimit) {
			d.Products = append(d.Products, ProductLeader{
				Product: g.label,
				Revenue: stats.Round(g.revenue, 2),
				Profit:  stats.Round(g.profit, 2),
			})
		}
	}

	return d
}
