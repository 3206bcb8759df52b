package insights

import (
	"sort"
	"strings"

	"github.com/sells-group/market-advisor/internal/stats"
	"github.com/sells-group/market-advisor/internal/table"
)

const (
	// lowMarginThreshold flags records at or below a 15% margin.
	lowMarginThreshold = 0.15
	// alertsPerFamily caps candidates taken from each alert family.
	alertsPerFamily = 5
	// maxAlerts caps the combined alert list.
	maxAlerts = 5
)

// Alert flags a record worth reviewing. Discount is set for high-discount
// losses, ProfitMargin for low-margin items.
type Alert struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Discount     *float64 `json:"discount,omitempty"`
	ProfitMargin *float64 `json:"profit_margin,omitempty"`
	Profit       float64  `json:"profit"`
}

// discountColumn returns the first column naming a discount or markdown.
func discountColumn(t *table.Table) string {
	for _, col := range t.Columns {
		name := strings.ToLower(col)
		if strings.Contains(name, "discount") || strings.Contains(name, "markdown") {
			return col
		}
	}
	return ""
}

func labelAt(t *table.Table, col string, row int, fallback string) string {
	if col == "" || !t.Has(col) {
		return fallback
	}
	if v := t.Cell(row, col); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// BuildAlerts flags loss-making records with the deepest discounts, then the
// lowest-margin records, and returns at most five alerts in that order.
func BuildAlerts(t *table.Table, mapping RoleMapping, s *Series, cache map[string]table.Series) []Alert {
	alerts := []Alert{}

	if col := discountColumn(t); col != "" {
		discount, ok := cache[col]
		if !ok {
			discount = table.CoerceNumeric(t.Column(col))
		}
		labelCol := firstNonEmpty(mapping.Get(RoleProduct), mapping.Get(RoleSegment), col)

		var losses []int
		for i := range discount {
			if stats.Finite(discount[i]) && stats.Finite(s.Profit[i]) && s.Profit[i] < 0 {
				losses = append(losses, i)
			}
		}
		sort.SliceStable(losses, func(a, b int) bool {
			return discount[losses[a]] > discount[losses[b]]
		})
		if len(losses) > alertsPerFamily {
			losses = losses[:alertsPerFamily]
		}
		for _, i := range losses {
			d := stats.Round(discount[i], 2)
			alerts = append(alerts, Alert{
				Title:       labelAt(t, labelCol, i, "High discount loss"),
				Description: "High discount with negative profit",
				Discount:    &d,
				Profit:      stats.Round(s.Profit[i], 2),
			})
		}
	}

	labelCol := firstNonEmpty(mapping.Get(RoleProduct), mapping.Get(RoleSegment), mapping.Get(RoleCategory))
	order := make([]int, 0, len(s.Margin))
	for i := range s.Margin {
		if stats.Finite(s.Margin[i]) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Margin[order[a]] < s.Margin[order[b]]
	})
	if len(order) > alertsPerFamily {
		order = order[:alertsPerFamily]
	}
	for _, i := range order {
		if s.Margin[i] > lowMarginThreshold {
			continue
		}
		m := stats.Round(s.Margin[i], 4)
		alerts = append(alerts, Alert{
			Title:        labelAt(t, labelCol, i, "Low margin item"),
			Description:  "Profit margin below 15%",
			ProfitMargin: &m,
			Profit:       stats.Round(s.Profit[i], 2),
		})
	}

	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}
