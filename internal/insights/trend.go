package insights

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sells-group/market-advisor/internal/stats"
	"github.com/sells-group/market-advisor/internal/table"
)

// trendMonths is the number of most recent months reported.
const trendMonths = 12

// TrendPoint is one calendar month of summed revenue and profit.
type TrendPoint struct {
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// exactLayouts are tried before the general parser: day-month-name dates,
// two-digit-year dashed dates and dotted day-first dates, which the general
// parser either rejects or reads month-first.
var exactLayouts = []string{
	"02-Jan-2006",
	"2-Jan-2006",
	"01-02-06",
	"02.01.2006",
	"2.1.2006",
	"1/2/2006 15:04",
}

// ParseDate reads a spreadsheet date cell. Ambiguous slash dates are
// month-first, falling back to day-first when the month overflows.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range exactLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	ts, err := dateparse.ParseIn(raw, time.UTC,
		dateparse.PreferMonthFirst(true),
		dateparse.RetryAmbiguousDateWithSwap(true),
	)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// dateColumn returns the mapped date column, else the first column whose name
// contains "date".
func dateColumn(t *table.Table, mapping RoleMapping) string {
	if col := mapping.Get(RoleDate); col != "" && t.Has(col) {
		return col
	}
	for _, col := range t.Columns {
		if strings.Contains(strings.ToLower(col), "date") {
			return col
		}
	}
	return ""
}

// BuildTrend buckets revenue and profit by calendar month and returns the
// last 12 months in chronological order. No usable date column yields an
// empty slice.
func BuildTrend(t *table.Table, mapping RoleMapping, s *Series) []TrendPoint {
	out := []TrendPoint{}
	col := dateColumn(t, mapping)
	if col == "" {
		return out
	}

	type bucket struct{ revenue, profit float64 }
	months := make(map[string]*bucket)
	for i, raw := range t.Column(col) {
		ts, ok := ParseDate(raw)
		if !ok {
			continue
		}
		key := ts.Format("2006-01")
		b, ok := months[key]
		if !ok {
			b = &bucket{}
			months[key] = b
		}
		b.revenue += s.Revenue[i]
		b.profit += s.Profit[i]
	}
	if len(months) == 0 {
		return out
	}

	periods := make([]string, 0, len(months))
	for k := range months {
		periods = append(periods, k)
	}
	sort.Strings(periods)
	if len(periods) > trendMonths {
		periods = periods[len(periods)-trendMonths:]
	}

	for _, p := range periods {
		b := months[p]
		out = append(out, TrendPoint{
			Period:  p,
			Revenue: stats.Round(b.revenue, 2),
			Profit:  stats.Round(b.profit, 2),
		})
	}
	return out
}
