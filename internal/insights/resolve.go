package insights

import (
	"math"

	"github.com/sells-group/market-advisor/internal/apperr"
	"github.com/sells-group/market-advisor/internal/table"
)

// Series is the resolved bundle every downstream aggregator reads.
//
// Revenue, Profit and Margin are missing-filled to 0. The Raw* fields keep
// missing values as NaN for clustering, which drops incomplete rows instead.
type Series struct {
	RevenueColumn string
	Revenue       table.Series
	Profit        table.Series
	Margin        table.Series
	Churn         table.Series // nil when no churn column exists
	CompanyColumn string       // "" when no company column exists

	RawRevenue table.Series
	RawProfit  table.Series
	RawMargin  table.Series
}

// Resolve picks or derives the revenue, profit, margin and churn series.
func Resolve(t *table.Table, mapping RoleMapping, numeric []string, cache map[string]table.Series) (*Series, error) {
	lookup := func(col string) table.Series {
		if s, ok := cache[col]; ok {
			return s
		}
		return table.CoerceNumeric(t.Column(col))
	}

	revenueCol := mapping.Get(RoleRevenue)
	if revenueCol == "" && len(numeric) > 0 {
		revenueCol = numeric[0]
	}
	if revenueCol == "" {
		return nil, apperr.ErrNoRevenueColumn
	}
	rawRevenue := lookup(revenueCol)

	var rawProfit table.Series
	switch {
	case mapping.Get(RoleProfit) != "":
		rawProfit = lookup(mapping.Get(RoleProfit))
	case mapping.Get(RoleCost) != "":
		cost := lookup(mapping.Get(RoleCost))
		rawProfit = make(table.Series, len(rawRevenue))
		for i := range rawRevenue {
			rawProfit[i] = rawRevenue[i] - cost[i]
		}
	default:
		rawProfit = rawRevenue.Clone()
		for _, col := range numeric {
			if col != revenueCol {
				rawProfit = lookup(col)
				break
			}
		}
	}

	s := &Series{
		RevenueColumn: revenueCol,
		RawRevenue:    rawRevenue,
		RawProfit:     rawProfit,
		RawMargin:     margins(rawRevenue, rawProfit, math.NaN()),
		Revenue:       rawRevenue.FillNaN(0),
	}

	// Cost-derived profit fills each operand before subtracting.
	if mapping.Get(RoleProfit) == "" && mapping.Get(RoleCost) != "" {
		cost := lookup(mapping.Get(RoleCost)).FillNaN(0)
		s.Profit = make(table.Series, len(s.Revenue))
		for i := range s.Revenue {
			s.Profit[i] = s.Revenue[i] - cost[i]
		}
	} else {
		s.Profit = rawProfit.FillNaN(0)
	}
	s.Margin = margins(s.Revenue, s.Profit, 0)

	if col := mapping.Get(RoleChurn); col != "" {
		s.Churn = lookup(col).FillNaN(0)
	}

	switch {
	case mapping.Get(RoleCompany) != "" && t.Has(mapping.Get(RoleCompany)):
		s.CompanyColumn = mapping.Get(RoleCompany)
	case t.Has("Company"):
		s.CompanyColumn = "Company"
	}

	return s, nil
}

// margins divides profit by revenue. Zero revenue and non-finite results
// yield 0; a missing operand yields missing.
func margins(revenue, profit table.Series, missing float64) table.Series {
	out := make(table.Series, len(revenue))
	for i := range revenue {
		r, p := revenue[i], profit[i]
		switch {
		case math.IsNaN(r) || math.IsNaN(p):
			out[i] = missing
		case r == 0:
			out[i] = 0
		default:
			m := p / r
			if math.IsNaN(m) || math.IsInf(m, 0) {
				m = 0
			}
			out[i] = m
		}
	}
	return out
}
