package table

import (
	"math"
	"regexp"
	"strconv"
)

// Series is a numeric column. Missing cells are NaN, never zero.
type Series []float64

var (
	parenNegative = regexp.MustCompile(`\(([^)]+)\)`)
	nonNumeric    = regexp.MustCompile(`[^\d.\-]`)
)

// ParseNumber coerces one raw cell. Accounting parentheses mark negatives,
// then every character other than digits, '.' and '-' is stripped. Cells that
// still fail to parse are NaN.
func ParseNumber(raw string) float64 {
	s := parenNegative.ReplaceAllString(raw, "-$1")
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// CoerceNumeric parses every cell of a column. Empty input yields an empty
// series.
func CoerceNumeric(column []string) Series {
	out := make(Series, len(column))
	for i, cell := range column {
		out[i] = ParseNumber(cell)
	}
	return out
}

// Valid counts non-missing values.
func (s Series) Valid() int {
	n := 0
	for _, v := range s {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// FillNaN returns a copy with missing and infinite values replaced by v.
func (s Series) FillNaN(v float64) Series {
	out := make(Series, len(s))
	for i, x := range s {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			out[i] = v
			continue
		}
		out[i] = x
	}
	return out
}

// Clone returns a copy of s.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// NumericThreshold is the minimum number of parsed values a column needs to
// count as numeric: max(3, 20% of rows).
func NumericThreshold(rows int) int {
	return max(3, int(0.2*float64(rows)))
}

// ClassifyNumeric coerces every column and returns, in column order, the
// names of those that meet NumericThreshold, plus the coerced series of every
// column for reuse downstream.
func ClassifyNumeric(t *Table) ([]string, map[string]Series) {
	threshold := NumericThreshold(t.Len())
	var numeric []string
	cache := make(map[string]Series, len(t.Columns))
	for _, col := range t.Columns {
		if _, seen := cache[col]; seen {
			continue
		}
		series := CoerceNumeric(t.Column(col))
		cache[col] = series
		if series.Valid() >= threshold {
			numeric = append(numeric, col)
		}
	}
	return numeric, cache
}
