// Package stats holds the small numeric helpers shared by the scoring and
// insights pipelines.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// exactExp is small enough that NewFromFloatWithExponent keeps every binary
// digit of a float64.
const exactExp = -1074

// Round rounds v to the given number of decimal places, half to even, on the
// exact binary value of v: Round(0.125, 2) is 0.12 and Round(2.675, 2) is
// 2.67 because 2.675 is stored just below the tie. NaN and infinities round
// to 0 so payloads stay JSON-encodable.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloatWithExponent(v, exactExp).RoundBank(places).InexactFloat64()
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Sum adds every finite value.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		if Finite(v) {
			total += v
		}
	}
	return total
}

// Mean returns the mean of the finite values, or NaN when there are none.
func Mean(values []float64) float64 {
	var total float64
	n := 0
	for _, v := range values {
		if Finite(v) {
			total += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return total / float64(n)
}

// Median returns the median of the finite values, or NaN when there are none.
func Median(values []float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if Finite(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)
	mid := len(clean) / 2
	if len(clean)%2 == 1 {
		return clean[mid]
	}
	return (clean[mid-1] + clean[mid]) / 2
}

// MinMax returns the smallest and largest finite values. ok is false when
// values holds no finite entry.
func MinMax(values []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !Finite(v) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// Scale min-max scales values into [0,1]. A constant column scales to 0,
// matching the behaviour of a zero-range MinMaxScaler.
func Scale(values []float64) []float64 {
	out := make([]float64, len(values))
	lo, hi, ok := MinMax(values)
	if !ok {
		return out
	}
	span := hi - lo
	for i, v := range values {
		if span == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v - lo) / span
	}
	return out
}
