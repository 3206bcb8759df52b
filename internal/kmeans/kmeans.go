// Package kmeans provides the numeric primitives behind record segmentation:
// per-feature min-max scaling and seeded Lloyd k-means with k-means++
// initialisation and best-of-N restarts.
package kmeans

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// Options configures a clustering run.
type Options struct {
	K        int
	Restarts int     // default 10
	MaxIter  int     // default 300
	Tol      float64 // centroid shift tolerance, default 1e-4
	Seed     uint64
}

// DefaultOptions returns the reproducible configuration used for record
// segmentation.
func DefaultOptions(k int) Options {
	return Options{K: k, Restarts: 10, MaxIter: 300, Tol: 1e-4, Seed: 42}
}

// Result holds the best run across restarts.
type Result struct {
	Labels    []int
	Centroids [][]float64
	Inertia   float64
}

// MinMaxScale scales every column of points into [0,1] independently. A
// constant column scales to 0.
func MinMaxScale(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	dims := len(points[0])
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo[d], hi[d] = math.Inf(1), math.Inf(-1)
	}
	for _, p := range points {
		for d, v := range p {
			lo[d] = math.Min(lo[d], v)
			hi[d] = math.Max(hi[d], v)
		}
	}

	out := make([][]float64, len(points))
	for i, p := range points {
		row := make([]float64, dims)
		for d, v := range p {
			if span := hi[d] - lo[d]; span > 0 {
				row[d] = (v - lo[d]) / span
			}
		}
		out[i] = row
	}
	return out
}

// Fit clusters points and returns the lowest-inertia run. The same points
// and options always produce the same labels.
func Fit(points [][]float64, opts Options) (*Result, error) {
	if opts.K <= 0 {
		return nil, eris.Errorf("kmeans: k must be positive (got %d)", opts.K)
	}
	if len(points) < opts.K {
		return nil, eris.Errorf("kmeans: %d points cannot form %d clusters", len(points), opts.K)
	}
	if opts.Restarts <= 0 {
		opts.Restarts = 10
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = 300
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-4
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var best *Result
	for run := 0; run < opts.Restarts; run++ {
		res := lloyd(points, seedCentroids(points, opts.K, rng), opts)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

// seedCentroids picks k initial centroids with k-means++ weighting.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			dist[i] = nearest(p, centroids).dist
			total += dist[i]
		}

		next := rng.IntN(len(points))
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, clone(points[next]))
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, opts Options) *Result {
	labels := make([]int, len(points))
	dims := len(points[0])

	for iter := 0; iter < opts.MaxIter; iter++ {
		for i, p := range points {
			labels[i] = nearest(p, centroids).index
		}

		sums := make([][]float64, opts.K)
		counts := make([]int, opts.K)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for d, v := range p {
				sums[c][d] += v
			}
		}

		var shift float64
		for c := range centroids {
			// An empty cluster keeps its previous centroid.
			if counts[c] == 0 {
				continue
			}
			for d := range sums[c] {
				v := sums[c][d] / float64(counts[c])
				shift += (v - centroids[c][d]) * (v - centroids[c][d])
				centroids[c][d] = v
			}
		}
		if shift <= opts.Tol*opts.Tol {
			break
		}
	}

	var inertia float64
	for i, p := range points {
		n := nearest(p, centroids)
		labels[i] = n.index
		inertia += n.dist
	}
	return &Result{Labels: labels, Centroids: centroids, Inertia: inertia}
}

type match struct {
	index int
	dist  float64
}

// nearest returns the closest centroid by squared Euclidean distance. Ties go
// to the lowest index.
func nearest(p []float64, centroids [][]float64) match {
	best := match{index: 0, dist: math.Inf(1)}
	for c, centroid := range centroids {
		var d float64
		for i, v := range p {
			diff := v - centroid[i]
			d += diff * diff
		}
		if d < best.dist {
			best = match{index: c, dist: d}
		}
	}
	return best
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
