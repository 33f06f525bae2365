package learn

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	kmeansMaxIterations = 300
	kmeansRestarts      = 10
)

// KMeans is a fitted partition of the reduced feature space.
type KMeans struct {
	Centers [][]float64 `json:"centers"`
	Inertia float64     `json:"inertia"`
}

// FitKMeans clusters x into k groups. Each of the restarts uses k-means++
// seeding drawn from one rand source seeded with seed; the lowest inertia wins.
func FitKMeans(x [][]float64, k int, seed int64) (*KMeans, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k=%d", ErrDimension, k)
	}
	if len(x) < k {
		return nil, fmt.Errorf("%w: %d samples for %d clusters", ErrTooFewSamples, len(x), k)
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible seeding, not security

	var best *KMeans
	for r := 0; r < kmeansRestarts; r++ {
		centers := seedPlusPlus(x, k, rng)
		centers, inertia := lloyd(x, centers)
		if best == nil || inertia < best.Inertia {
			best = &KMeans{Centers: centers, Inertia: inertia}
		}
	}
	return best, nil
}

// seedPlusPlus picks the first center uniformly, then each next one with
// probability proportional to the squared distance to the nearest chosen center.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(x[rng.Intn(len(x))]))
	d2 := make([]float64, len(x))
	for len(centers) < k {
		var total float64
		for i, p := range x {
			_, d := nearest(p, centers)
			d2[i] = d * d
			total += d2[i]
		}
		if total == 0 {
			// All points coincide with a center already.
			centers = append(centers, clone(x[rng.Intn(len(x))]))
			continue
		}
		target := rng.Float64() * total
		idx := len(x) - 1
		for i, w := range d2 {
			target -= w
			if target <= 0 {
				idx = i
				break
			}
		}
		centers = append(centers, clone(x[idx]))
	}
	return centers
}

func lloyd(x [][]float64, centers [][]float64) ([][]float64, float64) {
	k := len(centers)
	dim := len(x[0])
	assign := make([]int, len(x))
	for i := range assign {
		assign[i] = -1
	}
	for it := 0; it < kmeansMaxIterations; it++ {
		changed := false
		for i, p := range x {
			c, _ := nearest(p, centers)
			if assign[i] != c {
				assign[i] = c
				changed = true
			}
		}
		if !changed && it > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range x {
			counts[assign[i]]++
			for j, v := range p {
				sums[assign[i]][j] += v
			}
		}
		for c := range centers {
			if counts[c] == 0 {
				// Empty cluster keeps its center.
				continue
			}
			for j := range sums[c] {
				centers[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	var inertia float64
	for i, p := range x {
		d := euclidean(p, centers[assign[i]])
		inertia += d * d
	}
	return centers, inertia
}

// Predict returns the nearest center and the distance to every center.
func (m *KMeans) Predict(v []float64) (int, []float64, error) {
	if len(m.Centers) == 0 {
		return 0, nil, ErrModelUnavailable
	}
	if len(v) != len(m.Centers[0]) {
		return 0, nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), len(m.Centers[0]))
	}
	dists := make([]float64, len(m.Centers))
	best := 0
	for c, center := range m.Centers {
		dists[c] = euclidean(v, center)
		if dists[c] < dists[best] {
			best = c
		}
	}
	return best, dists, nil
}

func nearest(p []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := euclidean(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

func euclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
