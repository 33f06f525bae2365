package learn

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const eulerGamma = 0.5772156649

// Node is one isolation tree node. Leaves have Left == -1.
type Node struct {
	Feature int     `json:"f"`
	Split   float64 `json:"s"`
	Left    int     `json:"l"`
	Right   int     `json:"r"`
	Size    int     `json:"n"`
}

// Forest is a fitted isolation forest with its decision threshold.
type Forest struct {
	Trees      [][]Node `json:"trees"`
	SampleSize int      `json:"sample_size"`
	Dim        int      `json:"dim"`
	// Threshold is the training score at the 1-contamination quantile.
	Threshold float64 `json:"threshold"`
}

// ForestParams configures FitForest.
type ForestParams struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

// FitForest grows Trees isolation trees on random subsamples of x.
func FitForest(x [][]float64, p ForestParams) (*Forest, error) {
	if len(x) < 2 {
		return nil, ErrTooFewSamples
	}
	if p.Trees < 1 {
		return nil, fmt.Errorf("%w: %d trees", ErrDimension, p.Trees)
	}
	if p.Contamination <= 0 || p.Contamination >= 0.5 {
		return nil, fmt.Errorf("contamination %v out of (0, 0.5)", p.Contamination)
	}
	psi := p.SampleSize
	if psi <= 0 || psi > len(x) {
		psi = len(x)
	}
	dim := len(x[0])
	for _, row := range x {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row has %d columns, want %d", ErrDimension, len(row), dim)
		}
	}
	maxDepth := int(math.Ceil(math.Log2(float64(psi))))
	rng := rand.New(rand.NewSource(p.Seed)) //nolint:gosec // reproducible seeding, not security

	f := &Forest{SampleSize: psi, Dim: dim, Trees: make([][]Node, p.Trees)}
	for t := range f.Trees {
		idx := rng.Perm(len(x))[:psi]
		sample := make([][]float64, psi)
		for i, j := range idx {
			sample[i] = x[j]
		}
		var nodes []Node
		grow(&nodes, sample, 0, maxDepth, dim, rng)
		f.Trees[t] = nodes
	}

	scores := make([]float64, len(x))
	for i, row := range x {
		scores[i] = f.score(row)
	}
	sort.Float64s(scores)
	f.Threshold = quantile(scores, 1-p.Contamination)
	return f, nil
}

// grow appends the subtree for data and returns its root index.
func grow(nodes *[]Node, data [][]float64, depth, maxDepth, dim int, rng *rand.Rand) int {
	at := len(*nodes)
	*nodes = append(*nodes, Node{Left: -1, Right: -1, Size: len(data)})
	if len(data) <= 1 || depth >= maxDepth {
		return at
	}

	// Only split on features that vary in this partition.
	var candidates []int
	for j := 0; j < dim; j++ {
		lo, hi := bounds(data, j)
		if hi > lo {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return at
	}
	feature := candidates[rng.Intn(len(candidates))]
	lo, hi := bounds(data, feature)
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	l := grow(nodes, left, depth+1, maxDepth, dim, rng)
	r := grow(nodes, right, depth+1, maxDepth, dim, rng)
	(*nodes)[at].Feature = feature
	(*nodes)[at].Split = split
	(*nodes)[at].Left = l
	(*nodes)[at].Right = r
	return at
}

func bounds(data [][]float64, j int) (float64, float64) {
	lo, hi := data[0][j], data[0][j]
	for _, row := range data[1:] {
		lo = math.Min(lo, row[j])
		hi = math.Max(hi, row[j])
	}
	return lo, hi
}

// avgPathLength is c(n), the mean path length of an unsuccessful BST search.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

func pathLength(tree []Node, v []float64) float64 {
	i, depth := 0, 0
	for tree[i].Left >= 0 {
		if v[tree[i].Feature] < tree[i].Split {
			i = tree[i].Left
		} else {
			i = tree[i].Right
		}
		depth++
	}
	return float64(depth) + avgPathLength(tree[i].Size)
}

func (f *Forest) score(v []float64) float64 {
	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, v)
	}
	mean := total / float64(len(f.Trees))
	c := avgPathLength(f.SampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}

// Score returns the anomaly score in (0,1]; higher is more isolated.
func (f *Forest) Score(v []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, ErrModelUnavailable
	}
	if len(v) != f.Dim {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), f.Dim)
	}
	return f.score(v), nil
}

// Decision is Threshold - Score; negative values are outliers.
func (f *Forest) Decision(v []float64) (float64, error) {
	s, err := f.Score(v)
	if err != nil {
		return 0, err
	}
	return f.Threshold - s, nil
}

// quantile interpolates linearly on sorted xs.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return xs[lo]
	}
	return xs[lo] + (pos-float64(lo))*(xs[hi]-xs[lo])
}
