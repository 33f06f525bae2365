package learn

import (
	"fmt"
	"math"
)

const (
	powerIterations = 1000
	powerTolerance  = 1e-12
)

// PCA projects centered rows onto the leading eigenvectors of their
// covariance matrix.
type PCA struct {
	Mean       []float64   `json:"mean"`
	Components [][]float64 `json:"components"`
	Variance   []float64   `json:"explained_variance"`
}

// FitPCA finds up to k principal components with power iteration and
// deflation. Component signs are fixed so the largest loading is positive,
// which keeps repeated fits identical.
func FitPCA(x [][]float64, k int) (*PCA, error) {
	n := len(x)
	if n < 2 {
		return nil, ErrTooFewSamples
	}
	d := len(x[0])
	if k > d {
		k = d
	}
	if k > n {
		k = n
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: %d components", ErrDimension, k)
	}

	mean := make([]float64, d)
	for _, row := range x {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row has %d columns, want %d", ErrDimension, len(row), d)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	cov := make([][]float64, d)
	for i := range cov {
		cov[i] = make([]float64, d)
	}
	for _, row := range x {
		for i := 0; i < d; i++ {
			di := row[i] - mean[i]
			if di == 0 {
				continue
			}
			for j := i; j < d; j++ {
				cov[i][j] += di * (row[j] - mean[j])
			}
		}
	}
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			cov[i][j] /= float64(n - 1)
			cov[j][i] = cov[i][j]
		}
	}

	p := &PCA{Mean: mean}
	for c := 0; c < k; c++ {
		vec, val := powerIteration(cov)
		p.Components = append(p.Components, vec)
		p.Variance = append(p.Variance, val)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				cov[i][j] -= val * vec[i] * vec[j]
			}
		}
	}
	return p, nil
}

func powerIteration(m [][]float64) ([]float64, float64) {
	d := len(m)
	v := make([]float64, d)
	for i := range v {
		v[i] = 1 + float64(i)/float64(d)
	}
	normalize(v)

	next := make([]float64, d)
	var val float64
	for it := 0; it < powerIterations; it++ {
		for i := 0; i < d; i++ {
			var s float64
			for j := 0; j < d; j++ {
				s += m[i][j] * v[j]
			}
			next[i] = s
		}
		norm := normalize(next)
		if norm < powerTolerance {
			// Remaining variance is zero; any unit vector will do.
			val = 0
			break
		}
		var delta float64
		for i := range v {
			delta += math.Abs(next[i] - v[i])
		}
		copy(v, next)
		val = norm
		if delta < powerTolerance {
			break
		}
	}

	// Largest loading positive.
	maxIdx := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[maxIdx]) {
			maxIdx = i
		}
	}
	if v[maxIdx] < 0 {
		for i := range v {
			v[i] = -v[i]
		}
	}
	return v, val
}

func normalize(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	norm := math.Sqrt(s)
	if norm == 0 {
		return 0
	}
	for i := range v {
		v[i] /= norm
	}
	return norm
}

// Transform projects v onto the components.
func (p *PCA) Transform(v []float64) ([]float64, error) {
	if len(v) != len(p.Mean) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), len(p.Mean))
	}
	out := make([]float64, len(p.Components))
	for c, comp := range p.Components {
		var s float64
		for j, x := range v {
			s += (x - p.Mean[j]) * comp[j]
		}
		out[c] = s
	}
	return out, nil
}

// TransformAll projects every row.
func (p *PCA) TransformAll(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		r, err := p.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
