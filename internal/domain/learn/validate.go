package learn

import (
	"fmt"
	"math"
)

// Validate checks a decoded scaler against the expected input width.
func (s *Scaler) Validate(dim int) error {
	if len(s.Mean) != dim || len(s.Scale) != dim {
		return fmt.Errorf("%w: scaler has %d/%d columns, want %d", ErrDimension, len(s.Mean), len(s.Scale), dim)
	}
	for j := range s.Mean {
		if !finite(s.Mean[j]) || !finite(s.Scale[j]) || s.Scale[j] <= 0 {
			return fmt.Errorf("%w: scaler column %d", ErrCorruptModel, j)
		}
	}
	return nil
}

// Validate checks a decoded reducer: dim inputs, at least one component,
// every component dim wide.
func (p *PCA) Validate(dim int) error {
	if len(p.Mean) != dim {
		return fmt.Errorf("%w: reducer mean has %d columns, want %d", ErrDimension, len(p.Mean), dim)
	}
	if len(p.Components) == 0 {
		return fmt.Errorf("%w: reducer has no components", ErrCorruptModel)
	}
	for c, comp := range p.Components {
		if len(comp) != dim {
			return fmt.Errorf("%w: component %d has %d columns, want %d", ErrDimension, c, len(comp), dim)
		}
		if !allFinite(comp) {
			return fmt.Errorf("%w: component %d", ErrCorruptModel, c)
		}
	}
	if !allFinite(p.Mean) {
		return fmt.Errorf("%w: reducer mean", ErrCorruptModel)
	}
	return nil
}

// Validate checks that there is at least one center and every center is
// dim wide.
func (m *KMeans) Validate(dim int) error {
	if len(m.Centers) == 0 {
		return fmt.Errorf("%w: no centers", ErrCorruptModel)
	}
	for c, center := range m.Centers {
		if len(center) != dim {
			return fmt.Errorf("%w: center %d has %d columns, want %d", ErrDimension, c, len(center), dim)
		}
		if !allFinite(center) {
			return fmt.Errorf("%w: center %d", ErrCorruptModel, c)
		}
	}
	return nil
}

// Validate checks the forest width and every tree's structure. Trees are
// stored in preorder, so children must sit after their parent; this also
// rules out cycles.
func (f *Forest) Validate(dim int) error {
	if f.Dim != dim {
		return fmt.Errorf("%w: forest has %d columns, want %d", ErrDimension, f.Dim, dim)
	}
	if len(f.Trees) == 0 || f.SampleSize < 0 || !finite(f.Threshold) {
		return fmt.Errorf("%w: forest header", ErrCorruptModel)
	}
	for t, tree := range f.Trees {
		if len(tree) == 0 {
			return fmt.Errorf("%w: tree %d is empty", ErrCorruptModel, t)
		}
		for i, n := range tree {
			if err := n.validate(i, len(tree), dim); err != nil {
				return fmt.Errorf("%w: tree %d node %d: %v", ErrCorruptModel, t, i, err)
			}
		}
	}
	return nil
}

func (n Node) validate(at, size, dim int) error {
	if n.Size < 0 {
		return fmt.Errorf("negative size %d", n.Size)
	}
	if n.Left == -1 && n.Right == -1 {
		return nil
	}
	if n.Left <= at || n.Left >= size || n.Right <= at || n.Right >= size {
		return fmt.Errorf("children %d/%d out of range", n.Left, n.Right)
	}
	if n.Feature < 0 || n.Feature >= dim {
		return fmt.Errorf("feature %d out of range", n.Feature)
	}
	if !finite(n.Split) {
		return fmt.Errorf("split %v", n.Split)
	}
	return nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if !finite(x) {
			return false
		}
	}
	return true
}
