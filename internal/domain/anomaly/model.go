package anomaly

import (
	"fmt"
	"time"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/learn"
)

// Artifact roles.
const (
	RoleScaler = "anomaly-scaler"
	RoleForest = "anomaly-outlier-model"
)

// Roles lists every blob an anomaly model persists.
var Roles = []string{RoleScaler, RoleForest}

// Model is the outlier half of the population model.
type Model struct {
	learn.Meta
	Scaler *learn.Scaler
	Forest *learn.Forest
}

// Params configures Train.
type Params struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
	MinSamples    int
	Now           func() time.Time
}

// DefaultParams returns 100 trees, 256-sample subsets, 10% contamination,
// seed 42 and a minimum of five windows.
func DefaultParams() Params {
	return Params{Trees: 100, SampleSize: 256, Contamination: 0.1, Seed: 42, MinSamples: 5, Now: time.Now}
}

// Train fits the scaler and isolation forest on window vectors drawn from
// the whole population.
func Train(vectors []features.Vector, p Params) (*Model, error) {
	if p.MinSamples < 2 {
		p.MinSamples = 2
	}
	if len(vectors) < p.MinSamples {
		return nil, fmt.Errorf("%w: %d windows, need %d", ErrInsufficientSamples, len(vectors), p.MinSamples)
	}
	if p.Now == nil {
		p.Now = time.Now
	}

	x := make([][]float64, len(vectors))
	for i, v := range vectors {
		x[i] = v.Slice()
	}
	scaler, err := learn.FitScaler(x)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(x)
	if err != nil {
		return nil, err
	}
	forest, err := learn.FitForest(scaled, learn.ForestParams{
		Trees:         p.Trees,
		SampleSize:    p.SampleSize,
		Contamination: p.Contamination,
		Seed:          p.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	return &Model{
		Meta:   learn.NewMeta(features.SchemaVersion, len(vectors), p.Now()),
		Scaler: scaler,
		Forest: forest,
	}, nil
}

// Decision scales v and returns the forest decision; negative is an outlier.
func (m *Model) Decision(v features.Vector) (float64, error) {
	scaled, err := m.Scaler.Transform(v.Slice())
	if err != nil {
		return 0, err
	}
	return m.Forest.Decision(scaled)
}

// Encode returns one blob per role.
func (m *Model) Encode() (map[string][]byte, error) {
	out := make(map[string][]byte, len(Roles))
	for role, payload := range map[string]any{RoleScaler: m.Scaler, RoleForest: m.Forest} {
		b, err := learn.EncodeBlob(role, m.Meta, payload)
		if err != nil {
			return nil, err
		}
		out[role] = b
	}
	return out, nil
}

// Decode rebuilds a model from its blobs and checks its full shape, so a
// decoded model never fails at scoring time.
func Decode(blobs map[string][]byte) (*Model, error) {
	m := &Model{Scaler: &learn.Scaler{}, Forest: &learn.Forest{}}
	meta, err := learn.DecodeSet(blobs, features.SchemaVersion, map[string]any{
		RoleScaler: m.Scaler,
		RoleForest: m.Forest,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleModel, err)
	}
	if err := m.Scaler.Validate(int(features.NumKeys)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompatibleModel, err)
	}
	if err := m.Forest.Validate(int(features.NumKeys)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompatibleModel, err)
	}
	m.Meta = meta
	return m, nil
}
