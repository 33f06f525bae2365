package personality

import (
	"fmt"
	"time"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/learn"
)

// Artifact roles.
const (
	RoleScaler   = "personality-scaler"
	RoleReducer  = "personality-reducer"
	RoleClusters = "personality-clusters"
)

// Roles lists every blob a personality model persists.
var Roles = []string{RoleScaler, RoleReducer, RoleClusters}

// Model is the personality half of the population model.
type Model struct {
	learn.Meta
	Scaler   *learn.Scaler
	Reducer  *learn.PCA
	Clusters *learn.KMeans
}

// Params configures Train.
type Params struct {
	Clusters    int
	Components  int
	Seed        int64
	MinSubjects int
	Now         func() time.Time
}

// DefaultParams returns four clusters over three components, seed 42,
// and a minimum of five subjects.
func DefaultParams() Params {
	return Params{Clusters: 4, Components: 3, Seed: 42, MinSubjects: 5, Now: time.Now}
}

// Train fits scaler, reducer and clusters on one vector per subject.
func Train(vectors []features.Vector, p Params) (*Model, error) {
	if p.MinSubjects < 1 {
		p.MinSubjects = 1
	}
	if len(vectors) < p.MinSubjects || len(vectors) < p.Clusters {
		return nil, fmt.Errorf("%w: %d subjects, need %d", ErrInsufficientPopulation, len(vectors), max(p.MinSubjects, p.Clusters))
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
	reducer, err := learn.FitPCA(scaled, p.Components)
	if err != nil {
		return nil, fmt.Errorf("fit reducer: %w", err)
	}
	reduced, err := reducer.TransformAll(scaled)
	if err != nil {
		return nil, err
	}
	clusters, err := learn.FitKMeans(reduced, p.Clusters, p.Seed)
	if err != nil {
		return nil, fmt.Errorf("fit clusters: %w", err)
	}
	return &Model{
		Meta:     learn.NewMeta(features.SchemaVersion, len(vectors), p.Now()),
		Scaler:   scaler,
		Reducer:  reducer,
		Clusters: clusters,
	}, nil
}

// Predict returns the nearest cluster and the distance to every center.
func (m *Model) Predict(v features.Vector) (int, []float64, error) {
	scaled, err := m.Scaler.Transform(v.Slice())
	if err != nil {
		return 0, nil, err
	}
	reduced, err := m.Reducer.Transform(scaled)
	if err != nil {
		return 0, nil, err
	}
	return m.Clusters.Predict(reduced)
}

// Encode returns one blob per role.
func (m *Model) Encode() (map[string][]byte, error) {
	parts := map[string]any{RoleScaler: m.Scaler, RoleReducer: m.Reducer, RoleClusters: m.Clusters}
	out := make(map[string][]byte, len(parts))
	for role, payload := range parts {
		b, err := learn.EncodeBlob(role, m.Meta, payload)
		if err != nil {
			return nil, err
		}
		out[role] = b
	}
	return out, nil
}

// Decode rebuilds a model from its blobs. Blobs from different training
// runs or another feature schema are rejected.
func Decode(blobs map[string][]byte) (*Model, error) {
	m := &Model{Scaler: &learn.Scaler{}, Reducer: &learn.PCA{}, Clusters: &learn.KMeans{}}
	meta, err := learn.DecodeSet(blobs, features.SchemaVersion, map[string]any{
		RoleScaler:   m.Scaler,
		RoleReducer:  m.Reducer,
		RoleClusters: m.Clusters,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleModel, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompatibleModel, err)
	}
	m.Meta = meta
	return m, nil
}

func (m *Model) validate() error {
	if err := m.Scaler.Validate(int(features.NumKeys)); err != nil {
		return err
	}
	if err := m.Reducer.Validate(int(features.NumKeys)); err != nil {
		return err
	}
	return m.Clusters.Validate(len(m.Reducer.Components))
}
