package personality

import (
	"context"
	"errors"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/learn"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/pkg/logger"
)

const (
	keepExploringBelow = 10
	maxRecommendations = 3
	keepExploring      = "Keep adding purchases to discover preferences."
)

// Classifier produces personality profiles.
type Classifier struct {
	models     *learn.Slot[Model]
	rules      []Rule
	clusterMap []string
	log        logger.Logger
}

// NewClassifier creates a classifier reading models from slot. A nil slot
// means rules only.
func NewClassifier(slot *learn.Slot[Model], opts ...Option) *Classifier {
	c := &Classifier{
		models:     slot,
		rules:      DefaultRules(),
		clusterMap: DefaultClusterArchetypes,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify types the subject from its windows. It never fails: without a
// usable model it applies the fallback rules, and without data it returns
// an insufficient-data profile.
func (c *Classifier) Classify(ctx context.Context, w features.Windows) model.PersonalityProfile {
	if w.InsufficientData {
		p := profile(Lookup(InsufficientData), 0, -1, model.SourceNone)
		p.InsufficientData = true
		return p
	}
	v := w.Profile()

	if c.models != nil {
		m, err := c.models.Get(ctx)
		if err == nil {
			cluster, dists, perr := m.Predict(v)
			if perr == nil {
				a := Lookup(c.archetypeFor(cluster))
				p := profile(a, Confidence(cluster, dists), cluster, model.SourceModel)
				p.Recommendations = recommendations(a, v)
				return p
			}
			err = perr
		}
		if errors.Is(err, learn.ErrModelUnavailable) {
			c.log.Debug(ctx, "personality model unavailable, using rules", logger.Error(err))
		} else {
			c.log.Warn(ctx, "personality model failed, using rules", logger.Error(err))
		}
	}

	id, conf := evaluate(c.rules, v)
	a := Lookup(id)
	p := profile(a, conf, -1, model.SourceRules)
	p.Recommendations = recommendations(a, v)
	return p
}

func (c *Classifier) archetypeFor(cluster int) string {
	if cluster >= 0 && cluster < len(c.clusterMap) && Known(c.clusterMap[cluster]) {
		return c.clusterMap[cluster]
	}
	return Balanced
}

// Confidence is 1 - d_nearest/d_max clipped to [0,1]: close to 1 when the
// vector sits on one center and 0 when every center is equally far.
func Confidence(cluster int, dists []float64) float64 {
	if cluster < 0 || cluster >= len(dists) {
		return 0
	}
	var dmax float64
	for _, d := range dists {
		if d > dmax {
			dmax = d
		}
	}
	if dmax == 0 {
		return 0
	}
	return clip01(1 - dists[cluster]/dmax)
}

func profile(a Archetype, conf float64, cluster int, src model.ProfileSource) model.PersonalityProfile {
	chars := make([]string, len(a.Characteristics))
	copy(chars, a.Characteristics)
	recs := make([]string, len(a.Recommendations))
	copy(recs, a.Recommendations)
	return model.PersonalityProfile{
		Archetype:       a.ID,
		Name:            a.Name,
		Description:     a.Description,
		Characteristics: chars,
		Color:           a.Color,
		Confidence:      conf,
		ClusterID:       cluster,
		Source:          src,
		Recommendations: recs,
	}
}

func recommendations(a Archetype, v features.Vector) []string {
	limit := maxRecommendations
	explore := v.Get(features.TotalPurchases) < keepExploringBelow
	if explore {
		limit--
	}
	out := make([]string, 0, maxRecommendations)
	for _, r := range a.Recommendations {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	if explore {
		out = append(out, keepExploring)
	}
	return out
}
