package personality_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/learn"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/personality"
)

func vec(purchases float64, ratios map[model.Category]float64) features.Vector {
	v := features.Neutral()
	v[features.TotalPurchases] = purchases
	v[features.TotalSpent] = purchases * 10
	v[features.AvgAmount] = 10
	for c, r := range ratios {
		v[features.RatioKey(c)] = r
	}
	return v
}

func windows(v features.Vector) features.Windows {
	return features.Windows{Recent: v, All: v, RecentCount: int(v.Get(features.TotalPurchases))}
}

func population() []features.Vector {
	groups := []map[model.Category]float64{
		{model.CategoryEducation: 70, model.CategoryFood: 30},
		{model.CategorySnack: 70, model.CategoryFood: 30},
		{model.CategoryToy: 60, model.CategoryEntertainment: 40},
		{model.CategoryFood: 80, model.CategoryOther: 20},
	}
	var out []features.Vector
	for g, ratios := range groups {
		for i := 0; i < 5; i++ {
			jittered := map[model.Category]float64{}
			for c, r := range ratios {
				jittered[c] = r + float64(i)*0.7 - float64(g)*0.1
			}
			out = append(out, vec(float64(10+i+g*3), jittered))
		}
	}
	return out
}

func fixedNow() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

func TestFallbackRules(t *testing.T) {
	Convey("Given a classifier without a model", t, func() {
		ctx := context.Background()
		c := personality.NewClassifier(nil)

		Convey("When the education share is 45%", func() {
			p := c.Classify(ctx, windows(vec(20, map[model.Category]float64{
				model.CategoryEducation: 45, model.CategoryFood: 55,
			})))

			Convey("Then the subject is learning-oriented with high confidence", func() {
				So(p.Archetype, ShouldEqual, personality.LearningOriented)
				So(p.Confidence, ShouldBeGreaterThan, 0.8)
				So(p.Confidence, ShouldAlmostEqual, 0.9, 1e-9)
				So(p.Source, ShouldEqual, model.SourceRules)
				So(p.ClusterID, ShouldEqual, -1)
				So(p.Color, ShouldEqual, "#4F46E5")
			})
		})

		Convey("When the snack share is 55%", func() {
			p := c.Classify(ctx, windows(vec(20, map[model.Category]float64{model.CategorySnack: 55})))
			So(p.Archetype, ShouldEqual, personality.FunSeeking)
			So(p.Confidence, ShouldAlmostEqual, 0.8, 1e-9)
		})

		Convey("When education and toy rules both match", func() {
			p := c.Classify(ctx, windows(vec(20, map[model.Category]float64{
				model.CategoryEducation: 41, model.CategoryToy: 59,
			})))

			Convey("Then the earlier rule wins", func() {
				So(p.Archetype, ShouldEqual, personality.LearningOriented)
				So(p.Confidence, ShouldAlmostEqual, 0.82, 1e-9)
			})
		})

		Convey("When entertainment is 30%", func() {
			p := c.Classify(ctx, windows(vec(20, map[model.Category]float64{model.CategoryEntertainment: 30})))
			So(p.Archetype, ShouldEqual, personality.CreativeExplorer)
			So(p.Confidence, ShouldAlmostEqual, 0.75, 1e-9)
		})

		Convey("When there are only three purchases", func() {
			p := c.Classify(ctx, windows(vec(3, map[model.Category]float64{model.CategoryFood: 100})))

			Convey("Then the subject is cautious and told to keep exploring", func() {
				So(p.Archetype, ShouldEqual, personality.Cautious)
				So(p.Confidence, ShouldEqual, 0.7)
				So(len(p.Recommendations), ShouldEqual, 3)
				So(p.Recommendations[2], ShouldContainSubstring, "Keep adding purchases")
			})
		})

		Convey("When nothing stands out", func() {
			p := c.Classify(ctx, windows(vec(20, map[model.Category]float64{model.CategoryFood: 100})))
			So(p.Archetype, ShouldEqual, personality.Balanced)
			So(p.Confidence, ShouldEqual, 0.75)
		})

		Convey("When the input is empty", func() {
			p := c.Classify(ctx, features.Windows{InsufficientData: true})

			Convey("Then an insufficient-data profile is returned", func() {
				So(p.InsufficientData, ShouldBeTrue)
				So(p.Archetype, ShouldEqual, personality.InsufficientData)
				So(p.Confidence, ShouldEqual, 0.0)
				So(p.Source, ShouldEqual, model.SourceNone)
			})
		})
	})
}

func TestTrain(t *testing.T) {
	Convey("Given a training population", t, func() {
		params := personality.DefaultParams()
		params.Now = fixedNow

		Convey("When training twice with the same seed", func() {
			a, err := personality.Train(population(), params)
			So(err, ShouldBeNil)
			b, err := personality.Train(population(), params)
			So(err, ShouldBeNil)

			Convey("Then the fitted parameters are identical", func() {
				So(b.Clusters.Centers, ShouldResemble, a.Clusters.Centers)
				So(b.Reducer.Components, ShouldResemble, a.Reducer.Components)
				So(a.SchemaVersion, ShouldEqual, features.SchemaVersion)
				So(a.Samples, ShouldEqual, 20)
				So(a.Version, ShouldNotEqual, b.Version)
			})
		})

		Convey("When fewer than five subjects are given", func() {
			_, err := personality.Train(population()[:4], params)
			So(errors.Is(err, personality.ErrInsufficientPopulation), ShouldBeTrue)
		})
	})
}

func TestClassifierWithModel(t *testing.T) {
	Convey("Given a trained model in a slot", t, func() {
		ctx := context.Background()
		params := personality.DefaultParams()
		params.Now = fixedNow
		m, err := personality.Train(population(), params)
		So(err, ShouldBeNil)

		slot := learn.NewSlot[personality.Model](personality.RoleClusters, nil, 0)
		slot.Swap(m)
		c := personality.NewClassifier(slot)

		Convey("When classifying a member of the population", func() {
			w := windows(population()[0])
			p := c.Classify(ctx, w)

			Convey("Then the model path is used and the result is repeatable", func() {
				So(p.Source, ShouldEqual, model.SourceModel)
				So(p.ClusterID, ShouldBeBetweenOrEqual, 0, 3)
				So(p.Confidence, ShouldBeBetweenOrEqual, 0.0, 1.0)
				So(c.Classify(ctx, w), ShouldResemble, p)
			})
		})

		Convey("When the cluster table is shorter than the cluster count", func() {
			short := personality.NewClassifier(slot, personality.WithClusterArchetypes([]string{"unknown"}))
			p := short.Classify(ctx, windows(population()[0]))
			So(p.Archetype, ShouldEqual, personality.Balanced)
		})

		Convey("When the model is encoded and decoded", func() {
			blobs, err := m.Encode()
			So(err, ShouldBeNil)
			So(len(blobs), ShouldEqual, 3)

			back, err := personality.Decode(blobs)
			So(err, ShouldBeNil)
			c1, _, _ := m.Predict(population()[7])
			c2, _, _ := back.Predict(population()[7])
			So(c2, ShouldEqual, c1)
			So(back.Version, ShouldEqual, m.Version)

			Convey("And blobs from another run are rejected", func() {
				other, err := personality.Train(population(), params)
				So(err, ShouldBeNil)
				otherBlobs, _ := other.Encode()
				blobs[personality.RoleScaler] = otherBlobs[personality.RoleScaler]
				_, err = personality.Decode(blobs)
				So(errors.Is(err, personality.ErrIncompatibleModel), ShouldBeTrue)
			})
		})
	})

	Convey("Given a stored model that is internally inconsistent", t, func() {
		params := personality.DefaultParams()
		params.Now = fixedNow
		corruptions := map[string]func(m *personality.Model){
			"ragged center":    func(m *personality.Model) { m.Clusters.Centers[1] = []float64{0} },
			"no centers":       func(m *personality.Model) { m.Clusters.Centers = nil },
			"narrow component": func(m *personality.Model) { m.Reducer.Components[0] = m.Reducer.Components[0][:2] },
			"short reducer":    func(m *personality.Model) { m.Reducer.Mean = m.Reducer.Mean[:2] },
			"short scale":      func(m *personality.Model) { m.Scaler.Scale = m.Scaler.Scale[:1] },
			"no components":    func(m *personality.Model) { m.Reducer.Components = nil },
		}
		for _, corrupt := range corruptions {
			m, err := personality.Train(population(), params)
			So(err, ShouldBeNil)
			corrupt(m)
			blobs, err := m.Encode()
			So(err, ShouldBeNil)

			_, err = personality.Decode(blobs)
			So(errors.Is(err, personality.ErrIncompatibleModel), ShouldBeTrue)

			slot := learn.NewSlot("personality", func(context.Context) (*personality.Model, error) {
				return personality.Decode(blobs)
			}, time.Minute)
			c := personality.NewClassifier(slot)
			var p model.PersonalityProfile
			So(func() { p = c.Classify(context.Background(), windows(population()[0])) }, ShouldNotPanic)
			So(p.Source, ShouldEqual, model.SourceRules)
		}
	})

	Convey("Given a slot whose loader fails", t, func() {
		slot := learn.NewSlot("personality", func(context.Context) (*personality.Model, error) {
			return nil, errors.New("no such file")
		}, time.Minute)
		c := personality.NewClassifier(slot)

		p := c.Classify(context.Background(), windows(vec(20, map[model.Category]float64{model.CategoryEducation: 45})))

		Convey("Then the rules are used without an error", func() {
			So(p.Source, ShouldEqual, model.SourceRules)
			So(p.Archetype, ShouldEqual, personality.LearningOriented)
		})
	})
}

func TestConfidence(t *testing.T) {
	Convey("Given distances to cluster centers", t, func() {
		So(personality.Confidence(0, []float64{0, 2, 4}), ShouldEqual, 1.0)
		So(personality.Confidence(1, []float64{3, 3, 3}), ShouldEqual, 0.0)
		So(personality.Confidence(0, []float64{1, 4}), ShouldEqual, 0.75)
		So(personality.Confidence(0, []float64{0, 0}), ShouldEqual, 0.0)
		So(personality.Confidence(5, []float64{1}), ShouldEqual, 0.0)
	})
}
