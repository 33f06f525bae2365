package types_test

import (
	"testing"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/types"
)

func TestScores(t *testing.T) {
	Convey("Given the score helpers", t, func() {
		Convey("Then data quality saturates at twenty events", func() {
			So(types.DataQuality(0), ShouldEqual, 0.0)
			So(types.DataQuality(10), ShouldEqual, 0.5)
			So(types.DataQuality(40), ShouldEqual, 1.0)
		})

		Convey("Then safety follows the risk level", func() {
			So(types.Safety(anomaly.RiskLow), ShouldEqual, 0.9)
			So(types.Safety(anomaly.RiskMedium), ShouldEqual, 0.6)
			So(types.Safety(anomaly.RiskHigh), ShouldEqual, 0.3)
			So(types.Safety("unknown"), ShouldEqual, 0.9)
		})

		Convey("When building scores", func() {
			s := types.NewScores(5, 0.834, anomaly.RiskMedium)

			Convey("Then each is a rounded percentage", func() {
				So(s, ShouldResemble, types.Scores{DataQuality: 25, PersonalityConfidence: 83, Safety: 60})
			})
		})
	})
}

func TestAnalysisJSON(t *testing.T) {
	Convey("Given an analysis", t, func() {
		a := types.Analysis{
			SubjectID: "kid-1",
			Features:  types.Summarize(features.Windows{WindowDays: 7, Recent: features.Neutral(), Historical: features.Neutral()}),
		}

		Convey("When it is encoded", func() {
			b, err := json.Marshal(a)
			So(err, ShouldBeNil)

			var m map[string]any
			So(json.Unmarshal(b, &m), ShouldBeNil)

			Convey("Then vectors are keyed by feature name", func() {
				f := m["features"].(map[string]any)
				recent := f["recent"].(map[string]any)
				So(recent["avg_interval"], ShouldEqual, 24.0)
				So(f["window_days"], ShouldEqual, 7.0)
				_, hasChange := f["change"]
				So(hasChange, ShouldBeFalse)
			})
		})

		Convey("When it carries a change and is decoded back", func() {
			w := features.Windows{WindowDays: 7, Recent: features.Neutral(), Historical: features.Neutral()}
			w.Recent[features.TotalSpent] = 30
			w.Historical[features.TotalSpent] = 10
			w.Change = features.Compare(w.Recent, w.Historical)
			a.Features = types.Summarize(w)

			b, err := json.Marshal(a)
			So(err, ShouldBeNil)

			var back types.Analysis
			err = json.Unmarshal(b, &back)

			Convey("Then the change is restored by feature key", func() {
				So(err, ShouldBeNil)
				So(back.Features.Change, ShouldNotBeNil)
				So(back.Features.Change.Percent[features.TotalSpent], ShouldEqual, 200.0)
				So(back.Features.Recent, ShouldResemble, w.Recent)
			})
		})
	})
}
