package alerting_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/spendlens/internal/domain/alerting"
	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/personality"
)

func recentWindow(purchases, spent, previous float64, ratios map[model.Category]float64) features.Windows {
	v := features.Neutral()
	v[features.TotalPurchases] = purchases
	v[features.TotalSpent] = spent
	for c, r := range ratios {
		v[features.RatioKey(c)] = r
	}
	return features.Windows{Recent: v, All: v, RecentCount: int(purchases), PreviousSpent: previous}
}

func titles(alerts []model.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Title
	}
	return out
}

func TestHeadline(t *testing.T) {
	th := alerting.DefaultHeadlineThresholds()

	Convey("Given a week heavy on snacks with no education", t, func() {
		w := recentWindow(35, 200, 100, map[model.Category]float64{model.CategorySnack: 60, model.CategoryFood: 40})
		alerts := alerting.Headline(w, th)

		Convey("Then snack, education, weekly and count checks fire in order", func() {
			So(titles(alerts), ShouldResemble, []string{
				"High snack spending",
				"Education suggestion",
				"Weekly spending up",
				"Many purchases",
			})
			So(alerts[0].Severity, ShouldEqual, model.SeverityWarning)
			So(alerts[0].Message, ShouldContainSubstring, "60%")
			So(alerts[1].Severity, ShouldEqual, model.SeverityInfo)
		})
	})

	Convey("Given a week that spent less than the one before", t, func() {
		w := recentWindow(5, 80, 100, map[model.Category]float64{model.CategoryEducation: 50, model.CategoryFood: 50})
		alerts := alerting.Headline(w, th)

		Convey("Then a savings note is raised", func() {
			So(titles(alerts), ShouldResemble, []string{"Savings success"})
			So(alerts[0].Message, ShouldContainSubstring, "20%")
		})
	})

	Convey("Given no previous spending", t, func() {
		w := recentWindow(5, 80, 0, map[model.Category]float64{model.CategoryEducation: 50})
		_, ok := alerting.WeeklyChange(w)
		So(ok, ShouldBeFalse)
		So(alerting.Headline(w, th), ShouldBeEmpty)
	})

	Convey("Given an empty recent window", t, func() {
		So(alerting.Headline(features.Windows{Recent: features.Neutral()}, th), ShouldBeEmpty)
	})
}

func TestSuggestions(t *testing.T) {
	Convey("Given personality profiles", t, func() {
		v := features.Neutral()
		v[features.SnackRatio] = 70

		Convey("When a fun-seeking subject spends mostly on snacks", func() {
			p := model.PersonalityProfile{Archetype: personality.FunSeeking, Source: model.SourceRules, Confidence: 0.8}
			alerts := alerting.Suggestions(p, v)
			So(titles(alerts), ShouldResemble, []string{"Snack-heavy spending"})
		})

		Convey("When a learning-oriented model profile is uncertain", func() {
			p := model.PersonalityProfile{Archetype: personality.LearningOriented, Source: model.SourceModel, Confidence: 0.2}
			alerts := alerting.Suggestions(p, v)
			So(titles(alerts), ShouldResemble, []string{"Learning interest", "Tentative personality"})
		})

		Convey("When a rule profile has low confidence", func() {
			p := model.PersonalityProfile{Archetype: personality.Balanced, Source: model.SourceRules, Confidence: 0.2}
			So(alerting.Suggestions(p, v), ShouldBeEmpty)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given twelve alerts of mixed severity", t, func() {
		ctx := context.Background()
		e := alerting.NewEngine()

		sev := []model.Severity{
			model.SeverityInfo, model.SeverityWarning, model.SeverityInfo, model.SeverityAlert,
			model.SeverityWarning, model.SeverityInfo, model.SeverityAlert, model.SeverityWarning,
			model.SeverityInfo, model.SeverityWarning, model.SeverityInfo, model.SeverityWarning,
		}
		var first, second []model.Alert
		for i, s := range sev {
			a := model.Alert{Severity: s, Title: fmt.Sprint("t", i), Message: "m"}
			if i < 6 {
				first = append(first, a)
			} else {
				second = append(second, a)
			}
		}

		Convey("When they are merged", func() {
			out := e.Merge(ctx, first, second)

			Convey("Then eight remain, most severe first, in source order on ties", func() {
				So(len(out), ShouldEqual, 8)
				So(titles(out), ShouldResemble, []string{"t3", "t6", "t1", "t4", "t7", "t9", "t11", "t0"})
				for i, a := range out {
					So(a.Priority, ShouldEqual, i+1)
				}
			})
		})

		Convey("When a source repeats an alert", func() {
			dup := model.Alert{Severity: model.SeverityInfo, Title: "t0", Message: "m"}
			out := alerting.NewEngine(alerting.WithMaxAlerts(20)).Merge(ctx, first, []model.Alert{dup})

			Convey("Then it is dropped", func() {
				So(len(out), ShouldEqual, 6)
			})
		})
	})
}

func TestFuse(t *testing.T) {
	Convey("Given a subject with a spending spike", t, func() {
		ctx := context.Background()
		w := recentWindow(4, 35, 10, map[model.Category]float64{model.CategoryEducation: 30, model.CategoryFood: 70})
		report := anomaly.Report{
			Status: anomaly.StatusOK,
			Findings: []model.AnomalyFinding{{
				Type: model.FindingSpendingSpike, Severity: model.SeverityWarning,
				Confidence: 0.83, Message: "Spending rose 250.0% over the previous period.",
			}},
		}
		profile := model.PersonalityProfile{Archetype: personality.Balanced, Source: model.SourceRules, Confidence: 0.75}

		out := alerting.NewEngine().Fuse(ctx, alerting.Input{Windows: w, Profile: profile, Report: report})

		Convey("Then headline and finding alerts are both present", func() {
			So(titles(out), ShouldResemble, []string{"Weekly spending up", "Spending spike"})
			So(out[1].Message, ShouldEqual, "Spending rose 250.0% over the previous period.")
		})
	})
}
