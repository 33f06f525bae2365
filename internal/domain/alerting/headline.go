package alerting

import (
	"fmt"

	"github.com/okian/spendlens/internal/domain/features"
	"github.com/okian/spendlens/internal/domain/model"
)

// HeadlineThresholds configures the weekly metric checks. Shares and
// changes are in percent.
type HeadlineThresholds struct {
	SnackShare     float64
	EducationShare float64
	WeeklyIncrease float64
	WeeklyDecrease float64
	Purchases      float64
}

// DefaultHeadlineThresholds returns the stock checks.
func DefaultHeadlineThresholds() HeadlineThresholds {
	return HeadlineThresholds{
		SnackShare:     40,
		EducationShare: 15,
		WeeklyIncrease: 50,
		WeeklyDecrease: -10,
		Purchases:      30,
	}
}

// WeeklyChange is the percent change of recent spend over the window
// before it. ok is false when the previous window spent nothing.
func WeeklyChange(w features.Windows) (change float64, ok bool) {
	if w.PreviousSpent <= 0 {
		return 0, false
	}
	return features.PercentChange(w.Recent.Get(features.TotalSpent), w.PreviousSpent), true
}

// Headline checks the recent window against fixed thresholds. It returns
// nothing when the recent window is empty.
func Headline(w features.Windows, th HeadlineThresholds) []model.Alert {
	if w.RecentCount == 0 {
		return nil
	}
	var out []model.Alert
	v := w.Recent

	if snack := v.Ratio(model.CategorySnack); snack > th.SnackShare {
		out = append(out, model.Alert{
			Severity: model.SeverityWarning,
			Title:    "High snack spending",
			Message:  fmt.Sprintf("Snacks made up %.0f%% of spending this week. A more balanced mix is recommended.", snack),
		})
	}
	if v.Get(features.TotalPurchases) >= 1 && v.Ratio(model.CategoryEducation) < th.EducationShare {
		out = append(out, model.Alert{
			Severity: model.SeverityInfo,
			Title:    "Education suggestion",
			Message:  "Few education purchases. Consider books or learning tools.",
		})
	}
	if change, ok := WeeklyChange(w); ok {
		switch {
		case change > th.WeeklyIncrease:
			out = append(out, model.Alert{
				Severity: model.SeverityWarning,
				Title:    "Weekly spending up",
				Message:  fmt.Sprintf("Spending is up %.0f%% on last week.", change),
			})
		case change < th.WeeklyDecrease:
			out = append(out, model.Alert{
				Severity: model.SeverityInfo,
				Title:    "Savings success",
				Message:  fmt.Sprintf("Spending is down %.0f%% on last week. Great saving habit!", -change),
			})
		}
	}
	if n := v.Get(features.TotalPurchases); n > th.Purchases {
		out = append(out, model.Alert{
			Severity: model.SeverityWarning,
			Title:    "Many purchases",
			Message:  fmt.Sprintf("%.0f purchases this week.", n),
		})
	}
	return out
}
