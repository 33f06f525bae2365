package model_test

import (
	"math"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	model "github.com/okian/spendlens/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPurchaseEvent(t *testing.T) {
	convey.Convey("Given a purchase event", t, func() {
		ev := model.PurchaseEvent{
			ID:          "e1",
			SubjectID:   "kid-1",
			Category:    model.CategorySnack,
			ProductName: "chips",
			UnitPrice:   2.5,
			Quantity:    3,
			OccurredAt:  time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		}

		convey.Convey("Then the amount is derived from price and quantity", func() {
			convey.So(ev.Amount(), convey.ShouldEqual, 7.5)
			convey.So(ev.Valid(), convey.ShouldBeTrue)
		})

		convey.Convey("When the price is negative", func() {
			ev.UnitPrice = -1
			convey.So(ev.Valid(), convey.ShouldBeFalse)
		})

		convey.Convey("When the quantity is zero", func() {
			ev.Quantity = 0
			convey.So(ev.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the price or quantity would overflow the amount", func() {
			ev.UnitPrice = 1e308
			ev.Quantity = 2
			convey.So(ev.Valid(), convey.ShouldBeFalse)
			ev.UnitPrice = math.Inf(1)
			ev.Quantity = 1
			convey.So(ev.Valid(), convey.ShouldBeFalse)
			ev.UnitPrice = math.NaN()
			convey.So(ev.Valid(), convey.ShouldBeFalse)
			ev.UnitPrice = 1
			ev.Quantity = 2_000_000
			convey.So(ev.Valid(), convey.ShouldBeFalse)
		})

		convey.Convey("When the timestamp or subject is missing", func() {
			ev.OccurredAt = time.Time{}
			convey.So(ev.Valid(), convey.ShouldBeFalse)
			ev.OccurredAt = time.Now()
			ev.SubjectID = ""
			convey.So(ev.Valid(), convey.ShouldBeFalse)
		})
	})
}

func TestCategory(t *testing.T) {
	convey.Convey("Given category labels", t, func() {
		convey.So(model.ParseCategory("SNACK"), convey.ShouldEqual, model.CategorySnack)
		convey.So(model.ParseCategory(" Education "), convey.ShouldEqual, model.CategoryEducation)
		convey.So(model.ParseCategory("ETC"), convey.ShouldEqual, model.CategoryOther)
		convey.So(model.ParseCategory("sports"), convey.ShouldEqual, model.CategoryOther)
		convey.So(model.CategoryToy.Index(), convey.ShouldEqual, 3)

		convey.Convey("When decoding JSON", func() {
			var ev model.PurchaseEvent
			err := json.Unmarshal([]byte(`{"subject_id":"s","category":"TOY","unit_price":1,"quantity":1}`), &ev)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ev.Category, convey.ShouldEqual, model.CategoryToy)
		})
	})
}

func TestSeverityRank(t *testing.T) {
	convey.Convey("Given severities", t, func() {
		convey.So(model.SeverityAlert.Rank(), convey.ShouldBeGreaterThan, model.SeverityWarning.Rank())
		convey.So(model.SeverityWarning.Rank(), convey.ShouldBeGreaterThan, model.SeverityInfo.Rank())
		convey.So(model.Severity("bogus").Rank(), convey.ShouldEqual, 0)
	})
}
