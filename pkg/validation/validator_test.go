package validation

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type sample struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"unit_price" validate:"gte=0"`
	Level string  `koanf:"log_level" validate:"oneof=debug info"`
}

func TestStruct(t *testing.T) {
	Convey("Given a struct with validation tags", t, func() {
		Convey("When every rule holds", func() {
			So(Struct(sample{Name: "x", Price: 1, Level: "info"}), ShouldBeNil)
		})

		Convey("When several rules fail", func() {
			err := Struct(sample{Price: -1, Level: "loud"})

			Convey("Then each field is reported by its tag name", func() {
				var verr *Error
				So(errors.As(err, &verr), ShouldBeTrue)
				So(len(verr.Fields), ShouldEqual, 3)
				So(verr.Fields[0].Field, ShouldEqual, "name")
				So(verr.Fields[1].Field, ShouldEqual, "unit_price")
				So(verr.Fields[2].Field, ShouldEqual, "log_level")
				So(err.Error(), ShouldContainSubstring, "unit_price failed gte=0")
			})
		})
	})
}
