package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { _ = Sync() }()

		Convey("Then Get and Named return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(), ShouldBeNil)
		SetOutput(&buf)
		defer SetOutput(nil)
		ctx := context.Background()

		Convey("When logging at info level", func() {
			Named("worker").Info(ctx, "processed", String("subject", "s1"), Int("count", 3),
				Bool("ok", true), Duration("took", 2*time.Second), Error(errors.New("boom")))

			Convey("Then the fields are rendered", func() {
				s := buf.String()
				So(s, ShouldContainSubstring, "processed")
				So(s, ShouldContainSubstring, "worker.subject=s1")
				So(s, ShouldContainSubstring, "worker.took=2s")
				So(s, ShouldContainSubstring, "boom")
			})
		})

		Convey("When debug is logged below the threshold", func() {
			Get().Debug(ctx, "hidden")
			So(buf.String(), ShouldNotContainSubstring, "hidden")
		})

		Convey("When switching to JSON", func() {
			So(SetFormat("json"), ShouldBeNil)
			defer func() { _ = SetFormat("text") }()
			Get().Warn(ctx, "careful", Float64("ratio", 0.5))
			So(buf.String(), ShouldContainSubstring, `"msg":"careful"`)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString("WARNING"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
		So(SetFormat("xml"), ShouldNotBeNil)
	})
}
