package config_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/okian/spendlens/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.WindowDays, convey.ShouldEqual, 7)
			convey.So(cfg.ClusterCount, convey.ShouldEqual, 4)
			convey.So(cfg.PCAComponents, convey.ShouldEqual, 3)
			convey.So(cfg.RandomSeed, convey.ShouldEqual, 42)
			convey.So(cfg.ForestTrees, convey.ShouldEqual, 100)
			convey.So(cfg.Contamination, convey.ShouldEqual, 0.1)
			convey.So(cfg.MaxFindings, convey.ShouldEqual, 5)
			convey.So(cfg.MaxAlerts, convey.ShouldEqual, 8)
			convey.So(cfg.ClusterArchetypes[0], convey.ShouldEqual, "learning_oriented")
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
