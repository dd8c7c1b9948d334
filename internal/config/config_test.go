package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/pulse/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.BaseSystems, convey.ShouldEqual, 3)
			convey.So(cfg.TrendLookbackDays, convey.ShouldEqual, 14)
			convey.So(cfg.PeerMinPopulation, convey.ShouldEqual, 20)
			convey.So(cfg.MetricsSource, convey.ShouldEqual, "sqlite")
		})

		convey.Convey("And the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
