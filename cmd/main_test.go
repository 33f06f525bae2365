package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/spendlens/internal/app"
	"github.com/okian/spendlens/internal/config"
	"github.com/okian/spendlens/internal/domain/types"
	"github.com/okian/spendlens/pkg/logger"
)

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv("SPENDLENS_ADDR", ":8080")
		t.Setenv("SPENDLENS_QUEUE_SIZE", "1000")
		t.Setenv("SPENDLENS_WORKER_COUNT", "4")
		t.Setenv("SPENDLENS_LOG_LEVEL", "debug")

		convey.Convey("Then configuration picks them up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)

			log := configureLogger(context.Background(), cfg)
			convey.So(log, convey.ShouldNotBeNil)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the server handler over in-memory stores", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.ModelStore = config.StoreMemory
		cfg.WorkerCount = 2
		svc := app.New(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		ts := httptest.NewServer(newHandler(ctx, svc, logger.Nop()))
		defer ts.Close()

		convey.Convey("When an event is posted", func() {
			body := `{"event_id":"e-1","subject_id":"kid-1","category":"education","product_name":"book",
"unit_price":12,"quantity":1,"timestamp":"` + time.Now().UTC().Add(-time.Hour).Format(time.RFC3339) + `"}`
			resp, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			convey.Convey("Then the subject becomes analyzable", func() {
				var got *http.Response
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) {
					got, err = http.Get(ts.URL + "/subjects/kid-1/analysis")
					convey.So(err, convey.ShouldBeNil)
					if got.StatusCode == http.StatusOK {
						break
					}
					_ = got.Body.Close()
					time.Sleep(10 * time.Millisecond)
				}
				defer got.Body.Close()
				convey.So(got.StatusCode, convey.ShouldEqual, http.StatusOK)

				var a types.Analysis
				convey.So(json.NewDecoder(got.Body).Decode(&a), convey.ShouldBeNil)
				convey.So(a.SubjectID, convey.ShouldEqual, "kid-1")
				convey.So(a.Features.RecentCount, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When docs and metrics are requested", func() {
			for _, path := range []string{"/openapi.yaml", "/api-docs", "/healthz", "/stats"} {
				resp, err := http.Get(ts.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}
