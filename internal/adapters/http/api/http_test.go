package api_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/spendlens/internal/adapters/http/api"
	service "github.com/okian/spendlens/internal/app"
	"github.com/okian/spendlens/internal/domain/anomaly"
	"github.com/okian/spendlens/internal/domain/model"
	"github.com/okian/spendlens/internal/domain/personality"
	"github.com/okian/spendlens/internal/domain/types"
)

type mockDeps struct {
	ingested  []model.PurchaseEvent
	ingestErr error
	duplicate bool

	subjects  []types.Subject
	trainRes  service.TrainResult
	trainErr  error
	statsErr  error
	analyzeID string
}

func (m *mockDeps) Ingest(_ context.Context, e model.PurchaseEvent) (service.IngestResult, error) {
	if m.ingestErr != nil {
		return service.IngestResult{}, m.ingestErr
	}
	if e.ID == "" {
		e.ID = "generated"
	}
	m.ingested = append(m.ingested, e)
	return service.IngestResult{EventID: e.ID, Duplicate: m.duplicate}, nil
}

func (m *mockDeps) Subjects(context.Context) ([]types.Subject, error) {
	return m.subjects, nil
}

func (m *mockDeps) known(id string) error {
	for _, s := range m.subjects {
		if s.SubjectID == id {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", service.ErrSubjectNotFound, id)
}

func (m *mockDeps) Analyze(_ context.Context, id string) (types.Analysis, error) {
	m.analyzeID = id
	if err := m.known(id); err != nil {
		return types.Analysis{}, err
	}
	return types.Analysis{SubjectID: id, Alerts: []model.Alert{}}, nil
}

func (m *mockDeps) Personality(_ context.Context, id string) (model.PersonalityProfile, error) {
	if err := m.known(id); err != nil {
		return model.PersonalityProfile{}, err
	}
	return model.PersonalityProfile{Archetype: personality.Balanced, Source: model.SourceRules, ClusterID: -1}, nil
}

func (m *mockDeps) Anomalies(_ context.Context, id string) (anomaly.Report, error) {
	if err := m.known(id); err != nil {
		return anomaly.Report{}, err
	}
	return anomaly.Report{Status: anomaly.StatusOK, RiskLevel: anomaly.RiskLow, Findings: []model.AnomalyFinding{}}, nil
}

func (m *mockDeps) Train(context.Context) (service.TrainResult, error) {
	return m.trainRes, m.trainErr
}

func (m *mockDeps) Stats(context.Context) (map[string]any, error) {
	return map[string]any{"started": true}, m.statsErr
}

func newMux(deps *mockDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, nil).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

const validEvent = `{"event_id":"e1","subject_id":"kid-1","category":"SNACK","product_name":"chips",
"unit_price":2.5,"quantity":2,"timestamp":"2025-03-01T10:15:00+09:00"}`

func TestPostEvent(t *testing.T) {
	Convey("Given the API", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When a valid event is posted", func() {
			w := do(mux, http.MethodPost, "/events", validEvent)

			Convey("Then it is accepted and normalized", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				body := decode(w)
				So(body["status"], ShouldEqual, "accepted")
				So(body["event_id"], ShouldEqual, "e1")

				So(len(deps.ingested), ShouldEqual, 1)
				e := deps.ingested[0]
				So(e.Category, ShouldEqual, model.CategorySnack)
				So(e.Amount(), ShouldEqual, 5.0)
				So(e.OccurredAt.Equal(time.Date(2025, 3, 1, 1, 15, 0, 0, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the event id is omitted", func() {
			w := do(mux, http.MethodPost, "/events",
				`{"subject_id":"kid-1","category":"toy","unit_price":0,"quantity":1,"timestamp":"2025-03-01T10:15:00Z"}`)

			Convey("Then the service assigns one", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["event_id"], ShouldEqual, "generated")
			})
		})

		Convey("When required fields are missing", func() {
			w := do(mux, http.MethodPost, "/events", `{"category":"toy","quantity":0,"timestamp":"2025-03-01T10:15:00Z"}`)

			Convey("Then every failed field is reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode(w)
				So(body["code"], ShouldEqual, "bad_request")
				fields, ok := body["fields"].([]any)
				So(ok, ShouldBeTrue)
				names := map[string]bool{}
				for _, f := range fields {
					names[f.(map[string]any)["field"].(string)] = true
				}
				So(names["subject_id"], ShouldBeTrue)
				So(names["unit_price"], ShouldBeTrue)
				So(names["quantity"], ShouldBeTrue)
				So(deps.ingested, ShouldBeEmpty)
			})
		})

		Convey("When the price is too large to sum", func() {
			w := do(mux, http.MethodPost, "/events", strings.Replace(validEvent, `"unit_price":2.5`, `"unit_price":1e308`, 1))

			Convey("Then the price field is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "unit_price")
				So(deps.ingested, ShouldBeEmpty)
			})
		})

		Convey("When the timestamp is not RFC3339", func() {
			w := do(mux, http.MethodPost, "/events", strings.Replace(validEvent, "2025-03-01T10:15:00+09:00", "yesterday", 1))

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "RFC3339")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/events", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the event was already accepted", func() {
			deps.duplicate = true
			w := do(mux, http.MethodPost, "/events", validEvent)

			Convey("Then it is acknowledged as a duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode(w)["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When the queue is full", func() {
			deps.ingestErr = fmt.Errorf("%w: queue full", service.ErrBackpressure)
			w := do(mux, http.MethodPost, "/events", validEvent)

			Convey("Then the client is told to retry", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Header().Get("Retry-After"), ShouldEqual, "1")
				So(decode(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the service rejects the event", func() {
			deps.ingestErr = fmt.Errorf("%w: quantity", service.ErrInvalidEvent)
			w := do(mux, http.MethodPost, "/events", validEvent)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service fails unexpectedly", func() {
			deps.ingestErr = fmt.Errorf("disk on fire")
			w := do(mux, http.MethodPost, "/events", validEvent)

			Convey("Then the cause is not leaked", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldNotContainSubstring, "disk on fire")
			})
		})

		Convey("When events are fetched with GET", func() {
			w := do(mux, http.MethodGet, "/events", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSubjectRoutes(t *testing.T) {
	Convey("Given the API with one known subject", t, func() {
		deps := &mockDeps{subjects: []types.Subject{{SubjectID: "kid-1", Events: 3}}}
		mux := newMux(deps)

		Convey("When subjects are listed", func() {
			w := do(mux, http.MethodGet, "/subjects", "")

			Convey("Then the subject and count are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["count"], ShouldEqual, 1.0)
			})
		})

		Convey("When no subjects are known", func() {
			deps.subjects = nil
			w := do(mux, http.MethodGet, "/subjects", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"subjects":[]`)
		})

		Convey("When the analysis of the subject is requested", func() {
			w := do(mux, http.MethodGet, "/subjects/kid-1/analysis", "")

			Convey("Then the path id reaches the service", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.analyzeID, ShouldEqual, "kid-1")
				So(decode(w)["subject_id"], ShouldEqual, "kid-1")
			})
		})

		Convey("When the personality and anomalies are requested", func() {
			p := do(mux, http.MethodGet, "/subjects/kid-1/personality", "")
			a := do(mux, http.MethodGet, "/subjects/kid-1/anomalies", "")

			Convey("Then both are served", func() {
				So(p.Code, ShouldEqual, http.StatusOK)
				So(decode(p)["archetype"], ShouldEqual, personality.Balanced)
				So(a.Code, ShouldEqual, http.StatusOK)
				So(decode(a)["risk_level"], ShouldEqual, "low")
			})
		})

		Convey("When an unknown subject is requested", func() {
			for _, path := range []string{"/subjects/ghost/analysis", "/subjects/ghost/personality", "/subjects/ghost/anomalies"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode(w)["code"], ShouldEqual, "not_found")
			}
		})
	})
}

func TestTrainRoute(t *testing.T) {
	Convey("Given the API", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When training succeeds", func() {
			deps.trainRes = service.TrainResult{Trained: true, Subjects: 8, PersonalityVersion: "p1", AnomalyVersion: "a1"}
			w := do(mux, http.MethodPost, "/models/train", "")

			Convey("Then the result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["trained"], ShouldEqual, true)
				So(body["personality_version"], ShouldEqual, "p1")
			})
		})

		Convey("When the population is too small", func() {
			deps.trainErr = fmt.Errorf("%w: 2 subjects", personality.ErrInsufficientPopulation)
			deps.trainRes = service.TrainResult{Reason: deps.trainErr.Error(), Subjects: 2}
			w := do(mux, http.MethodPost, "/models/train", "")

			Convey("Then a conflict explains why", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				body := decode(w)
				So(body["trained"], ShouldEqual, false)
				So(body["reason"], ShouldContainSubstring, "2 subjects")
			})
		})

		Convey("When the service is not running", func() {
			deps.trainErr = service.ErrUnavailable
			w := do(mux, http.MethodPost, "/models/train", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When stats are requested", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("When stats are incomplete", func() {
			deps.statsErr = fmt.Errorf("gather failed")
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When health is requested after some traffic", func() {
			do(mux, http.MethodGet, "/stats", "")
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then the service metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "spendlens_http_requests_total")
			})
		})
	})
}
