package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/spendlens/internal/app"
	"github.com/okian/spendlens/internal/domain/types"
)

var categories = [][]string{
	{"education", "EDUCATION", "food"},
	{"snack", "snack", "food"},
	{"toy", "entertainment", "toy"},
	{"food", "food", "etc"},
}

// writeEvents writes three weeks of purchases for n subjects, plus one
// event without a subject and one with a bad timestamp.
func writeEvents(dir string, n int) string {
	now := time.Now().UTC()
	var raw []map[string]any
	for s := 0; s < n; s++ {
		cats := categories[s%len(categories)]
		for d := 0; d < 21; d++ {
			for j := 0; j < 2; j++ {
				raw = append(raw, map[string]any{
					"subject_id":   fmt.Sprintf("kid-%02d", s),
					"category":     cats[(d+j)%len(cats)],
					"product_name": fmt.Sprintf("item-%d", (d+s)%5),
					"unit_price":   2 + (d+s)%4,
					"quantity":     1 + j,
					"timestamp":    now.Add(-time.Duration(d)*24*time.Hour - time.Duration(3+j*5+s%3)*time.Hour).Format(time.RFC3339),
				})
			}
		}
	}
	raw = append(raw,
		map[string]any{"category": "toy", "unit_price": 1, "quantity": 1, "timestamp": now.Format(time.RFC3339)},
		map[string]any{"subject_id": "kid-00", "category": "toy", "unit_price": 1, "quantity": 1, "timestamp": "yesterday"},
	)
	b, err := json.Marshal(raw)
	So(err, ShouldBeNil)
	path := filepath.Join(dir, "events.json")
	So(os.WriteFile(path, b, 0o600), ShouldBeNil)
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReadEvents(t *testing.T) {
	Convey("Given an event file", t, func() {
		path := writeEvents(t.TempDir(), 3)

		Convey("Then events get ids and subjectless ones are skipped", func() {
			pop, err := readEvents(path)
			So(err, ShouldBeNil)
			So(len(pop.events), ShouldEqual, 3*42)
			So(pop.skipped, ShouldEqual, 2)
			So(pop.subjects, ShouldResemble, []string{"kid-00", "kid-01", "kid-02"})
			for _, e := range pop.events {
				So(e.ID, ShouldNotBeEmpty)
			}
		})

		Convey("Then a missing or malformed file is an error", func() {
			_, err := readEvents(filepath.Join(t.TempDir(), "missing.json"))
			So(err, ShouldNotBeNil)

			bad := filepath.Join(t.TempDir(), "bad.json")
			So(os.WriteFile(bad, []byte("{not json"), 0o600), ShouldBeNil)
			_, err = readEvents(bad)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given a population of eight subjects and a file model store", t, func() {
		dir := t.TempDir()
		path := writeEvents(dir, 8)
		models := filepath.Join(dir, "models")

		Convey("When the models are trained", func() {
			out, err := execute("train", "--events", path, "--model-store", "file", "--model-dir", models)
			So(err, ShouldBeNil)

			var res service.TrainResult
			So(json.Unmarshal([]byte(out), &res), ShouldBeNil)
			So(res.Trained, ShouldBeTrue)
			So(res.Subjects, ShouldEqual, 8)
			So(res.PersonalityVersion, ShouldNotBeEmpty)

			Convey("Then a later analysis uses the stored models", func() {
				out, err := execute("analyze", "--events", path, "--model-store", "file", "--model-dir", models, "--subject", "kid-00")
				So(err, ShouldBeNil)

				var a types.Analysis
				So(json.Unmarshal([]byte(out), &a), ShouldBeNil)
				So(a.SubjectID, ShouldEqual, "kid-00")
				So(a.Models.Personality, ShouldEqual, res.PersonalityVersion)
				So(a.Models.Anomaly, ShouldEqual, res.AnomalyVersion)
			})
		})

		Convey("When every subject is analyzed without models", func() {
			out, err := execute("analyze", "--events", path, "--model-store", "memory")
			So(err, ShouldBeNil)

			var all []types.Analysis
			So(json.Unmarshal([]byte(out), &all), ShouldBeNil)
			So(len(all), ShouldEqual, 8)
			So(all[0].SubjectID, ShouldEqual, "kid-00")
		})

		Convey("When too few subjects are trained", func() {
			small := writeEvents(t.TempDir(), 2)
			_, err := execute("train", "--events", small, "--model-store", "memory")
			So(err, ShouldNotBeNil)
		})

		Convey("When the subject is unknown", func() {
			_, err := execute("analyze", "--events", path, "--model-store", "memory", "--subject", "nobody")
			So(errors.Is(err, service.ErrSubjectNotFound), ShouldBeTrue)
		})
	})
}
