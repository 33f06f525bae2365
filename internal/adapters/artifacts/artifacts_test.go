package artifacts_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dgraph-io/badger/v4"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/spendlens/internal/adapters/artifacts"
)

func backends(t *testing.T) map[string]func() artifacts.Store {
	return map[string]func() artifacts.Store{
		"memory": func() artifacts.Store { return artifacts.NewMemoryStore() },
		"file": func() artifacts.Store {
			s, err := artifacts.NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("file store: %v", err)
			}
			return s
		},
		"badger": func() artifacts.Store {
			db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
			if err != nil {
				t.Fatalf("badger: %v", err)
			}
			return artifacts.NewBadgerStoreFromDB(db)
		},
	}
}

func TestStores(t *testing.T) {
	for name, open := range backends(t) {
		Convey("Given an empty "+name+" store", t, func() {
			ctx := context.Background()
			s := open()
			Reset(func() { _ = s.Close() })

			Convey("When a set was never saved", func() {
				_, err := s.Load(ctx, "personality")
				So(errors.Is(err, artifacts.ErrNotFound), ShouldBeTrue)
			})

			Convey("When a set is saved", func() {
				err := s.Save(ctx, "personality", map[string][]byte{
					"personality-scaler":   []byte(`{"a":1}`),
					"personality-clusters": []byte(`{"b":2}`),
				})
				So(err, ShouldBeNil)

				Convey("Then it loads back unchanged", func() {
					blobs, err := s.Load(ctx, "personality")
					So(err, ShouldBeNil)
					So(len(blobs), ShouldEqual, 2)
					So(string(blobs["personality-scaler"]), ShouldEqual, `{"a":1}`)
				})

				Convey("And it is replaced by a smaller set", func() {
					So(s.Save(ctx, "personality", map[string][]byte{"personality-scaler": []byte(`{"a":9}`)}), ShouldBeNil)

					Convey("Then no blob of the old set remains", func() {
						blobs, err := s.Load(ctx, "personality")
						So(err, ShouldBeNil)
						So(len(blobs), ShouldEqual, 1)
						So(string(blobs["personality-scaler"]), ShouldEqual, `{"a":9}`)
					})
				})

				Convey("Then other sets are untouched", func() {
					_, err := s.Load(ctx, "anomaly")
					So(errors.Is(err, artifacts.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When names are unsafe", func() {
				So(errors.Is(s.Save(ctx, "../x", map[string][]byte{"r": nil}), artifacts.ErrInvalidName), ShouldBeTrue)
				So(errors.Is(s.Save(ctx, "x", map[string][]byte{"a/b": nil}), artifacts.ErrInvalidName), ShouldBeTrue)
				So(errors.Is(s.Save(ctx, "x", nil), artifacts.ErrInvalidName), ShouldBeTrue)
			})
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	Convey("Given a file store", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		s, err := artifacts.NewFileStore(dir)
		So(err, ShouldBeNil)

		Convey("When a set is saved twice", func() {
			So(s.Save(ctx, "anomaly", map[string][]byte{"anomaly-scaler": []byte("1")}), ShouldBeNil)
			So(s.Save(ctx, "anomaly", map[string][]byte{"anomaly-scaler": []byte("2")}), ShouldBeNil)

			Convey("Then only the current generation is kept", func() {
				entries, err := os.ReadDir(filepath.Join(dir, "anomaly"))
				So(err, ShouldBeNil)
				dirs := 0
				for _, e := range entries {
					if e.IsDir() {
						dirs++
					}
				}
				So(dirs, ShouldEqual, 1)
			})
		})
	})
}

func TestFileStoreConcurrentLoad(t *testing.T) {
	Convey("Given a file store that is saved while readers load", t, func() {
		ctx := context.Background()
		s, err := artifacts.NewFileStore(t.TempDir())
		So(err, ShouldBeNil)
		generation := func(i int) map[string][]byte {
			v := []byte(fmt.Sprint(i))
			return map[string][]byte{"personality-scaler": v, "personality-clusters": v}
		}
		So(s.Save(ctx, "personality", generation(0)), ShouldBeNil)

		var (
			wg      sync.WaitGroup
			stop    atomic.Bool
			loads   atomic.Int64
			failed  atomic.Int64
			mixed   atomic.Int64
			lastErr atomic.Value
		)
		for r := 0; r < 6; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for !stop.Load() {
					blobs, err := s.Load(ctx, "personality")
					if err != nil {
						failed.Add(1)
						lastErr.Store(err.Error())
						continue
					}
					if string(blobs["personality-scaler"]) != string(blobs["personality-clusters"]) {
						mixed.Add(1)
					}
					loads.Add(1)
				}
			}()
		}
		saveErrs := 0
		for i := 1; i <= 100; i++ {
			if s.Save(ctx, "personality", generation(i)) != nil {
				saveErrs++
			}
		}
		for loads.Load() < 50 {
			runtime.Gosched()
		}
		stop.Store(true)
		wg.Wait()

		Convey("Then every load returns one whole generation", func() {
			So(saveErrs, ShouldEqual, 0)
			So(failed.Load(), ShouldEqual, 0)
			So(lastErr.Load(), ShouldBeNil)
			So(mixed.Load(), ShouldEqual, 0)
			blobs, err := s.Load(ctx, "personality")
			So(err, ShouldBeNil)
			So(string(blobs["personality-scaler"]), ShouldEqual, "100")
		})
	})

	Convey("Given a pointer to a generation that another process removed", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		s, err := artifacts.NewFileStore(dir)
		So(err, ShouldBeNil)
		So(os.MkdirAll(filepath.Join(dir, "anomaly"), 0o755), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "anomaly", "CURRENT"), []byte("gone"), 0o644), ShouldBeNil)

		_, err = s.Load(ctx, "anomaly")

		Convey("Then the load fails cleanly instead of reporting a missing set", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, artifacts.ErrNotFound), ShouldBeFalse)
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Given backend names", t, func() {
		s, err := artifacts.Open(artifacts.BackendMemory, "")
		So(err, ShouldBeNil)
		So(s, ShouldNotBeNil)

		_, err = artifacts.Open("s3", "")
		So(errors.Is(err, artifacts.ErrUnknownBackend), ShouldBeTrue)
	})
}
