package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/spendlens/internal/adapters/mq/queue"
	"github.com/okian/spendlens/internal/adapters/mq/worker"
	"github.com/okian/spendlens/internal/domain/model"
)

type mockAppender struct {
	mu     sync.Mutex
	stored map[string]queue.Event
	fail   map[string]error
	calls  int
}

func newMockAppender() *mockAppender {
	return &mockAppender{stored: map[string]queue.Event{}, fail: map[string]error{}}
}

func (m *mockAppender) Append(_ context.Context, e queue.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.fail[e.ID]; ok {
		return false, err
	}
	if _, ok := m.stored[e.ID]; ok {
		return false, nil
	}
	m.stored[e.ID] = e
	return true, nil
}

func (m *mockAppender) count() (stored, calls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stored), m.calls
}

func purchase(id string) model.PurchaseEvent {
	return model.PurchaseEvent{
		ID: id, SubjectID: "kid", Category: model.CategoryFood, ProductName: "apple",
		UnitPrice: 1, Quantity: 1, OccurredAt: time.Unix(1700000000, 0),
	}
}

func TestWorker(t *testing.T) {
	Convey("Given a worker on a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		app := newMockAppender()
		w := worker.New(q, app, worker.WithName("test"))

		Convey("When events, a duplicate and a failing event are queued", func() {
			app.fail["bad"] = errors.New("disk full")
			for _, id := range []string{"e1", "e2", "e1", "bad"} {
				So(q.Enqueue(ctx, purchase(id)), ShouldBeNil)
			}
			So(q.Close(), ShouldBeNil)
			go w.Run(ctx)

			Convey("Then every event is offered once and the worker stops when drained", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not stop")
				}
				stored, calls := app.count()
				So(stored, ShouldEqual, 2)
				So(calls, ShouldEqual, 4)
			})
		})

		Convey("When the context is cancelled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			go w.Run(runCtx)
			cancel()

			Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of four workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		app := newMockAppender()
		p := worker.NewPool(4, q, app)
		p.Start(ctx)

		Convey("When events are queued and the pool is shut down", func() {
			for i := 0; i < 200; i++ {
				So(q.Enqueue(ctx, purchase(fmt.Sprint(i))), ShouldBeNil)
			}
			err := p.Shutdown(ctx)

			Convey("Then the queue is drained before the workers stop", func() {
				So(err, ShouldBeNil)
				stored, _ := app.count()
				So(stored, ShouldEqual, 200)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})
	})
}
