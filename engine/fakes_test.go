package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ftahirops/drivelog/model"
	"github.com/ftahirops/drivelog/store"
)

// fakeInvoker replays scripted reports per device, one per call. The last
// script entry repeats once exhausted.
type fakeInvoker struct {
	mu      sync.Mutex
	scripts map[string][]fakeResult
	calls   map[string]int
	order   []string
}

type fakeResult struct {
	report string
	err    error
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{scripts: make(map[string][]fakeResult), calls: make(map[string]int)}
}

func (f *fakeInvoker) script(device string, results ...fakeResult) {
	f.scripts[device] = append(f.scripts[device], results...)
}

func (f *fakeInvoker) Invoke(_ context.Context, target model.DriveTarget) (model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.order = append(f.order, target.Device)
	results := f.scripts[target.Device]
	if len(results) == 0 {
		return nil, fmt.Errorf("no script for %s", target.Device)
	}
	i := f.calls[target.Device]
	f.calls[target.Device]++
	if i >= len(results) {
		i = len(results) - 1
	}
	res := results[i]
	if res.err != nil {
		return nil, res.err
	}
	var r model.Report
	if err := json.Unmarshal([]byte(res.report), &r); err != nil {
		return nil, err
	}
	return r, nil
}

// smartReport builds a smartctl document for tests.
func smartReport(name, kind string, status uint8, extra string) string {
	doc := fmt.Sprintf(`{"device":{"type":%q,"name":%q},"smartctl":{"exit_status":%d,"messages":[{"string":"msg for %s"}]}`,
		kind, name, status, name)
	if extra != "" {
		doc += "," + extra
	}
	return doc + "}"
}

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

// failingStore wraps a store and fails chosen operations.
type failingStore struct {
	store.Store
	failObservation bool
	failIdentity    bool
}

var errStoreDown = errors.New("connection refused")

func (s *failingStore) InsertObservation(ctx context.Context, obs model.Observation) error {
	if s.failObservation {
		return errStoreDown
	}
	return s.Store.InsertObservation(ctx, obs)
}

func (s *failingStore) Atomic(ctx context.Context, fn func(q store.Queries) error) error {
	if s.failIdentity {
		return errStoreDown
	}
	return s.Store.Atomic(ctx, fn)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPipeline(t *testing.T, inv Invoker, st store.Store) *Pipeline {
	t.Helper()
	return NewPipeline(PipelineConfig{
		Invoker:   inv,
		Store:     st,
		OwnerHost: "host1",
		Logger:    discardLogger(),
		Now:       newStepClock(time.Second).Now,
	})
}
