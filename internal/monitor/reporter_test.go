package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/sqlbridge/internal/bridge"
)

type fixedSource struct {
	stats bridge.Stats
}

func (s fixedSource) Stats() bridge.Stats { return s.stats }

type recordingSink struct {
	mu    sync.Mutex
	got   []bridge.Stats
	err   error
	calls chan struct{}
}

func newRecordingSink(err error) *recordingSink {
	return &recordingSink{err: err, calls: make(chan struct{}, 64)}
}

func (s *recordingSink) Report(_ context.Context, stats bridge.Stats) error {
	s.mu.Lock()
	s.got = append(s.got, stats)
	s.mu.Unlock()
	s.calls <- struct{}{}
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type warnCounter struct {
	mu    sync.Mutex
	warns int
}

func (w *warnCounter) Debug(string, ...any) {}
func (w *warnCounter) Warn(string, ...any) {
	w.mu.Lock()
	w.warns++
	w.mu.Unlock()
}

func TestNew_Defaults(t *testing.T) {
	r := New(fixedSource{}, Config{})
	if r.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultInterval)
	}
	if r.logger == nil {
		t.Error("logger should default to noop")
	}
}

func TestReportOnce(t *testing.T) {
	src := fixedSource{stats: bridge.Stats{Name: "database", State: bridge.StateRunning, Submitted: 4, Shared: 3}}
	first := newRecordingSink(nil)
	second := newRecordingSink(nil)

	r := New(src, Config{Interval: time.Hour})
	r.AddSink("first", first)
	r.AddSink("second", second)

	if err := r.ReportOnce(context.Background()); err != nil {
		t.Fatalf("ReportOnce() error = %v", err)
	}

	for name, s := range map[string]*recordingSink{"first": first, "second": second} {
		if s.count() != 1 {
			t.Fatalf("%s sink calls = %d, want 1", name, s.count())
		}
		if s.got[0] != src.stats {
			t.Errorf("%s sink got %+v, want %+v", name, s.got[0], src.stats)
		}
	}
	if r.Reports() != 1 {
		t.Errorf("Reports() = %d, want 1", r.Reports())
	}
}

func TestReportOnce_SinkErrorDoesNotStopOthers(t *testing.T) {
	errBroker := errors.New("broker gone")
	failing := newRecordingSink(errBroker)
	ok := newRecordingSink(nil)
	logger := &warnCounter{}

	r := New(fixedSource{}, Config{Interval: time.Hour, Logger: logger})
	r.AddSink("mqtt", failing)
	r.AddSink("influxdb", ok)

	err := r.ReportOnce(context.Background())
	if !errors.Is(err, errBroker) {
		t.Fatalf("ReportOnce() error = %v, want %v", err, errBroker)
	}
	if ok.count() != 1 {
		t.Errorf("second sink calls = %d, want 1", ok.count())
	}
	if logger.warns != 1 {
		t.Errorf("warnings = %d, want 1", logger.warns)
	}
}

func TestSinkFunc(t *testing.T) {
	var got bridge.Stats
	sink := SinkFunc(func(_ context.Context, stats bridge.Stats) error {
		got = stats
		return nil
	})

	want := bridge.Stats{Name: "orders"}
	if err := sink.Report(context.Background(), want); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestStart_ReportsOnInterval(t *testing.T) {
	sink := newRecordingSink(nil)
	r := New(fixedSource{}, Config{Interval: 10 * time.Millisecond})
	r.AddSink("test", sink)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-sink.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for report %d", i+1)
		}
	}
}

func TestStart_Twice(t *testing.T) {
	r := New(fixedSource{}, Config{Interval: time.Hour})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want %v", err, ErrAlreadyStarted)
	}
}

func TestStop(t *testing.T) {
	sink := newRecordingSink(nil)
	r := New(fixedSource{}, Config{Interval: 5 * time.Millisecond})
	r.AddSink("test", sink)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-sink.calls
	r.Stop()

	after := r.Reports()
	time.Sleep(30 * time.Millisecond)
	if r.Reports() != after {
		t.Errorf("reports continued after Stop: %d -> %d", after, r.Reports())
	}

	// Second Stop returns immediately.
	r.Stop()
}

func TestStop_NotStarted(t *testing.T) {
	r := New(fixedSource{}, Config{})
	r.Stop()
}

func TestStart_ContextCancelStopsLoop(t *testing.T) {
	r := New(fixedSource{}, Config{Interval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after context cancel")
	}
}

func TestReporter_WithBridge(t *testing.T) {
	b := bridge.Start(func() (*int, error) { return new(int), nil }, bridge.Config{Name: "counter"})
	defer b.Close()

	_, err := bridge.DelegateMut(context.Background(), b, func(n *int) (int, error) {
		*n++
		return *n, nil
	})
	if err != nil {
		t.Fatalf("DelegateMut() error = %v", err)
	}

	sink := newRecordingSink(nil)
	r := New(b, Config{Interval: time.Hour})
	r.AddSink("test", sink)
	if err := r.ReportOnce(context.Background()); err != nil {
		t.Fatalf("ReportOnce() error = %v", err)
	}

	got := sink.got[0]
	if got.Name != "counter" || got.Exclusive != 1 {
		t.Errorf("stats = %+v, want name counter with 1 exclusive op", got)
	}
}
