package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/sqlbridge/internal/bridge"
)

// DefaultInterval is used when Config.Interval is zero.
const DefaultInterval = 30 * time.Second

// sinkTimeout bounds a single sink call.
const sinkTimeout = 5 * time.Second

// ErrAlreadyStarted is returned by Start on a reporter that has been started.
var ErrAlreadyStarted = errors.New("monitor: reporter already started")

// Source provides statistics snapshots. *database.DB and *bridge.Bridge
// both satisfy it.
type Source interface {
	Stats() bridge.Stats
}

// Sink receives statistics snapshots.
type Sink interface {
	Report(ctx context.Context, stats bridge.Stats) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, stats bridge.Stats) error

// Report calls f.
func (f SinkFunc) Report(ctx context.Context, stats bridge.Stats) error {
	return f(ctx, stats)
}

// Logger defines the logging interface used by the reporter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds reporter settings.
type Config struct {
	Interval time.Duration
	Logger   Logger
}

type namedSink struct {
	name string
	sink Sink
}

// Reporter samples a Source on an interval and delivers each snapshot to
// its sinks in registration order.
type Reporter struct {
	source   Source
	interval time.Duration
	logger   Logger

	mu      sync.Mutex
	sinks   []namedSink
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	reports uint64
}

// New creates a reporter for source. Call AddSink before Start.
func New(source Source, cfg Config) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Reporter{
		source:   source,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// AddSink registers a sink under name, used in log lines.
func (r *Reporter) AddSink(name string, sink Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, namedSink{name: name, sink: sink})
	r.mu.Unlock()
}

// Start launches the sampling goroutine. It runs until ctx is cancelled or
// Stop is called.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
	return nil
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReportOnce(ctx)
		}
	}
}

// ReportOnce takes one snapshot and delivers it to every sink. It returns
// the joined sink errors.
func (r *Reporter) ReportOnce(ctx context.Context) error {
	stats := r.source.Stats()

	r.mu.Lock()
	sinks := append([]namedSink(nil), r.sinks...)
	r.reports++
	r.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		err := s.sink.Report(sinkCtx, stats)
		cancel()
		if err != nil {
			r.logger.Warn("stats report failed", "sink", s.name, "bridge", stats.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		r.logger.Debug("stats reported", "sink", s.name, "bridge", stats.Name, "queued", stats.Queued)
	}
	return errors.Join(errs...)
}

// Reports returns how many snapshots have been taken.
func (r *Reporter) Reports() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports
}

// Stop halts the sampling goroutine and waits for it to exit. A final
// snapshot is not taken. Stop on an unstarted reporter is a no-op.
func (r *Reporter) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done // capture under lock
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
