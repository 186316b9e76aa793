package bridge

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// defaultName is used in logs and stats when Config.Name is empty.
const defaultName = "bridge"

// State is the worker's lifecycle state.
type State string

const (
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateTerminated   State = "terminated"
)

// Config holds bridge settings.
type Config struct {
	// Name identifies the bridge in logs and stats.
	Name string

	// Logger receives worker lifecycle events. Nil disables logging.
	Logger Logger

	// IsResourceError reports whether an operation error came from the
	// resource itself. Matching errors are wrapped as KindResource, all
	// others as KindCaller. Nil treats every error as KindCaller.
	IsResourceError func(error) bool
}

// Logger defines the logging interface used by the bridge.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats is a point-in-time snapshot of a bridge's counters.
type Stats struct {
	Name  string `json:"name"`
	State State  `json:"state"`

	// Queued is the number of messages waiting on the work channel.
	Queued int `json:"queued"`

	Submitted uint64 `json:"submitted"`
	Shared    uint64 `json:"shared"`
	Exclusive uint64 `json:"exclusive"`
	Failed    uint64 `json:"failed"`

	// Abandoned counts results nobody was waiting for any more.
	Abandoned uint64 `json:"abandoned"`

	// Rejected counts submissions refused because the bridge was closed.
	Rejected uint64 `json:"rejected"`

	// Dropped counts queued operations resolved as closed without running.
	Dropped uint64 `json:"dropped"`
}

// Completed returns the number of operations that ran to completion.
func (s Stats) Completed() uint64 {
	return s.Shared + s.Exclusive
}

type counters struct {
	submitted atomic.Uint64
	shared    atomic.Uint64
	exclusive atomic.Uint64
	failed    atomic.Uint64
	abandoned atomic.Uint64
	rejected  atomic.Uint64
	dropped   atomic.Uint64
}

// Bridge is the caller-facing handle to a resource confined to a single
// worker thread. It is safe for concurrent use; the resource is not, and
// is never handed out.
//
// Work is submitted with Submit, Delegate or DelegateMut. Close shuts the
// worker down and waits for it to exit.
type Bridge[R any] struct {
	w *worker[R]

	closeOnce sync.Once
	cleanup   runtime.Cleanup
}

// Start spawns the worker and returns immediately. The worker calls factory
// on its own thread to create the resource; if factory fails the worker
// exits, every operation resolves as closed, and Close returns the error.
func Start[R any](factory func() (R, error), cfg Config) *Bridge[R] {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	w := &worker[R]{
		name:            cfg.Name,
		logger:          cfg.Logger,
		isResourceError: cfg.IsResourceError,
		box:             newMailbox[R](),
		done:            make(chan struct{}),
		state:           StateRunning,
	}
	go w.run(factory)

	b := &Bridge[R]{w: w}

	// A handle dropped without Close still stops its worker. The cleanup
	// only holds the mailbox, never the handle.
	b.cleanup = runtime.AddCleanup(b, func(box *mailbox[R]) {
		box.seal(message[R]{shutdown: true})
	}, w.box)

	return b
}

// Close sends the shutdown signal and blocks until the worker has exited.
//
// Operations queued before Close still run; anything submitted afterwards
// fails with ErrClosed. Close returns the worker's lifecycle result: nil for
// a clean exit, the open error if the resource could not be created, or a
// *PanicError if an operation panicked. Repeated calls return the same result.
func (b *Bridge[R]) Close() error {
	b.closeOnce.Do(func() {
		b.cleanup.Stop()
		if b.w.box.seal(message[R]{shutdown: true}) {
			b.w.logger.Debug("shutdown requested", "bridge", b.w.name)
		}
	})
	<-b.w.done
	return b.w.err
}

// Done returns a channel that is closed once the worker has exited.
func (b *Bridge[R]) Done() <-chan struct{} {
	return b.w.done
}

// Err returns the worker's lifecycle result, or nil while it is running.
func (b *Bridge[R]) Err() error {
	select {
	case <-b.w.done:
		return b.w.err
	default:
		return nil
	}
}

// Name returns the bridge name.
func (b *Bridge[R]) Name() string {
	return b.w.name
}

// State returns the worker's current lifecycle state.
func (b *Bridge[R]) State() State {
	return b.w.getState()
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge[R]) Stats() Stats {
	w := b.w
	return Stats{
		Name:      w.name,
		State:     w.getState(),
		Queued:    w.box.len(),
		Submitted: w.stats.submitted.Load(),
		Shared:    w.stats.shared.Load(),
		Exclusive: w.stats.exclusive.Load(),
		Failed:    w.stats.failed.Load(),
		Abandoned: w.stats.abandoned.Load(),
		Rejected:  w.stats.rejected.Load(),
		Dropped:   w.stats.dropped.Load(),
	}
}
