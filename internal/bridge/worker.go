package bridge

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"sync"
)

// worker owns the resource. Nothing outside run and the functions it calls
// ever sees the resource value.
//
// worker must not reference the Bridge handle, otherwise the handle could
// never become unreachable and its cleanup would never fire.
type worker[R any] struct {
	name            string
	logger          Logger
	isResourceError func(error) bool

	box   *mailbox[R]
	stats counters

	mu    sync.RWMutex
	state State

	// err is the lifecycle result, written before done is closed.
	err  error
	done chan struct{}
}

// run is the worker goroutine. It is pinned to its OS thread for its whole
// life; the thread exits with it.
func (w *worker[R]) run(factory func() (R, error)) {
	runtime.LockOSThread()

	res, err := w.open(factory)
	if err != nil {
		w.logger.Error("opening resource failed", "bridge", w.name, "error", err)
		w.finish(fmt.Errorf("opening resource: %w", err))
		return
	}
	w.logger.Debug("worker started", "bridge", w.name)

	w.finish(w.loop(res))
}

// open runs the factory. A panicking factory is reported like a failed one.
func (w *worker[R]) open(factory func() (R, error)) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return factory()
}

// loop executes messages until shutdown. A panic in an operation ends the
// loop; the panicking operation's caller sees ErrClosed.
func (w *worker[R]) loop(res R) (err error) {
	var current *message[R]

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
			w.logger.Error("operation panicked, stopping worker",
				"bridge", w.name,
				"panic", r,
			)
			if current != nil {
				current.drop()
				w.stats.dropped.Add(1)
			}
		}
		if closeErr := closeResource(res); closeErr != nil {
			w.logger.Warn("closing resource failed", "bridge", w.name, "error", closeErr)
			if err == nil {
				err = fmt.Errorf("closing resource: %w", closeErr)
			}
		}
	}()

	for {
		msg := w.box.pop()
		if msg.shutdown {
			w.setState(StateShuttingDown)
			w.logger.Debug("shutdown received", "bridge", w.name)
			return nil
		}

		current = &msg
		w.execute(res, msg)
		current = nil
	}
}

func (w *worker[R]) execute(res R, msg message[R]) {
	failed, deliver := msg.run(res)

	if msg.access == Exclusive {
		w.stats.exclusive.Add(1)
	} else {
		w.stats.shared.Add(1)
	}
	if failed {
		w.stats.failed.Add(1)
	}
	// Counted before delivery so a caller that has its result also sees
	// the operation in Stats.
	if !deliver() {
		// The caller gave up waiting; nothing to escalate.
		w.stats.abandoned.Add(1)
		w.logger.Debug("result discarded, caller no longer waiting",
			"bridge", w.name,
			"access", msg.access.String(),
		)
	}
}

// finish publishes the lifecycle result and resolves anything still queued
// as closed.
func (w *worker[R]) finish(err error) {
	for _, msg := range w.box.drain() {
		if msg.drop != nil {
			msg.drop()
			w.stats.dropped.Add(1)
		}
	}

	w.setState(StateTerminated)
	w.err = err
	if err != nil {
		w.logger.Warn("worker terminated abnormally", "bridge", w.name, "error", err)
	} else {
		w.logger.Debug("worker terminated", "bridge", w.name)
	}
	close(w.done)
}

// classify wraps an operation error into the bridge taxonomy.
func (w *worker[R]) classify(err error) error {
	kind := KindCaller
	if w.isResourceError != nil && w.isResourceError(err) {
		kind = KindResource
	}
	return &Error{Kind: kind, Err: err}
}

func (w *worker[R]) getState() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *worker[R]) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// closeResource closes the resource if it knows how to.
func closeResource(res any) error {
	if c, ok := res.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
