// Package bridge confines a single-threaded resource to one worker thread and
// exposes it to concurrent callers through message passing.
//
// The resource (typically a SQLite connection) is created by the worker,
// used only by the worker, and closed by the worker. Callers never receive a
// reference to it; they send operations and wait for results.
//
// # Architecture
//
//	caller goroutines                     worker (locked OS thread)
//	┌────────────────┐   Submit    ┌─────────┐   pop    ┌────────────────────┐
//	│ Delegate(fn)   │────────────▶│ mailbox │─────────▶│ fn(resource)       │
//	│ DelegateMut(fn)│  (no block) │ (FIFO)  │          │ deliver → Pending  │
//	└───────▲────────┘             └─────────┘          └─────────┬──────────┘
//	        │                  Pending.Wait(ctx)                  │
//	        └─────────────────────────────────────────────────────┘
//
// # Guarantees
//
//   - Operations execute one at a time, in mailbox order, on one thread.
//   - Operations from one caller run in submission order, and each sees the
//     effects of the ones before it.
//   - Submitting never blocks; the mailbox is unbounded.
//   - Every Pending resolves: with the result, or with ErrClosed if the
//     worker is gone. It never hangs.
//
// # Shutdown
//
// Close enqueues a shutdown message behind any queued work, so everything
// submitted before Close still runs. Submissions after Close fail with
// ErrClosed. Close blocks until the worker has exited and the resource has
// been closed.
//
// # Failures
//
// An error returned by an operation goes back to its caller as *Error and
// the worker carries on. A panic inside an operation is not isolated: it
// stops the worker, every queued operation resolves as ErrClosed, and Close
// returns a *PanicError.
//
// Abandoning a Wait (context cancelled or timed out) does not cancel the
// operation. It still runs; its result is discarded.
//
// # Usage
//
//	b := bridge.Start(func() (*Store, error) { return openStore(path) }, bridge.Config{
//	    Name:   "store",
//	    Logger: log,
//	})
//	defer b.Close()
//
//	n, err := bridge.Delegate(ctx, b, func(s *Store) (int, error) {
//	    return s.Count()
//	})
package bridge
