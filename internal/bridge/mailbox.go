package bridge

import "sync"

// message is one entry on the work channel: an operation (shared or
// exclusive access) or the shutdown signal.
type message[R any] struct {
	access   Access
	shutdown bool

	// run executes the operation against the resource. It reports whether
	// the operation failed and returns deliver, which publishes the result
	// and reports whether anyone was still waiting for it.
	run func(res R) (failed bool, deliver func() bool)

	// drop resolves the operation's notifier as closed without running it.
	drop func()
}

// mailbox is the unbounded multi-producer, single-consumer FIFO that feeds
// the worker.
//
// push never blocks. Once sealed the mailbox rejects every push, which is
// how submissions after shutdown fail fast instead of being lost.
type mailbox[R any] struct {
	mu     sync.Mutex
	items  []message[R]
	sealed bool
	signal chan struct{} // buffered, size 1; coalesces wakeups
}

func newMailbox[R any]() *mailbox[R] {
	return &mailbox[R]{
		items:  make([]message[R], 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// push appends msg. Returns false if the mailbox is sealed.
func (m *mailbox[R]) push(msg message[R]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		return false
	}
	m.items = append(m.items, msg)
	m.notify()
	return true
}

// seal appends a final message and seals the mailbox in one step, so nothing
// can ever be queued behind it. Returns false if already sealed.
func (m *mailbox[R]) seal(last message[R]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed {
		return false
	}
	m.items = append(m.items, last)
	m.sealed = true
	m.notify()
	return true
}

// notify must be called with mu held.
func (m *mailbox[R]) notify() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// pop removes and returns the front message, blocking until one is queued.
// Only the worker calls pop.
func (m *mailbox[R]) pop() message[R] {
	for {
		if msg, ok := m.tryPop(); ok {
			return msg
		}
		<-m.signal
	}
}

func (m *mailbox[R]) tryPop() (message[R], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return message[R]{}, false
	}

	msg := m.items[0]
	// Clear the slot so the captured closure can be collected.
	m.items[0] = message[R]{}
	if len(m.items) == 1 {
		m.items = m.items[:0]
	} else {
		m.items = m.items[1:]
	}
	return msg, true
}

// drain seals the mailbox and returns everything still queued.
func (m *mailbox[R]) drain() []message[R] {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sealed = true
	rest := m.items
	m.items = nil
	return rest
}

// len returns the number of queued messages.
func (m *mailbox[R]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
