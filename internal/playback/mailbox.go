package playback

import "sync"

// mailbox is an unbounded FIFO with a single consumer. send never blocks.
// After close, sends are discarded and the consumer drains what was queued
// before returning.
type mailbox struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	signal chan struct{}
	done   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// send enqueues ev and reports whether it was accepted.
func (m *mailbox) send(ev Event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// take blocks until events are queued or the mailbox is closed. It returns
// everything queued so far; an empty batch means closed and drained.
func (m *mailbox) take() []Event {
	m.mu.Lock()
	for len(m.queue) == 0 && !m.closed {
		m.mu.Unlock()
		<-m.signal
		m.mu.Lock()
	}
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()
	return batch
}

// run consumes batches until the mailbox is closed and drained.
func (m *mailbox) run(handle func(batch []Event)) {
	defer close(m.done)
	for {
		batch := m.take()
		if len(batch) == 0 {
			return
		}
		handle(batch)
	}
}

// close stops accepting events. It does not wait for the consumer.
func (m *mailbox) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
