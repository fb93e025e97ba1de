package core

import "sync"

// mailbox is an unbounded FIFO of closures posted from worker goroutines and
// drained on the engine loop. Post never blocks and never drops.
type mailbox struct {
	mu    sync.Mutex
	queue []func()
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) Post(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready fires when at least one closure has been posted since the last drain.
func (m *mailbox) Ready() <-chan struct{} {
	return m.ready
}

func (m *mailbox) Drain() []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := m.queue
	m.queue = nil
	return queue
}
