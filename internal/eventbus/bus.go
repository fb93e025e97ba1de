package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
)

// Bus fans out repository change signals to per-root subscribers.
// Each subscriber channel holds at most one pending signal; further
// publishes coalesce into it.
type Bus struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
	log  pslog.Logger
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs: make(map[string]map[chan struct{}]struct{}),
		log:  logger,
	}
}

// Subscribe registers a subscriber for root and returns a channel + cancel.
// Cancel closes the channel and is safe to call more than once.
func (b *Bus) Subscribe(root string) (<-chan struct{}, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	rootSubs := b.subs[root]
	if rootSubs == nil {
		rootSubs = make(map[chan struct{}]struct{})
		b.subs[root] = rootSubs
	}
	rootSubs[ch] = struct{}{}
	count := len(rootSubs)
	b.mu.Unlock()
	b.log.With("root", root).Debug("eventbus subscribe", "subs", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[root]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, root)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("root", root).Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers returns the number of live subscribers for root.
func (b *Bus) Subscribers(root string) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[root])
}

// Publish signals every subscriber of root without blocking.
func (b *Bus) Publish(root string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rootSubs := b.subs[root]
	if len(rootSubs) == 0 {
		return
	}
	coalesced := 0
	for sub := range rootSubs {
		select {
		case sub <- struct{}{}:
		default:
			coalesced++
		}
	}
	if coalesced > 0 {
		b.log.With("root", root).Trace("eventbus coalesced", "count", coalesced)
	}
}
