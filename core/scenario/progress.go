package scenario

import (
	"sync"

	"github.com/kilianp07/frlm/core/model"
)

// Progress is published after every scenario of a sweep.
type Progress struct {
	RunID    string
	Params   model.Params
	Done     int
	Total    int
	Stations int
	Err      error
}

// ProgressBus fans sweep progress out to subscribers. Delivery is
// non-blocking: slow subscribers miss events.
type ProgressBus struct {
	mu     sync.RWMutex
	subs   []chan Progress
	closed bool
}

// NewProgressBus creates an empty bus.
func NewProgressBus() *ProgressBus { return &ProgressBus{} }

// Publish sends p to every subscriber.
func (b *ProgressBus) Publish(p Progress) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// Subscribe registers a subscriber buffering up to size events.
func (b *ProgressBus) Subscribe(size int) <-chan Progress {
	if size <= 0 {
		size = 8
	}
	ch := make(chan Progress, size)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *ProgressBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
