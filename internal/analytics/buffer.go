package analytics

import (
	"sync"

	"github.com/refract/redirector/internal/model"
)

// Buffer is a bounded FIFO of click events. When full, the oldest events are
// evicted to make room for new ones.
type Buffer struct {
	mu     sync.Mutex
	events []*model.ClickEvent
	max    int
}

// NewBuffer creates a buffer holding at most max events.
func NewBuffer(max int) *Buffer {
	if max < 1 {
		max = 1
	}
	return &Buffer{max: max}
}

// Append adds ev, evicting the oldest events if the buffer is full.
// It returns how many events were evicted and the resulting length.
func (b *Buffer) Append(ev *model.ClickEvent) (dropped int, length int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) >= b.max {
		dropped = len(b.events) - b.max + 1
		n := copy(b.events, b.events[dropped:])
		clear(b.events[n:])
		b.events = b.events[:n]
	}

	b.events = append(b.events, ev)
	return dropped, len(b.events)
}

// Drain removes and returns every buffered event in insertion order.
func (b *Buffer) Drain() []*model.ClickEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return nil
	}
	out := b.events
	b.events = nil
	return out
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Cap returns the maximum number of buffered events.
func (b *Buffer) Cap() int {
	return b.max
}
