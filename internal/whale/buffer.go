// internal/whale/buffer.go
package whale

import (
	"sync"
)

// DefaultCapacity is how many recent events are retained.
const DefaultCapacity = 50

// Buffer is a fixed-capacity ring of the most recent events. When full,
// appending evicts the oldest entry.
type Buffer struct {
	mu    sync.Mutex
	items []Event
	head  int // index of the oldest entry
	size  int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{items: make([]Event, capacity)}
}

// Append stores e, evicting the oldest event when at capacity.
func (b *Buffer) Append(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.items)
	if b.size < capacity {
		b.items[(b.head+b.size)%capacity] = e
		b.size++
		return
	}
	b.items[b.head] = e
	b.head = (b.head + 1) % capacity
}

// Snapshot returns a copy of the retained events, oldest first.
func (b *Buffer) Snapshot() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *Buffer) Cap() int {
	return len(b.items)
}
