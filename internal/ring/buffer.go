// Package ring implements the fixed-capacity scalar history buffer that
// backs per-name lag lookups in the variable store.
package ring

// Buffer is a fixed-capacity, push-newest/drop-oldest sequence of scalars.
// A zero-capacity Buffer is a valid, permanently-empty buffer: callers use
// capacity 0 as a signal that a name requires no history at all, rather than
// allocating a buffer that can never hold anything.
type Buffer struct {
	data []float64
	cap  int
	// head is the index one past the most recently pushed value, mod cap.
	head int
	len  int
}

// New creates a Buffer with the given capacity. Capacity must be >= 0.
func New(capacity int) *Buffer {
	if capacity < 0 {
		panic("ring: negative capacity")
	}
	b := &Buffer{cap: capacity}
	if capacity > 0 {
		b.data = make([]float64, capacity)
	}
	return b
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	if b == nil {
		return 0
	}
	return b.cap
}

// Len returns the number of values currently held, len <= Cap().
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return b.len
}

// Push appends v as the newest value, evicting the oldest value once the
// buffer is at capacity. Pushing into a zero-capacity buffer is a no-op.
func (b *Buffer) Push(v float64) {
	if b == nil || b.cap == 0 {
		return
	}
	b.data[b.head] = v
	b.head = (b.head + 1) % b.cap
	if b.len < b.cap {
		b.len++
	}
}

// GetByLag returns the value stored k steps before the newest value: k=0 is
// the newest, k=1 the previous, and so on. If k is beyond what has been
// pushed (k >= Len()), def is returned instead. k must be non-negative; a
// negative k is a programming error and panics.
func (b *Buffer) GetByLag(k int, def float64) float64 {
	if k < 0 {
		panic("ring: negative lag")
	}
	if b == nil || k >= b.len {
		return def
	}
	// newest value lives at index (head - 1 + cap) % cap.
	idx := (b.head - 1 - k + b.cap*2) % b.cap
	return b.data[idx]
}
