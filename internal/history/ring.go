// Package history provides a fixed-capacity ring buffer for bounded sample
// histories. Pushing into a full ring evicts the oldest element and returns
// it, so callers that keep indices into the history (sleep-onset detection)
// can account for the shift.
package history

// Ring is a fixed-capacity FIFO over elements of type T.
// Not safe for concurrent use; the control loop owns all histories.
type Ring[T any] struct {
	buf      []T
	capacity int
	head     int // next write position
	count    int
}

// NewRing creates an empty ring with the given capacity.
// Capacity must be at least 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends v. If the ring is full the oldest element is evicted and
// returned with ok=true.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	if r.count == r.capacity {
		evicted = r.buf[r.head]
		ok = true
		r.buf[r.head] = v
		r.head = (r.head + 1) % r.capacity
		return evicted, ok
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % r.capacity
	r.count++
	return evicted, false
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// At returns the element at index i, where 0 is the oldest stored element.
// Panics if i is out of range, matching slice semantics.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("history: index out of range")
	}
	start := (r.head - r.count + r.capacity) % r.capacity
	return r.buf[(start+i)%r.capacity]
}

// Last returns up to n of the most recent elements, oldest first.
// The returned slice is a copy.
func (r *Ring[T]) Last(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.count - n + i)
	}
	return out
}

// Values returns all stored elements, oldest first, as a copy.
func (r *Ring[T]) Values() []T {
	return r.Last(r.count)
}

// Clear discards all stored elements.
func (r *Ring[T]) Clear() {
	r.head = 0
	r.count = 0
}
