package telemetry

// Ring is a fixed-capacity FIFO buffer. Appending past capacity evicts the
// oldest entry. Ring is not safe for concurrent use; the owner serializes
// access.
type Ring[T any] struct {
	data  []T
	head  int
	count int
}

// NewRing creates a ring holding at most capacity entries.
// A capacity below 1 is raised to 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Append inserts v at the tail, evicting the oldest entry when full.
func (r *Ring[T]) Append(v T) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// Recent returns up to n entries, newest first.
func (r *Ring[T]) Recent(n int) []T {
	if n <= 0 || r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	size := len(r.data)
	out := make([]T, n)
	// head is the next write slot, so the newest entry sits at head-1.
	for i := 0; i < n; i++ {
		out[i] = r.data[(r.head-1-i+size)%size]
	}
	return out
}

// Len returns the number of stored entries.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.data) }
