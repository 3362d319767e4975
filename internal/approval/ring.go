package approval

// Ring is a fixed-capacity FIFO. Pushing into a full ring evicts the oldest item.
// Not safe for concurrent use; Gate guards it.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest item
	size  int
}

// NewRing creates a ring holding at most capacity items. Capacity below 1 is treated as 1.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.items) }

// Len returns the number of items held.
func (r *Ring[T]) Len() int { return r.size }

// Push appends item. When full, the oldest item is evicted and returned with true.
func (r *Ring[T]) Push(item T) (evicted T, ok bool) {
	if r.size == len(r.items) {
		evicted = r.items[r.head]
		r.items[r.head] = item
		r.head = (r.head + 1) % len(r.items)
		return evicted, true
	}
	r.items[(r.head+r.size)%len(r.items)] = item
	r.size++
	return evicted, false
}

// Items returns a copy of the held items, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}

// Remove deletes the first item matching pred, preserving the order of the rest.
func (r *Ring[T]) Remove(pred func(T) bool) (removed T, ok bool) {
	items := r.Items()
	idx := -1
	for i, it := range items {
		if pred(it) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return removed, false
	}
	removed = items[idx]

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head, r.size = 0, 0
	for i, it := range items {
		if i != idx {
			r.Push(it)
		}
	}
	return removed, true
}
