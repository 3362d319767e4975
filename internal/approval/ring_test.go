package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_PushEvictsOldest(t *testing.T) {
	r := NewRing[int](3)

	for i := 1; i <= 3; i++ {
		_, full := r.Push(i)
		assert.False(t, full)
	}
	assert.Equal(t, []int{1, 2, 3}, r.Items())

	evicted, full := r.Push(4)
	assert.True(t, full)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []int{2, 3, 4}, r.Items())
	assert.Equal(t, 3, r.Len())
}

func TestRing_RemovePreservesOrder(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 6; i++ { // wraps: holds 3,4,5,6
		r.Push(i)
	}

	got, ok := r.Remove(func(v int) bool { return v == 4 })
	assert.True(t, ok)
	assert.Equal(t, 4, got)
	assert.Equal(t, []int{3, 5, 6}, r.Items())

	_, ok = r.Remove(func(v int) bool { return v == 4 })
	assert.False(t, ok)

	r.Push(7)
	r.Push(8)
	assert.Equal(t, []int{5, 6, 7, 8}, r.Items())
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing[string](0)
	assert.Equal(t, 1, r.Cap())

	r.Push("a")
	evicted, full := r.Push("b")
	assert.True(t, full)
	assert.Equal(t, "a", evicted)
}
