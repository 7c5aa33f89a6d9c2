package engine

import "math/rand"

// choiceTree is a binary-indexed segment tree over reaction propensities,
// supporting O(log R) update and O(log R) weighted sampling. Grounded
// directly on original_source/src/gillespie.rs's ChoiceTree: a complete
// binary tree sized to the next power of two, where updating one leaf
// propagates the delta to every ancestor, and sampling walks from the
// root comparing the draw against the right child's stored weight.
type choiceTree struct {
	data      []float64
	allocSize int
	size      int
}

// newChoiceTree builds an empty tree over size leaves, all zero-weighted.
func newChoiceTree(size int) *choiceTree {
	alloc := nextPowerOfTwo(size)
	return &choiceTree{
		data:      make([]float64, alloc*2-1),
		allocSize: alloc,
		size:      size,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// update sets leaf idx's weight to value, propagating the delta to the
// root.
func (t *choiceTree) update(idx int, value float64) {
	pos := t.allocSize + idx
	old := t.data[pos-1]
	delta := value - old
	for pos > 0 {
		t.data[pos-1] += delta
		pos /= 2
	}
}

// total returns the sum of all leaf weights (the Gillespie a_0).
func (t *choiceTree) total() float64 {
	return t.data[0]
}

// sample draws a leaf index weighted by its stored propensity.
func (t *choiceTree) sample(r *rand.Rand) int {
	idx := 1
	choice := r.Float64() * t.data[0]
	for idx*2 < len(t.data) {
		rightWeight := t.data[2*idx]
		if choice < rightWeight {
			idx = 2*idx + 1
		} else {
			choice -= rightWeight
			idx = 2 * idx
		}
	}
	return idx - t.allocSize
}
