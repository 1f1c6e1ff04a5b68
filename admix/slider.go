// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package admix

import (
	"golang.org/x/exp/rand"
)

// NodeSlider returns a copy of the tree
// with the height of each internal node
// sampled uniformly between the height
// of its highest child
// and the height of its parent.
// The topology
// and the height of the root
// are retained.
func (t *Tree) NodeSlider(rng *rand.Rand) *Tree {
	nt := t.Copy()
	root := t.t.Root()
	for _, c := range t.t.Children(root) {
		nt.slide(c, rng)
	}
	return nt
}

// slide moves the height of a node
// and then of its descendants,
// so the height of the parent
// is already updated when a node is visited.
func (t *Tree) slide(n int, rng *rand.Rand) {
	if t.t.IsTerm(n) {
		return
	}

	var top float64
	for _, c := range t.t.Children(n) {
		if h := t.height[c]; h > top {
			top = h
		}
	}
	ph := t.height[t.t.Parent(n)]
	t.height[n] = top + rng.Float64()*(ph-top)

	for _, c := range t.t.Children(n) {
		t.slide(c, rng)
	}
}

// NodeMultiplier returns a copy of the tree
// rescaled so the height of the root
// is equal to the indicated value.
func (t *Tree) NodeMultiplier(height float64) *Tree {
	nt := t.Copy()
	root := t.t.Root()
	f := height / t.height[root]
	for n, h := range t.height {
		nt.height[n] = h * f
	}
	return nt
}
