// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package admix implements the sampling
// of admixture scenarios
// on a fixed species tree topology
// with branch lengths in coalescent units.
package admix

import (
	"fmt"
	"slices"

	"github.com/js-arias/timetree"
)

// A Tree is a species tree
// with node heights in coalescent units.
//
// Each terminal is assigned a population ID
// (by the alphabetical order of the taxon names)
// that is used as its population
// in the coalescent simulations.
type Tree struct {
	t      *timetree.Tree
	height map[int]float64 // nodeID -> height in coalescent units
	pop    map[int]int     // terminal nodeID -> population
	tips   []int           // nodeID of each population
	minPop map[int]int     // nodeID -> smallest descendant population
}

// New creates a new species tree
// from a time calibrated tree,
// scaling node ages by the indicated number of years
// per coalescent unit.
func New(t *timetree.Tree, scale float64) (*Tree, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("tree %q: invalid scale value: %.6g", t.Name(), scale)
	}
	terms := t.Terms()
	if len(terms) < 4 {
		return nil, fmt.Errorf("tree %q: got %d terminals, at least 4 required", t.Name(), len(terms))
	}
	slices.Sort(terms)

	nt := &Tree{
		t:      t,
		height: make(map[int]float64, len(t.Nodes())),
		pop:    make(map[int]int, len(terms)),
		tips:   make([]int, len(terms)),
		minPop: make(map[int]int, len(t.Nodes())),
	}
	for _, n := range t.Nodes() {
		nt.height[n] = float64(t.Age(n)) / scale
	}
	for i, tax := range terms {
		id, ok := t.TaxNode(tax)
		if !ok {
			return nil, fmt.Errorf("tree %q: taxon %q without node", t.Name(), tax)
		}
		nt.pop[id] = i
		nt.tips[i] = id
	}
	nt.setMinPop(t.Root())

	return nt, nil
}

// setMinPop stores the smallest descendant population
// of each node.
// At the time a divergence happens
// the lineages of a node are already assigned
// to the population of one of its descendants.
func (t *Tree) setMinPop(n int) int {
	if t.t.IsTerm(n) {
		t.minPop[n] = t.pop[n]
		return t.pop[n]
	}

	min := len(t.tips)
	for _, c := range t.t.Children(n) {
		p := t.setMinPop(c)
		if p < min {
			min = p
		}
	}
	t.minPop[n] = min
	return min
}

// Children returns the IDs of the children
// of the indicated node.
func (t *Tree) Children(n int) []int {
	return t.t.Children(n)
}

// Height returns the height,
// in coalescent units,
// of the indicated node.
func (t *Tree) Height(n int) float64 {
	return t.height[n]
}

// Internal returns the IDs of the internal nodes
// of the tree in increasing order.
func (t *Tree) Internal() []int {
	var ns []int
	for _, n := range t.t.Nodes() {
		if t.t.IsTerm(n) {
			continue
		}
		ns = append(ns, n)
	}
	slices.Sort(ns)
	return ns
}

// IsTerm returns true if the indicated node
// is a terminal of the tree.
func (t *Tree) IsTerm(n int) bool {
	return t.t.IsTerm(n)
}

// MinPop returns the smallest population ID
// among the descendants of the indicated node.
func (t *Tree) MinPop(n int) int {
	return t.minPop[n]
}

// Name returns the name of the tree.
func (t *Tree) Name() string {
	return t.t.Name()
}

// Nodes returns the IDs of the nodes of the tree.
func (t *Tree) Nodes() []int {
	ns := slices.Clone(t.t.Nodes())
	slices.Sort(ns)
	return ns
}

// Ntips returns the number of terminals
// (i.e. populations)
// of the tree.
func (t *Tree) Ntips() int {
	return len(t.tips)
}

// Parent returns the ID of the parent
// of the indicated node.
func (t *Tree) Parent(n int) int {
	return t.t.Parent(n)
}

// Pop returns the population ID
// of a terminal node.
func (t *Tree) Pop(n int) (int, bool) {
	p, ok := t.pop[n]
	return p, ok
}

// Root returns the ID of the root node.
func (t *Tree) Root() int {
	return t.t.Root()
}

// SetHeight sets the height,
// in coalescent units,
// of an internal node.
func (t *Tree) SetHeight(n int, h float64) error {
	if t.t.IsTerm(n) {
		return fmt.Errorf("tree %q: node %d is a terminal", t.t.Name(), n)
	}
	if h <= 0 {
		return fmt.Errorf("tree %q: node %d: invalid height value: %.6g", t.t.Name(), n, h)
	}
	t.height[n] = h
	return nil
}

// Taxon returns the taxon name
// of a terminal node.
func (t *Tree) Taxon(n int) string {
	return t.t.Taxon(n)
}

// Tip returns the terminal node ID
// of the indicated population.
func (t *Tree) Tip(pop int) int {
	return t.tips[pop]
}

// A Candidate is a pair of tree branches
// that overlap in time,
// so an admixture edge can connect them.
// Source and Dest are the node IDs
// at the base of each branch,
// and the interval [Start, End]
// is the time overlap of the two branches
// in coalescent units.
type Candidate struct {
	Source, Dest int
	Start, End   float64
}

// Candidates returns all possible admixture edges on a tree.
// Edges are unidirectional,
// so both directions of a branch pair are reported.
func (t *Tree) Candidates() []Candidate {
	root := t.t.Root()
	ns := t.Nodes()

	var cs []Candidate
	for _, sn := range ns {
		if sn == root {
			continue
		}
		sMin := t.height[sn]
		sMax := t.height[t.t.Parent(sn)]
		for _, dn := range ns {
			if dn == root || dn == sn {
				continue
			}
			dMin := t.height[dn]
			dMax := t.height[t.t.Parent(dn)]

			low := max(sMin, dMin)
			top := min(sMax, dMax)
			if top <= low {
				continue
			}
			cs = append(cs, Candidate{
				Source: sn,
				Dest:   dn,
				Start:  low,
				End:    top,
			})
		}
	}
	slices.SortFunc(cs, func(a, b Candidate) int {
		if d := a.Source - b.Source; d != 0 {
			return d
		}
		return a.Dest - b.Dest
	})
	return cs
}

// Copy returns a copy of the tree
// sharing the underlying topology.
func (t *Tree) Copy() *Tree {
	nt := &Tree{
		t:      t.t,
		height: make(map[int]float64, len(t.height)),
		pop:    t.pop,
		tips:   t.tips,
		minPop: t.minPop,
	}
	for n, h := range t.height {
		nt.height[n] = h
	}
	return nt
}
