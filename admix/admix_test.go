// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package admix_test

import (
	"math"
	"strings"
	"testing"

	"github.com/js-arias/simcat/admix"
	"github.com/js-arias/timetree"
	"golang.org/x/exp/rand"
)

// Test tree:
// four terminals,
// branch lengths in million years,
// so with a scale of one million years
// per coalescent unit
// the heights are:
// (a,b) = 1.0,
// (c,d) = 1.5,
// root  = 2.0.
const balanced = "((a:1,b:1):1,(c:1.5,d:1.5):0.5);"

func makeTree(t testing.TB, newick string) *admix.Tree {
	t.Helper()

	c, err := timetree.Newick(strings.NewReader(newick), "sim-tree", 0)
	if err != nil {
		t.Fatalf("error when reading newick tree: %v", err)
	}
	tt := c.Tree(c.Names()[0])

	nt, err := admix.New(tt, 1_000_000)
	if err != nil {
		t.Fatalf("error when creating tree: %v", err)
	}
	return nt
}

func TestTree(t *testing.T) {
	nt := makeTree(t, balanced)

	if nt.Ntips() != 4 {
		t.Fatalf("tips: got %d, want %d", nt.Ntips(), 4)
	}

	// populations are assigned by alphabetical order
	taxa := []string{"a", "b", "c", "d"}
	for p, tax := range taxa {
		n := nt.Tip(p)
		if got := nt.Taxon(n); got != tax {
			t.Errorf("population %d: got taxon %q, want %q", p, got, tax)
		}
		if got, ok := nt.Pop(n); !ok || got != p {
			t.Errorf("taxon %q: got population %d, want %d", tax, got, p)
		}
		if h := nt.Height(n); h != 0 {
			t.Errorf("taxon %q: got height %.6f, want %.6f", tax, h, 0.0)
		}
	}

	ab := nt.Parent(nt.Tip(0))
	cd := nt.Parent(nt.Tip(2))
	root := nt.Root()

	heights := map[int]float64{
		ab:   1.0,
		cd:   1.5,
		root: 2.0,
	}
	for n, want := range heights {
		if h := nt.Height(n); math.Abs(h-want) > 1e-6 {
			t.Errorf("node %d: got height %.6f, want %.6f", n, h, want)
		}
	}

	minPops := map[int]int{
		ab:   0,
		cd:   2,
		root: 0,
	}
	for n, want := range minPops {
		if p := nt.MinPop(n); p != want {
			t.Errorf("node %d: got min population %d, want %d", n, p, want)
		}
	}

	if ls := nt.Internal(); len(ls) != 3 {
		t.Errorf("internal nodes: got %d, want %d", len(ls), 3)
	}
}

func TestTreeErrors(t *testing.T) {
	c, err := timetree.Newick(strings.NewReader("(a:1,b:1);"), "small", 0)
	if err != nil {
		t.Fatalf("error when reading newick tree: %v", err)
	}
	tt := c.Tree(c.Names()[0])

	if _, err := admix.New(tt, 1_000_000); err == nil {
		t.Errorf("expecting error for a tree with %d terminals", 2)
	}

	c, err = timetree.Newick(strings.NewReader(balanced), "sim-tree", 0)
	if err != nil {
		t.Fatalf("error when reading newick tree: %v", err)
	}
	tt = c.Tree(c.Names()[0])
	if _, err := admix.New(tt, 0); err == nil {
		t.Errorf("expecting error for an invalid scale")
	}
}

func TestCandidates(t *testing.T) {
	nt := makeTree(t, balanced)

	cs := nt.Candidates()
	if len(cs) != 18 {
		t.Errorf("candidates: got %d, want %d", len(cs), 18)
	}

	ab := nt.Parent(nt.Tip(0))
	cd := nt.Parent(nt.Tip(2))

	over := make(map[[2]int]admix.Candidate, len(cs))
	for _, c := range cs {
		over[[2]int{c.Source, c.Dest}] = c
	}

	// both directions must be present
	pairs := [][2]int{
		{ab, cd},
		{cd, ab},
		{nt.Tip(2), ab},
		{ab, nt.Tip(2)},
	}
	wants := [][2]float64{
		{1.5, 2.0},
		{1.5, 2.0},
		{1.0, 1.5},
		{1.0, 1.5},
	}
	for i, p := range pairs {
		c, ok := over[p]
		if !ok {
			t.Errorf("pair (%d, %d): not found", p[0], p[1])
			continue
		}
		if math.Abs(c.Start-wants[i][0]) > 1e-6 || math.Abs(c.End-wants[i][1]) > 1e-6 {
			t.Errorf("pair (%d, %d): got interval [%.6f, %.6f], want [%.6f, %.6f]", p[0], p[1], c.Start, c.End, wants[i][0], wants[i][1])
		}
	}

	// a and the (c,d) node do not overlap
	if _, ok := over[[2]int{nt.Tip(0), cd}]; ok {
		t.Errorf("pair (%d, %d): should not overlap", nt.Tip(0), cd)
	}
}

func TestNodeSlider(t *testing.T) {
	nt := makeTree(t, balanced)
	rng := rand.New(rand.NewSource(11))

	root := nt.Root()
	for i := 0; i < 100; i++ {
		st := nt.NodeSlider(rng)
		if h := st.Height(root); math.Abs(h-2.0) > 1e-6 {
			t.Fatalf("replicate %d: root height: got %.6f, want %.6f", i, h, 2.0)
		}
		for _, n := range st.Nodes() {
			if n == root {
				continue
			}
			if st.IsTerm(n) {
				if h := st.Height(n); h != 0 {
					t.Fatalf("replicate %d: node %d: terminal height: got %.6f, want %.6f", i, n, h, 0.0)
				}
				continue
			}
			h := st.Height(n)
			if ph := st.Height(st.Parent(n)); h >= ph {
				t.Fatalf("replicate %d: node %d: height %.6f over its parent (%.6f)", i, n, h, ph)
			}
			for _, c := range st.Children(n) {
				if ch := st.Height(c); ch >= h {
					t.Fatalf("replicate %d: node %d: height %.6f under its child (%.6f)", i, n, h, ch)
				}
			}
		}

		// the source tree must be untouched
		ab := nt.Parent(nt.Tip(0))
		if h := nt.Height(ab); math.Abs(h-1.0) > 1e-6 {
			t.Fatalf("replicate %d: source tree modified: got height %.6f, want %.6f", i, h, 1.0)
		}
	}
}

func TestNodeMultiplier(t *testing.T) {
	nt := makeTree(t, balanced)

	mt := nt.NodeMultiplier(1.0)
	if h := mt.Height(mt.Root()); math.Abs(h-1.0) > 1e-6 {
		t.Errorf("root height: got %.6f, want %.6f", h, 1.0)
	}
	ab := mt.Parent(mt.Tip(0))
	if h := mt.Height(ab); math.Abs(h-0.5) > 1e-6 {
		t.Errorf("node height: got %.6f, want %.6f", h, 0.5)
	}
}
