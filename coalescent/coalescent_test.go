// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/js-arias/simcat/admix"
	"github.com/js-arias/simcat/coalescent"
	"github.com/js-arias/timetree"
	"golang.org/x/exp/rand"
)

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

func TestSimulator(t *testing.T) {
	nt := makeTree(t, balanced)
	rng := rand.New(rand.NewSource(42))

	sc := admix.Scenario{Theta: 0.0001}
	s, err := coalescent.New(nt, sc, 200, rng)
	if err != nil {
		t.Fatalf("error when creating simulator: %v", err)
	}

	if ne := s.Ne(); ne != 2500 {
		t.Errorf("ne: got %.6f, want %.6f", ne, 2500.0)
	}

	snps, err := s.SNPs()
	if err != nil {
		t.Fatalf("error when simulating: %v", err)
	}
	if len(snps) != 200 {
		t.Fatalf("sites: got %d, want %d", len(snps), 200)
	}
	for i, p := range snps {
		if len(p) != 4 {
			t.Fatalf("site %d: got %d populations, want %d", i, len(p), 4)
		}
		poly := false
		for _, b := range p {
			if b > 3 {
				t.Fatalf("site %d: invalid base code %d", i, b)
			}
			if b != p[0] {
				poly = true
			}
		}
		if !poly {
			t.Fatalf("site %d: pattern %v is not polymorphic", i, p)
		}
	}
}

func TestCounts(t *testing.T) {
	nt := makeTree(t, balanced)
	rng := rand.New(rand.NewSource(42))

	sc := admix.Scenario{Theta: 0.0001}
	s, err := coalescent.New(nt, sc, 500, rng)
	if err != nil {
		t.Fatalf("error when creating simulator: %v", err)
	}

	ms, err := s.Counts()
	if err != nil {
		t.Fatalf("error when simulating: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("matrices: got %d, want %d", len(ms), 1)
	}

	var sum uint32
	for _, r := range ms[0] {
		for _, v := range r {
			sum += v
		}
	}
	if sum != 500 {
		t.Errorf("count sum: got %d, want %d", sum, 500)
	}

	// invariant patterns must not be counted
	for _, b := range []uint8{0, 1, 2, 3} {
		x := 4*b + b
		if v := ms[0][x][x]; v != 0 {
			t.Errorf("cell (%d, %d): got %d invariant sites", x, x, v)
		}
	}

	// on the tree ((a,b),(c,d))
	// the patterns grouping the sister taxa
	// must be the most common ones
	var aabb, abab, abba uint32
	for p := uint8(0); p < 4; p++ {
		for q := uint8(0); q < 4; q++ {
			if p == q {
				continue
			}
			aabb += ms[0][4*p+p][4*q+q]
			abab += ms[0][4*p+q][4*p+q]
			abba += ms[0][4*p+q][4*q+p]
		}
	}
	if aabb <= abab {
		t.Errorf("site patterns: got %d concordant, %d discordant (abab)", aabb, abab)
	}
	if aabb <= abba {
		t.Errorf("site patterns: got %d concordant, %d discordant (abba)", aabb, abba)
	}
}

func TestCountsAdmixture(t *testing.T) {
	nt := makeTree(t, balanced)
	rng := rand.New(rand.NewSource(42))

	ab := nt.Parent(nt.Tip(0))
	cd := nt.Parent(nt.Tip(2))
	sc := admix.Scenario{
		Theta: 0.0001,
		Events: []admix.Event{
			{Source: ab, Dest: cd, Start: 1.5, End: 2.0, Rate: 0.1},
		},
	}
	s, err := coalescent.New(nt, sc, 100, rng)
	if err != nil {
		t.Fatalf("error when creating simulator: %v", err)
	}

	ms, err := s.Counts()
	if err != nil {
		t.Fatalf("error when simulating: %v", err)
	}

	var sum uint32
	for _, r := range ms[0] {
		for _, v := range r {
			sum += v
		}
	}
	if sum != 100 {
		t.Errorf("count sum: got %d, want %d", sum, 100)
	}
}

func TestSimulatorSeed(t *testing.T) {
	nt := makeTree(t, balanced)

	var ms [2][]coalescent.Matrix
	for i := range ms {
		rng := rand.New(rand.NewSource(9917))
		sc := admix.Scenario{Theta: 0.0001}
		s, err := coalescent.New(nt, sc, 100, rng)
		if err != nil {
			t.Fatalf("error when creating simulator: %v", err)
		}
		m, err := s.Counts()
		if err != nil {
			t.Fatalf("error when simulating: %v", err)
		}
		ms[i] = m
	}

	if !reflect.DeepEqual(ms[0], ms[1]) {
		t.Errorf("same seed: different count matrices")
	}
}

func TestSimulatorErrors(t *testing.T) {
	nt := makeTree(t, balanced)
	rng := rand.New(rand.NewSource(42))

	if _, err := coalescent.New(nt, admix.Scenario{Theta: 0}, 100, rng); err == nil {
		t.Errorf("expecting error for an invalid theta")
	}
	if _, err := coalescent.New(nt, admix.Scenario{Theta: 0.01}, 0, rng); err == nil {
		t.Errorf("expecting error for an invalid nsnps")
	}
}
