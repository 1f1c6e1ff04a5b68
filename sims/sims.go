// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package sims implements the enumeration
// and execution of a labeled simulation space.
//
// The space is the cartesian product
// of the sampled trees,
// the subsets of admixture edges,
// the parameter draws per subset,
// and the replicates per draw.
// Labels are written to the database
// before any simulation is run,
// so the counts of each simulation
// can be reproduced from its label alone
// and an interrupted run can be resumed.
package sims

import (
	"fmt"

	"github.com/js-arias/simcat/admix"
	"github.com/js-arias/simcat/coalescent"
	"github.com/js-arias/simcat/countdb"
	"github.com/js-arias/simcat/simdesign"
	"github.com/js-arias/timetree"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/combin"
)

// maximum number of slider proposals
// before giving up on a tree draw
const maxSlides = 100

// A Space is a labeled simulation space
// defined by a species tree
// and a design parameter collection.
type Space struct {
	tree     *admix.Tree
	internal []int
	cands    []admix.Candidate
	combs    [][]int
	d        *simdesign.Design
}

// NewSpace creates a simulation space
// from a time calibrated tree
// and a set of design parameters.
func NewSpace(t *timetree.Tree, d *simdesign.Design) (*Space, error) {
	at, err := admix.New(t, d.Scale())
	if err != nil {
		return nil, err
	}

	cands := at.Candidates()
	var combs [][]int
	if n := d.NEdges(); n > 0 {
		if n > len(cands) {
			return nil, fmt.Errorf("tree %q: %d admixture edges requested, %d candidates", t.Name(), n, len(cands))
		}
		combs = combin.Combinations(len(cands), n)
	} else {
		// a single scenario without admixture
		combs = [][]int{nil}
	}

	return &Space{
		tree:     at,
		internal: at.Internal(),
		cands:    cands,
		combs:    combs,
		d:        d,
	}, nil
}

// NumValues returns the total number of simulations
// in the space.
func (s *Space) NumValues() int64 {
	d := s.d
	return int64(len(s.combs)) * int64(d.NTrees()) * int64(d.NTests()) * int64(d.NReps())
}

// NumCandidates returns the number of candidate
// admixture edges on the species tree.
func (s *Space) NumCandidates() int {
	return len(s.cands)
}

// Metadata returns the database metadata of the space.
// The treeTSV parameter is the source tree collection
// in the TSV format of the timetree package.
func (s *Space) Metadata(treeTSV string) countdb.Metadata {
	ntips := s.tree.Ntips()
	return countdb.Metadata{
		Tree:     treeTSV,
		Internal: s.internal,
		NSnps:    s.d.NSnps(),
		NTips:    ntips,
		NQuarts:  coalescent.NumQuartets(ntips),
		NEdges:   s.d.NEdges(),
		NValues:  s.NumValues(),
		Seed:     s.d.Seed(),
		Scale:    s.d.Scale(),
	}
}

// Enumerate writes the label of every simulation
// of the space into a database.
// Labels are added in blocks
// of the chunk size of the design.
func (s *Space) Enumerate(db *countdb.DB) error {
	d := s.d
	rng := rand.New(rand.NewSource(d.Seed()))

	var block []countdb.Label
	id := int64(0)
	for ti := 0; ti < d.NTrees(); ti++ {
		st, err := s.sampleTree(rng)
		if err != nil {
			return err
		}
		heights := make([]float64, len(s.internal))
		for i, n := range s.internal {
			heights[i] = st.Height(n)
		}

		for _, comb := range s.combs {
			edges := make([]admix.Edge, 0, len(comb))
			for _, c := range comb {
				edges = append(edges, admix.Edge{
					Source: s.cands[c].Source,
					Dest:   s.cands[c].Dest,
				})
			}
			tMin, tMax := d.Theta()
			smp, err := admix.NewSampler(st, edges, tMin, tMax, rng)
			if err != nil {
				return err
			}

			for ts := 0; ts < d.NTests(); ts++ {
				sc := smp.Scenario()
				l := countdb.Label{
					Tree:    ti,
					Theta:   sc.Theta,
					Heights: heights,
					Sources: make([]int, len(sc.Events)),
					Targets: make([]int, len(sc.Events)),
					Props:   make([]float64, len(sc.Events)),
					TStarts: make([]float64, len(sc.Events)),
					TEnds:   make([]float64, len(sc.Events)),
				}
				for i, e := range sc.Events {
					l.Sources[i] = e.Source
					l.Targets[i] = e.Dest
					l.Props[i] = e.Rate
					l.TStarts[i] = e.Start
					l.TEnds[i] = e.End
				}

				for r := 0; r < d.NReps(); r++ {
					l.ID = id
					block = append(block, l)
					id++
					if len(block) == d.Chunk() {
						if err := db.AddLabels(block); err != nil {
							return err
						}
						block = block[:0]
					}
				}
			}
		}
	}
	if len(block) > 0 {
		if err := db.AddLabels(block); err != nil {
			return err
		}
	}
	return nil
}

// sampleTree draws a tree for a label block.
// With the slider function
// the internal node heights are jittered
// until every candidate edge pair
// keeps a time overlap.
func (s *Space) sampleTree(rng *rand.Rand) (*admix.Tree, error) {
	if s.d.Edges() != "slider" {
		return s.tree.Copy(), nil
	}

	for i := 0; i < maxSlides; i++ {
		st := s.tree.NodeSlider(rng)
		if s.keepOverlaps(st) {
			return st, nil
		}
	}
	return nil, fmt.Errorf("tree %q: unable to slide nodes keeping the %d candidate edges", s.tree.Name(), len(s.cands))
}

// keepOverlaps returns true if every candidate pair
// of the base tree
// overlaps in time on the indicated tree.
func (s *Space) keepOverlaps(st *admix.Tree) bool {
	if len(s.cands) == 0 {
		return true
	}
	over := make(map[[2]int]bool, len(s.cands))
	for _, c := range st.Candidates() {
		over[[2]int{c.Source, c.Dest}] = true
	}
	for _, c := range s.cands {
		if !over[[2]int{c.Source, c.Dest}] {
			return false
		}
	}
	return true
}
