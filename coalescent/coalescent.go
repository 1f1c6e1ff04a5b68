// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package coalescent implements a structured coalescent simulation
// on a species tree with admixture events,
// reducing the simulated genotypes
// into site pattern count matrices.
//
// The simulation samples a single haploid genome
// per terminal population.
// Going back in time,
// lineages coalesce within a population,
// migrate between populations
// connected by an active admixture edge,
// and are merged by the divergence events
// defined by the species tree.
package coalescent

import (
	"fmt"
	"math"
	"slices"

	"github.com/js-arias/simcat/admix"
	"golang.org/x/exp/rand"
)

// Simulation constants.
// The effective population size
// is derived from theta
// and the fixed per site mutation rate.
const (
	mutRate  = 1e-8 // per site, per generation
	locusLen = 1000 // sites per simulated locus

	// maximum number of simulated loci
	// per polymorphic site
	// before giving up
	maxTries = 100
)

// An eventKind is the type of a demographic event.
type eventKind int

const (
	// all lineages of a population
	// move into another population
	divergence eventKind = iota

	// the migration rate between two populations
	// is set to a new value
	rateChange
)

// A demEvent is a demographic event
// at a fixed point in time.
type demEvent struct {
	time float64 // in generations
	kind eventKind

	source, dest int
	rate         float64
}

// A Simulator runs coalescent simulations
// for a single parameter draw
// on a species tree.
type Simulator struct {
	tree  *admix.Tree
	nsnps int

	ne     float64
	events []demEvent

	rng *rand.Rand
}

// New creates a new simulator
// for the indicated scenario,
// that will sample nsnps polymorphic sites
// per simulation.
func New(t *admix.Tree, sc admix.Scenario, nsnps int, rng *rand.Rand) (*Simulator, error) {
	if sc.Theta <= 0 {
		return nil, fmt.Errorf("tree %q: invalid theta value: %.6g", t.Name(), sc.Theta)
	}
	if nsnps < 1 {
		return nil, fmt.Errorf("tree %q: invalid nsnps value: %d", t.Name(), nsnps)
	}
	if t.Ntips() > 64 {
		return nil, fmt.Errorf("tree %q: got %d terminals, at most 64 supported", t.Name(), t.Ntips())
	}

	s := &Simulator{
		tree:  t,
		nsnps: nsnps,
		ne:    sc.Theta / mutRate / 4,
		rng:   rng,
	}
	s.setEvents(sc)

	return s, nil
}

// Ne returns the effective population size
// used in the simulations.
func (s *Simulator) Ne() float64 {
	return s.ne
}

// setEvents builds the time sorted list
// of demographic events
// from the species tree
// and the admixture events of a scenario.
//
// At a divergence the lineages of each child population
// are moved into the population
// with the smallest ID among the node descendants,
// so the populations of an admixture event
// are identified by the smallest descendant
// of its source and destination nodes.
func (s *Simulator) setEvents(sc admix.Scenario) {
	t := s.tree
	gen := 2 * s.ne // generations per coalescent unit

	var evs []demEvent
	for _, n := range t.Internal() {
		dest := t.MinPop(n)
		for _, c := range t.Children(n) {
			p := t.MinPop(c)
			if p == dest {
				continue
			}
			evs = append(evs, demEvent{
				time:   t.Height(n) * gen,
				kind:   divergence,
				source: p,
				dest:   dest,
			})
		}
	}

	for _, e := range sc.Events {
		src := t.MinPop(e.Source)
		dst := t.MinPop(e.Dest)
		evs = append(evs, demEvent{
			time:   e.Start * gen,
			kind:   rateChange,
			source: src,
			dest:   dst,
			rate:   e.Rate,
		})
		evs = append(evs, demEvent{
			time: e.End * gen,
			kind: rateChange,
			// rate 0: migration is turned off
			source: src,
			dest:   dst,
		})
	}

	slices.SortStableFunc(evs, func(a, b demEvent) int {
		if a.time < b.time {
			return -1
		}
		if a.time > b.time {
			return 1
		}
		return 0
	})
	s.events = evs
}

// SNPs simulates loci
// until nsnps polymorphic sites are sampled,
// and returns the site patterns
// as rows of base codes
// (in 0-3 form),
// one column per population.
func (s *Simulator) SNPs() ([][]uint8, error) {
	snps := make([][]uint8, 0, s.nsnps)
	tries := 0
	for len(snps) < s.nsnps {
		if tries > s.nsnps*maxTries {
			return nil, fmt.Errorf("tree %q: %d simulated loci for %d polymorphic sites", s.tree.Name(), tries, len(snps))
		}
		tries++

		p, err := s.site()
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		snps = append(snps, p)
	}
	return snps, nil
}

// Counts runs a full simulation
// and returns the site pattern count matrix
// of each four taxon subset of the tree.
func (s *Simulator) Counts() ([]Matrix, error) {
	snps, err := s.SNPs()
	if err != nil {
		return nil, err
	}
	return CountMatrices(snps, s.tree.Ntips()), nil
}

// site simulates a single locus
// and returns its site pattern,
// or nil if the locus is invariant.
func (s *Simulator) site() ([]uint8, error) {
	br, err := s.genealogy()
	if err != nil {
		return nil, err
	}

	var sum float64
	for _, b := range br {
		sum += b.len
	}

	// probability of at least one mutation
	// on the genealogy
	lambda := mutRate * locusLen * sum
	if s.rng.Float64() < math.Exp(-lambda) {
		return nil, nil
	}

	// pick the mutated branch
	// proportional to its length
	u := s.rng.Float64() * sum
	mut := br[len(br)-1]
	for _, b := range br {
		u -= b.len
		if u < 0 {
			mut = b
			break
		}
	}

	// mutate under a Jukes-Cantor model:
	// a random ancestral base,
	// and a derived base
	// for the populations below the mutation
	anc := uint8(s.rng.Intn(4))
	der := (anc + 1 + uint8(s.rng.Intn(3))) % 4

	ntips := s.tree.Ntips()
	p := make([]uint8, ntips)
	for i := 0; i < ntips; i++ {
		if mut.mask&(1<<uint(i)) != 0 {
			p[i] = der
			continue
		}
		p[i] = anc
	}
	return p, nil
}
