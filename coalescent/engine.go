// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"fmt"
)

// A lineage is an ancestral genome
// tracked by the simulation.
type lineage struct {
	pop   int     // current population
	mask  uint64  // set of descendant samples
	start float64 // time of origin, in generations
}

// A branch is a finished branch
// of a simulated genealogy.
type branch struct {
	mask uint64  // set of descendant samples
	len  float64 // in generations
}

// genealogy simulates the genealogy
// of one sample per population
// going back in time,
// and returns its branches.
//
// Waiting times for coalescence and migration
// are exponential;
// the demographic events of the simulator
// are applied at their fixed times.
func (s *Simulator) genealogy() ([]branch, error) {
	npop := s.tree.Ntips()
	act := make([]*lineage, 0, npop)
	for p := 0; p < npop; p++ {
		act = append(act, &lineage{
			pop:  p,
			mask: 1 << uint(p),
		})
	}

	// migration matrix:
	// mig[i][j] is the rate at which a lineage
	// in population i
	// moves to population j
	// going back in time
	mig := make([][]float64, npop)
	for i := range mig {
		mig[i] = make([]float64, npop)
	}

	br := make([]branch, 0, 2*npop-2)
	var time float64
	evs := s.events
	for len(act) > 1 {
		// per population lineage count
		nLin := make([]int, npop)
		for _, l := range act {
			nLin[l.pop]++
		}

		// coalescence rate per population
		var coal float64
		for _, n := range nLin {
			coal += float64(n*(n-1)) / 2 / (2 * s.ne)
		}

		// migration rate per lineage
		var mg float64
		for _, l := range act {
			for j := 0; j < npop; j++ {
				mg += mig[l.pop][j]
			}
		}

		total := coal + mg
		if total == 0 {
			// lineages in isolated populations:
			// jump to the next demographic event
			if len(evs) == 0 {
				return nil, fmt.Errorf("tree %q: %d lineages unable to coalesce", s.tree.Name(), len(act))
			}
			time = evs[0].time
			act = applyEvent(evs[0], act, mig)
			evs = evs[1:]
			continue
		}

		dt := s.rng.ExpFloat64() / total
		if len(evs) > 0 && time+dt >= evs[0].time {
			time = evs[0].time
			act = applyEvent(evs[0], act, mig)
			evs = evs[1:]
			continue
		}
		time += dt

		u := s.rng.Float64() * total
		if u < coal {
			// coalescence:
			// pick the population
			pop := -1
			for p, n := range nLin {
				u -= float64(n*(n-1)) / 2 / (2 * s.ne)
				if u < 0 {
					pop = p
					break
				}
			}
			if pop < 0 {
				pop = lastPop(nLin)
			}
			act = s.coalesce(act, pop, time, &br)
			continue
		}

		// migration:
		// pick the lineage and the destination
		u -= coal
		for _, l := range act {
			move := false
			for j := 0; j < npop; j++ {
				u -= mig[l.pop][j]
				if u < 0 {
					l.pop = j
					move = true
					break
				}
			}
			if move {
				break
			}
		}
	}

	return br, nil
}

// coalesce joins two random lineages
// of the indicated population.
func (s *Simulator) coalesce(act []*lineage, pop int, time float64, br *[]branch) []*lineage {
	var in []int
	for i, l := range act {
		if l.pop == pop {
			in = append(in, i)
		}
	}

	x := s.rng.Intn(len(in))
	y := s.rng.Intn(len(in) - 1)
	if y >= x {
		y++
	}
	la := act[in[x]]
	lb := act[in[y]]

	*br = append(*br, branch{mask: la.mask, len: time - la.start})
	*br = append(*br, branch{mask: lb.mask, len: time - lb.start})

	na := &lineage{
		pop:   pop,
		mask:  la.mask | lb.mask,
		start: time,
	}

	out := make([]*lineage, 0, len(act)-1)
	for i, l := range act {
		if i == in[x] || i == in[y] {
			continue
		}
		out = append(out, l)
	}
	return append(out, na)
}

// applyEvent applies a demographic event
// to the active lineages
// and the migration matrix.
func applyEvent(e demEvent, act []*lineage, mig [][]float64) []*lineage {
	switch e.kind {
	case divergence:
		for _, l := range act {
			if l.pop == e.source {
				l.pop = e.dest
			}
		}
		// an extinct population
		// does not receive migrants
		for j := range mig[e.source] {
			mig[e.source][j] = 0
			mig[j][e.source] = 0
		}
	case rateChange:
		mig[e.source][e.dest] = e.rate
	}
	return act
}

// lastPop returns the last population
// with at least two lineages.
func lastPop(nLin []int) int {
	last := 0
	for p, n := range nLin {
		if n > 1 {
			last = p
		}
	}
	return last
}
