// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package admix

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// An Edge is an admixture edge proposal
// between the branches of two nodes.
// If Fixed is false,
// the migration interval and rate
// will be sampled;
// otherwise the given values are used,
// and the interval must be inside the time overlap
// of the two branches.
type Edge struct {
	Source, Dest int // node IDs

	Start, End float64 // migration interval, coalescent units
	Rate       float64 // migration rate
	Fixed      bool
}

// An Event is a realized admixture event.
type Event struct {
	Source, Dest int     // node IDs
	Start, End   float64 // migration interval, coalescent units
	Rate         float64 // migration rate
}

// A Scenario is a sampled parameter set
// for a single simulation.
type Scenario struct {
	Theta  float64
	Events []Event
}

// Migration rates are sampled from an exponential
// and truncated.
const meanRate = 0.1
const maxRate = 0.99

// A Sampler draws simulation parameters
// for a set of admixture edges
// on a species tree.
type Sampler struct {
	t     *Tree
	edges []Edge
	over  map[[2]int]Candidate

	theta distuv.Uniform
	rate  distuv.Exponential
	rng   *rand.Rand
}

// NewSampler creates a sampler
// for the indicated admixture edges,
// with theta drawn uniformly
// in the range [thetaMin, thetaMax].
func NewSampler(t *Tree, edges []Edge, thetaMin, thetaMax float64, rng *rand.Rand) (*Sampler, error) {
	if thetaMin <= 0 || thetaMax < thetaMin {
		return nil, fmt.Errorf("tree %q: invalid theta range: %.6g-%.6g", t.Name(), thetaMin, thetaMax)
	}

	over := make(map[[2]int]Candidate)
	for _, c := range t.Candidates() {
		over[[2]int{c.Source, c.Dest}] = c
	}

	for _, e := range edges {
		c, ok := over[[2]int{e.Source, e.Dest}]
		if !ok {
			return nil, fmt.Errorf("tree %q: branches %d and %d do not overlap in time", t.Name(), e.Source, e.Dest)
		}
		if !e.Fixed {
			continue
		}
		if e.Start >= e.End {
			return nil, fmt.Errorf("tree %q: admixture edge (%d, %d): invalid migration interval [%.6g, %.6g]", t.Name(), e.Source, e.Dest, e.Start, e.End)
		}
		if e.Start < c.Start || e.End > c.End {
			return nil, fmt.Errorf("tree %q: admixture edge (%d, %d): migration interval [%.6g, %.6g] outside branch overlap [%.6g, %.6g]", t.Name(), e.Source, e.Dest, e.Start, e.End, c.Start, c.End)
		}
		if e.Rate < 0 || e.Rate > 1 {
			return nil, fmt.Errorf("tree %q: admixture edge (%d, %d): invalid migration rate: %.6g", t.Name(), e.Source, e.Dest, e.Rate)
		}
	}

	return &Sampler{
		t:     t,
		edges: edges,
		over:  over,
		theta: distuv.Uniform{
			Min: thetaMin,
			Max: thetaMax,
			Src: rng,
		},
		rate: distuv.Exponential{
			Rate: 1 / meanRate,
			Src:  rng,
		},
		rng: rng,
	}, nil
}

// Tree returns the species tree used by the sampler.
func (s *Sampler) Tree() *Tree {
	return s.t
}

// Scenario draws the parameter set
// for a single simulation.
func (s *Sampler) Scenario() Scenario {
	sc := Scenario{
		Theta:  s.theta.Rand(),
		Events: make([]Event, 0, len(s.edges)),
	}
	for _, e := range s.edges {
		if e.Fixed {
			sc.Events = append(sc.Events, Event{
				Source: e.Source,
				Dest:   e.Dest,
				Start:  e.Start,
				End:    e.End,
				Rate:   e.Rate,
			})
			continue
		}

		rate := s.rate.Rand()
		if rate > maxRate {
			rate = maxRate
		}

		c := s.over[[2]int{e.Source, e.Dest}]
		u := distuv.Uniform{
			Min: c.Start,
			Max: c.End,
			Src: s.rng,
		}
		t0 := u.Rand()
		t1 := u.Rand()
		if t1 < t0 {
			t0, t1 = t1, t0
		}

		sc.Events = append(sc.Events, Event{
			Source: e.Source,
			Dest:   e.Dest,
			Start:  t0,
			End:    t1,
			Rate:   rate,
		})
	}
	return sc
}

// Scenarios draws the parameter sets
// for n simulations.
func (s *Sampler) Scenarios(n int) []Scenario {
	sc := make([]Scenario, n)
	for i := range sc {
		sc[i] = s.Scenario()
	}
	return sc
}
