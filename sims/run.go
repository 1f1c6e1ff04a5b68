// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package sims

import (
	"fmt"

	"github.com/js-arias/simcat/coalescent"
	"github.com/js-arias/simcat/countdb"
	"golang.org/x/exp/rand"
)

var numCPU = 1

// SetCPU sets the number of process
// used for the simulations.
func SetCPU(cpu int) {
	numCPU = cpu
}

// mix spreads the label ID over the seed space,
// so each simulation uses its own random stream.
const mix = 0x9e3779b97f4a7c15

type answer struct {
	id     int64
	counts []coalescent.Matrix
	err    error
}

// Run simulates every label of the database
// without stored counts
// and stores the resulting count matrices.
// It is an error if the database
// does not store the label of every simulation
// of the space.
// Labels are dispatched to the workers
// in blocks of the chunk size of the design;
// a finished block is reported
// with the number of simulations done so far.
func (s *Space) Run(db *countdb.DB, report func(done, total int64)) error {
	m := db.Metadata()
	if m.NValues != s.NumValues() {
		return fmt.Errorf("database with %d simulations, space with %d", m.NValues, s.NumValues())
	}
	if m.NSnps != s.d.NSnps() {
		return fmt.Errorf("database with %d sites, design with %d", m.NSnps, s.d.NSnps())
	}
	if m.NTips != s.tree.Ntips() {
		return fmt.Errorf("database with %d terminals, tree with %d", m.NTips, s.tree.Ntips())
	}
	if m.Scale != s.d.Scale() {
		return fmt.Errorf("database with scale %.6g, design with %.6g", m.Scale, s.d.Scale())
	}

	// an interrupted enumeration
	// leaves a database with a label prefix
	nl, err := db.NumLabels()
	if err != nil {
		return err
	}
	if nl != m.NValues {
		return fmt.Errorf("database with %d of %d labels: enumeration incomplete", nl, m.NValues)
	}

	total := s.NumValues()
	done, err := db.Checkpoint()
	if err != nil {
		return err
	}

	for done < total {
		end := done + int64(s.d.Chunk())
		if end > total {
			end = total
		}
		ls, err := db.Labels(done, end)
		if err != nil {
			return err
		}

		jobs := make(chan countdb.Label, numCPU*2)
		ans := make(chan answer, numCPU*2)
		for i := 0; i < numCPU; i++ {
			go s.worker(jobs, ans, m.Seed)
		}
		go func() {
			for _, l := range ls {
				jobs <- l
			}
			close(jobs)
		}()

		var failed error
		for range ls {
			a := <-ans
			if a.err != nil {
				if failed == nil {
					failed = a.err
				}
				continue
			}
			if err := db.AddCounts(a.id, a.counts); err != nil {
				if failed == nil {
					failed = err
				}
			}
		}
		if failed != nil {
			return failed
		}

		done = end
		if report != nil {
			report(done, total)
		}
	}
	return nil
}

func (s *Space) worker(jobs chan countdb.Label, ans chan answer, seed uint64) {
	for l := range jobs {
		c, err := s.simulate(l, seed)
		ans <- answer{
			id:     l.ID,
			counts: c,
			err:    err,
		}
	}
}

// simulate runs the coalescent simulation of a label.
// The seed of the database is used,
// so the counts are a function of the label alone.
func (s *Space) simulate(l countdb.Label, seed uint64) ([]coalescent.Matrix, error) {
	if len(l.Heights) != len(s.internal) {
		return nil, fmt.Errorf("label %d: got %d node heights, want %d", l.ID, len(l.Heights), len(s.internal))
	}

	t := s.tree.Copy()
	for i, n := range s.internal {
		if err := t.SetHeight(n, l.Heights[i]); err != nil {
			return nil, fmt.Errorf("label %d: %v", l.ID, err)
		}
	}

	sc, err := l.Scenario()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed + uint64(l.ID)*mix))
	sim, err := coalescent.New(t, sc, s.d.NSnps(), rng)
	if err != nil {
		return nil, fmt.Errorf("label %d: %v", l.ID, err)
	}
	cm, err := sim.Counts()
	if err != nil {
		return nil, fmt.Errorf("label %d: %v", l.ID, err)
	}
	return cm, nil
}
