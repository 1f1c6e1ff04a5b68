// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package simdesign implements reading and writing
// of the SimCat parameters for a simulation design.
//
// A simulation design defines the size of the space
// of labeled simulations:
// the number of admixture edges per scenario,
// the number of sampled trees,
// parameter draws,
// and replicates,
// as well as the sampling range of the mutation parameter theta.
package simdesign

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Param is a keyword to identify
// the type of parameter in a design file.
type Param string

// Valid parameters.
const (
	// Chunk is the number of simulations
	// dispatched to a worker as a single job.
	Chunk Param = "chunk"

	// Edges is the function used to sample branch lengths
	// on the input topology.
	Edges Param = "edges"

	// NEdges is the number of admixture edges
	// drawn on each tree at a time.
	NEdges Param = "nedges"

	// NReps is the number of replicate simulations
	// per parameter draw.
	NReps Param = "nreps"

	// NSnps is the number of polymorphic sites
	// sampled on each simulation.
	NSnps Param = "nsnps"

	// NTests is the number of parameter draws
	// per admixture scenario.
	NTests Param = "ntests"

	// NTrees is the number of sampled trees.
	NTrees Param = "ntrees"

	// Scale is the number of years
	// per coalescent unit.
	Scale Param = "scale"

	// Seed is the seed of the random number generator.
	Seed Param = "seed"

	// ThetaMax is the upper bound of the theta range.
	ThetaMax Param = "theta-max"

	// ThetaMin is the lower bound of the theta range.
	ThetaMin Param = "theta-min"
)

// A Design represents a collection of parameters
// for a set of labeled simulations.
type Design struct {
	name string // file name

	// branch length sampling
	edges string

	// database label combinations
	nEdges int
	nTrees int
	nTests int
	nReps  int

	nSnps int
	chunk int

	thetaMin float64
	thetaMax float64

	scale float64
	seed  uint64
}

// New creates a new design parameter collection
// with the default values.
func New(name string) *Design {
	return &Design{
		name:     name,
		edges:    "none",
		nEdges:   0,
		nTrees:   100,
		nTests:   100,
		nReps:    100,
		nSnps:    1000,
		chunk:    1000,
		thetaMin: 0.01,
		thetaMax: 0.01,
		scale:    1_000_000,
		seed:     123,
	}
}

var header = []string{
	"parameter",
	"value",
}

// Read reads a design file from a TSV file.
//
// The TSV must contain the following fields:
//
//   - parameter, the name of the parameter
//   - value, the value of the parameter
//
// Here is an example file:
//
//	# simcat design parameters
//	parameter	value
//	nedges	1
//	ntrees	100
//	ntests	100
//	nreps	10
//	nsnps	1000
//	theta-min	0.01
//	theta-max	0.1
//	edges	slider
//	seed	123
func Read(name string) (*Design, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tsv := csv.NewReader(f)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("on file %q: header: %v", name, err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("on file %q: expecting field %q", name, h)
		}
	}

	d := New(name)
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		f := "parameter"
		p := Param(strings.ToLower(row[fields[f]]))

		f = "value"
		v := row[fields[f]]
		switch p {
		case Chunk:
			c, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			if err := d.SetChunk(c); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case Edges:
			if err := d.SetEdges(v); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case NEdges:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			if err := d.SetNEdges(n); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case NReps:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			if err := d.SetNReps(n); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case NSnps:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			if err := d.SetNSnps(n); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case NTests:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			if err := d.SetNTests(n); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case NTrees:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			if err := d.SetNTrees(n); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case Scale:
			s, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			if err := d.SetScale(s); err != nil {
				return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
			}
		case Seed:
			s, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			d.SetSeed(s)
		case ThetaMax:
			t, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			d.thetaMax = t
		case ThetaMin:
			t, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("on file %q: on row %d, field %q: %v", name, ln, f, err)
			}
			d.thetaMin = t
		}
	}
	if d.thetaMin > d.thetaMax {
		return nil, fmt.Errorf("on file %q: invalid theta range: %.6g-%.6g", name, d.thetaMin, d.thetaMax)
	}

	return d, nil
}

// Chunk returns the number of simulations
// dispatched as a single job.
func (d *Design) Chunk() int {
	return d.chunk
}

// Edges returns the name of the function
// used to sample branch lengths.
func (d *Design) Edges() string {
	return d.edges
}

// Name returns the name used for a design parameter file.
func (d *Design) Name() string {
	return d.name
}

// NEdges returns the number of admixture edges
// drawn on each tree.
func (d *Design) NEdges() int {
	return d.nEdges
}

// NReps returns the number of replicates
// per parameter draw.
func (d *Design) NReps() int {
	return d.nReps
}

// NSnps returns the number of polymorphic sites
// per simulation.
func (d *Design) NSnps() int {
	return d.nSnps
}

// NTests returns the number of parameter draws
// per admixture scenario.
func (d *Design) NTests() int {
	return d.nTests
}

// NTrees returns the number of sampled trees.
func (d *Design) NTrees() int {
	return d.nTrees
}

// Scale returns the number of years
// per coalescent unit.
func (d *Design) Scale() float64 {
	return d.scale
}

// Seed returns the seed of the random number generator.
func (d *Design) Seed() uint64 {
	return d.seed
}

// Theta returns the sampling range
// of the mutation parameter theta.
func (d *Design) Theta() (min, max float64) {
	return d.thetaMin, d.thetaMax
}

// SetChunk sets the number of simulations
// dispatched as a single job.
func (d *Design) SetChunk(c int) error {
	if c < 1 {
		return fmt.Errorf("invalid chunk value: %d", c)
	}
	d.chunk = c
	return nil
}

// SetEdges sets the function used to sample branch lengths.
// Valid functions are "none"
// (use the input branch lengths)
// and "slider"
// (jitter internal node heights).
func (d *Design) SetEdges(f string) error {
	f = strings.ToLower(strings.TrimSpace(f))
	switch f {
	case "none":
	case "slider":
	default:
		return fmt.Errorf("unknown edges function %q", f)
	}
	d.edges = f
	return nil
}

// SetName sets the name of a design parameter file.
func (d *Design) SetName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	d.name = name
}

// SetNEdges sets the number of admixture edges
// drawn on each tree.
func (d *Design) SetNEdges(n int) error {
	if n < 0 {
		return fmt.Errorf("invalid nedges value: %d", n)
	}
	d.nEdges = n
	return nil
}

// SetNReps sets the number of replicates
// per parameter draw.
func (d *Design) SetNReps(n int) error {
	if n < 1 {
		return fmt.Errorf("invalid nreps value: %d", n)
	}
	d.nReps = n
	return nil
}

// SetNSnps sets the number of polymorphic sites
// per simulation.
func (d *Design) SetNSnps(n int) error {
	if n < 1 {
		return fmt.Errorf("invalid nsnps value: %d", n)
	}
	d.nSnps = n
	return nil
}

// SetNTests sets the number of parameter draws
// per admixture scenario.
func (d *Design) SetNTests(n int) error {
	if n < 1 {
		return fmt.Errorf("invalid ntests value: %d", n)
	}
	d.nTests = n
	return nil
}

// SetNTrees sets the number of sampled trees.
func (d *Design) SetNTrees(n int) error {
	if n < 1 {
		return fmt.Errorf("invalid ntrees value: %d", n)
	}
	d.nTrees = n
	return nil
}

// SetScale sets the number of years
// per coalescent unit.
func (d *Design) SetScale(s float64) error {
	if s <= 0 {
		return fmt.Errorf("invalid scale value: %.6g", s)
	}
	d.scale = s
	return nil
}

// SetSeed sets the seed of the random number generator.
func (d *Design) SetSeed(s uint64) {
	d.seed = s
}

// SetTheta sets the sampling range
// of the mutation parameter theta.
func (d *Design) SetTheta(min, max float64) error {
	if min <= 0 || max < min {
		return fmt.Errorf("invalid theta range: %.6g-%.6g", min, max)
	}
	d.thetaMin = min
	d.thetaMax = max
	return nil
}

// Write writes the design parameters into a file.
func (d *Design) Write() (err error) {
	f, err := os.Create(d.name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# simcat design parameters\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))
	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", d.name, err)
	}

	rows := [][]string{
		{string(Chunk), strconv.Itoa(d.chunk)},
		{string(Edges), d.edges},
		{string(NEdges), strconv.Itoa(d.nEdges)},
		{string(NReps), strconv.Itoa(d.nReps)},
		{string(NSnps), strconv.Itoa(d.nSnps)},
		{string(NTests), strconv.Itoa(d.nTests)},
		{string(NTrees), strconv.Itoa(d.nTrees)},
		{string(Scale), strconv.FormatFloat(d.scale, 'g', -1, 64)},
		{string(Seed), strconv.FormatUint(d.seed, 10)},
		{string(ThetaMax), strconv.FormatFloat(d.thetaMax, 'g', -1, 64)},
		{string(ThetaMin), strconv.FormatFloat(d.thetaMin, 'g', -1, 64)},
	}
	for _, row := range rows {
		if err := tsv.Write(row); err != nil {
			return fmt.Errorf("on file %q: %v", d.name, err)
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", d.name, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", d.name, err)
	}
	return nil
}
