// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package design implements a command to manage
// the simulation design parameters of a SimCat project.
package design

import (
	"fmt"
	"io"

	"github.com/js-arias/command"
	"github.com/js-arias/simcat/project"
	"github.com/js-arias/simcat/simdesign"
)

var Command = &command.Command{
	Usage: `design [--add <design-file>] [--file <file-name>]
	[--nedges <value>] [--ntrees <value>]
	[--ntests <value>] [--nreps <value>]
	[--nsnps <value>] [--chunk <value>]
	[--theta <min,max>] [--edges <function>]
	[--scale <value>] [--seed <value>]
	<project-file>`,
	Short: "manage simulation design parameters",
	Long: `
Command design manages the parameters that define the simulation space of a
SimCat project: the number of admixture edges per scenario, the number of
sampled trees, parameter draws, and replicates, the number of sites per
simulation, and the sampling range of the mutation parameter theta.

The argument of the command is the name of the project file.

By default, the command will print the currently defined parameters.

If the flag --add is defined, it will use the indicated file for the design
parameters.

By default, any change on the parameters will be stored in the current design
file. Use the flag --file to define a new design file.

The flag --nedges sets the number of admixture edges drawn on each tree at a
time; each subset of that size of the candidate edges of the tree defines an
admixture scenario. With zero edges (the default) a single scenario without
admixture is used.

The flags --ntrees, --ntests, and --nreps set the number of sampled trees,
the number of parameter draws per scenario, and the number of replicate
simulations per draw. The total number of simulations is the product of the
number of scenarios, trees, draws, and replicates.

The flag --nsnps sets the number of polymorphic sites sampled on each
simulation, and the flag --chunk the number of simulations dispatched as a
single job.

The flag --theta sets the sampling range of theta with two comma separated
values, for example '--theta 0.01,0.1'. On each draw theta is sampled
uniformly in that range.

The flag --edges sets the function used to sample branch lengths on each
sampled tree. Valid functions are "none" (use the input branch lengths) and
"slider" (jitter the internal node heights between the bounds defined by the
neighbor nodes).

The flag --scale sets the number of years per coalescent unit used to scale
the node ages of the input trees. The flag --seed sets the seed of the random
number generator.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var addFile string
var designFile string
var edgesFun string
var thetaRange string
var nEdges int
var nTrees int
var nTests int
var nReps int
var nSnps int
var chunk int
var scale float64
var seed int64

func setFlags(c *command.Command) {
	c.Flags().StringVar(&addFile, "add", "", "")
	c.Flags().StringVar(&designFile, "file", "", "")
	c.Flags().StringVar(&edgesFun, "edges", "", "")
	c.Flags().StringVar(&thetaRange, "theta", "", "")
	c.Flags().IntVar(&nEdges, "nedges", -1, "")
	c.Flags().IntVar(&nTrees, "ntrees", 0, "")
	c.Flags().IntVar(&nTests, "ntests", 0, "")
	c.Flags().IntVar(&nReps, "nreps", 0, "")
	c.Flags().IntVar(&nSnps, "nsnps", 0, "")
	c.Flags().IntVar(&chunk, "chunk", 0, "")
	c.Flags().Float64Var(&scale, "scale", 0, "")
	c.Flags().Int64Var(&seed, "seed", -1, "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	if addFile != "" {
		if _, err := simdesign.Read(addFile); err != nil {
			return err
		}
		p.Add(project.Design, addFile)
		if err := p.Write(); err != nil {
			return err
		}
		return nil
	}

	d, err := p.Design("design.tab")
	if err != nil {
		return err
	}
	if designFile != "" {
		d.SetName(designFile)
	}

	ed := false
	if nEdges >= 0 {
		if err := d.SetNEdges(nEdges); err != nil {
			return err
		}
		ed = true
	}
	if nTrees > 0 {
		if err := d.SetNTrees(nTrees); err != nil {
			return err
		}
		ed = true
	}
	if nTests > 0 {
		if err := d.SetNTests(nTests); err != nil {
			return err
		}
		ed = true
	}
	if nReps > 0 {
		if err := d.SetNReps(nReps); err != nil {
			return err
		}
		ed = true
	}
	if nSnps > 0 {
		if err := d.SetNSnps(nSnps); err != nil {
			return err
		}
		ed = true
	}
	if chunk > 0 {
		if err := d.SetChunk(chunk); err != nil {
			return err
		}
		ed = true
	}
	if thetaRange != "" {
		min, max, err := parseTheta(thetaRange)
		if err != nil {
			return err
		}
		if err := d.SetTheta(min, max); err != nil {
			return err
		}
		ed = true
	}
	if edgesFun != "" {
		if err := d.SetEdges(edgesFun); err != nil {
			return err
		}
		ed = true
	}
	if scale > 0 {
		if err := d.SetScale(scale); err != nil {
			return err
		}
		ed = true
	}
	if seed >= 0 {
		d.SetSeed(uint64(seed))
		ed = true
	}

	if p.Path(project.Design) != d.Name() {
		if err := d.Write(); err != nil {
			return err
		}
		p.Add(project.Design, d.Name())
		if err := p.Write(); err != nil {
			return err
		}
		return nil
	}
	if ed {
		if err := d.Write(); err != nil {
			return err
		}
		return nil
	}

	printDesign(c.Stdout(), d)
	return nil
}

func parseTheta(s string) (min, max float64, err error) {
	if _, err := fmt.Sscanf(s, "%f,%f", &min, &max); err != nil {
		return 0, 0, fmt.Errorf("invalid theta range %q: %v", s, err)
	}
	return min, max, nil
}

func printDesign(w io.Writer, d *simdesign.Design) {
	min, max := d.Theta()
	fmt.Fprintf(w, "file:        %s\n", d.Name())
	fmt.Fprintf(w, "nedges:      %d\n", d.NEdges())
	fmt.Fprintf(w, "ntrees:      %d\n", d.NTrees())
	fmt.Fprintf(w, "ntests:      %d\n", d.NTests())
	fmt.Fprintf(w, "nreps:       %d\n", d.NReps())
	fmt.Fprintf(w, "nsnps:       %d\n", d.NSnps())
	fmt.Fprintf(w, "chunk:       %d\n", d.Chunk())
	fmt.Fprintf(w, "theta:       %.6g-%.6g\n", min, max)
	fmt.Fprintf(w, "edges:       %s\n", d.Edges())
	fmt.Fprintf(w, "scale:       %.6g\n", d.Scale())
	fmt.Fprintf(w, "seed:        %d\n", d.Seed())
}
