// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package terms implements a command to print
// the terminals of the trees in a SimCat project
// with their population IDs.
package terms

import (
	"fmt"

	"github.com/js-arias/command"
	"github.com/js-arias/simcat/admix"
	"github.com/js-arias/simcat/project"
)

var Command = &command.Command{
	Usage: "terms [--tree <tree-name>] <project-file>",
	Short: "print a list of tree terminals",
	Long: `
Command terms reads the trees from a SimCat project and print the name of the
terminals with their population IDs in the standard output. The printed IDs
are the population IDs used by the simulations.

The argument of the command is the name of the project file.

By default the terminals of all trees will be printed. If the flag --tree is
set, only the terminals of the indicated tree will be printed.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var treeName string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&treeName, "tree", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	tc, err := p.Trees()
	if err != nil {
		return err
	}
	d, err := p.Design("design.tab")
	if err != nil {
		return err
	}

	var ls []string
	if treeName != "" {
		ls = append(ls, treeName)
	} else {
		ls = tc.Names()
	}

	for _, tn := range ls {
		t := tc.Tree(tn)
		if t == nil {
			continue
		}
		at, err := admix.New(t, d.Scale())
		if err != nil {
			return err
		}

		fmt.Fprintf(c.Stdout(), "%s:\n", tn)
		for pop := 0; pop < at.Ntips(); pop++ {
			fmt.Fprintf(c.Stdout(), "%d\t%s\n", pop, at.Taxon(at.Tip(pop)))
		}
	}
	return nil
}
