// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package info implements a command to print
// the metadata and the state
// of the simulation database of a SimCat project.
package info

import (
	"fmt"
	"strings"

	"github.com/js-arias/command"
	"github.com/js-arias/simcat/countdb"
	"github.com/js-arias/simcat/project"
	"github.com/js-arias/timetree"
)

var Command = &command.Command{
	Usage: "info <project-file>",
	Short: "print information of a simulation database",
	Long: `
Command info reads the simulation database of a SimCat project and print its
metadata, the number of stored labels, and the number of finished simulations
in the standard output.

The argument of the command is the name of the project file.
	`,
	Run: run,
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	dbFile := p.Path(project.Database)
	if dbFile == "" {
		return fmt.Errorf("database not defined in project %q", args[0])
	}
	db, err := countdb.Open(dbFile)
	if err != nil {
		return err
	}
	defer db.Close()
	m := db.Metadata()

	tc, err := timetree.ReadTSV(strings.NewReader(m.Tree))
	if err != nil {
		return fmt.Errorf("on database %q: %v", dbFile, err)
	}

	nl, err := db.NumLabels()
	if err != nil {
		return err
	}
	nc, err := db.NumCounts()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.Stdout(), "file:        %s\n", dbFile)
	fmt.Fprintf(c.Stdout(), "tree:        %s\n", tc.Names()[0])
	fmt.Fprintf(c.Stdout(), "terminals:   %d\n", m.NTips)
	fmt.Fprintf(c.Stdout(), "quartets:    %d\n", m.NQuarts)
	fmt.Fprintf(c.Stdout(), "sites:       %d\n", m.NSnps)
	fmt.Fprintf(c.Stdout(), "edges:       %d\n", m.NEdges)
	fmt.Fprintf(c.Stdout(), "scale:       %.6g\n", m.Scale)
	fmt.Fprintf(c.Stdout(), "seed:        %d\n", m.Seed)
	fmt.Fprintf(c.Stdout(), "simulations: %d\n", m.NValues)
	fmt.Fprintf(c.Stdout(), "labels:      %d\n", nl)
	fmt.Fprintf(c.Stdout(), "finished:    %d\n", nc)
	return nil
}
