// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package run implements a command to run
// the simulations of a SimCat project.
package run

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/js-arias/command"
	"github.com/js-arias/simcat/countdb"
	"github.com/js-arias/simcat/project"
	"github.com/js-arias/simcat/sims"
	"github.com/js-arias/timetree"
)

var Command = &command.Command{
	Usage: "run [--cpu <number>] <project-file>",
	Short: "run the simulations of a project",
	Long: `
Command run reads the simulation database of a SimCat project, runs the
coalescent simulation of every label without stored counts, and stores the
resulting site count matrices in the database.

The argument of the command is the name of the project file.

Simulations are run from the label of each simulation, so the command can be
interrupted at any time; on the next run the finished simulations will be
skipped.

By default, all available CPUs will be used in the processing. Set --cpu flag
to use a different number of CPUs.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var numCPU int

func setFlags(c *command.Command) {
	c.Flags().IntVar(&numCPU, "cpu", runtime.GOMAXPROCS(0), "")
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
	t := tc.Tree(tc.Names()[0])

	d, err := p.Design("design.tab")
	if err != nil {
		return err
	}

	sp, err := sims.NewSpace(t, d)
	if err != nil {
		return err
	}

	sims.SetCPU(numCPU)
	start := time.Now()
	err = sp.Run(db, func(done, total int64) {
		fmt.Fprintf(c.Stdout(), "%s: %d of %d simulations [%v]\n", dbFile, done, total, time.Since(start).Round(time.Second))
	})
	if err != nil {
		return err
	}
	return nil
}
