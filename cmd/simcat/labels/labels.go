// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package labels implements a command to create
// a simulation database
// with the label of every simulation of a project.
package labels

import (
	"bytes"
	"fmt"
	"os"
	"reflect"

	"github.com/js-arias/command"
	"github.com/js-arias/simcat/countdb"
	"github.com/js-arias/simcat/project"
	"github.com/js-arias/simcat/sims"
	"github.com/js-arias/timetree"
)

var Command = &command.Command{
	Usage: `labels [-f|--file <database-file>]
	[--tree <tree-name>]
	<project-file>`,
	Short: "create a database with simulation labels",
	Long: `
Command labels reads the species tree and the design parameters of a SimCat
project, and creates a simulation database with the label of every simulation
of the space: the sampled tree, the node heights, the value of theta, and the
parameters of each admixture event.

The argument of the command is the name of the project file.

By default, the first tree of the project will be used. Use the flag --tree
to select a different tree.

By default, the database will be created with the name 'sims.db'. A different
name can be defined with the flag --file, or -f. If the database file already
exists and stores the metadata of the project, the labels of an interrupted
enumeration will be completed; it is an error if the stored metadata is
different.

Once the labels are stored, the simulations can be run with the command
'simcat run'.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var dbFile string
var treeName string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&dbFile, "file", "sims.db", "")
	c.Flags().StringVar(&dbFile, "f", "sims.db", "")
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
	if treeName == "" {
		treeName = tc.Names()[0]
	}
	t := tc.Tree(treeName)
	if t == nil {
		return fmt.Errorf("tree %q not in project %q", treeName, args[0])
	}

	d, err := p.Design("design.tab")
	if err != nil {
		return err
	}

	sp, err := sims.NewSpace(t, d)
	if err != nil {
		return err
	}

	tsv, err := treeTSV(t)
	if err != nil {
		return err
	}
	db, err := openDB(dbFile, sp.Metadata(tsv))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sp.Enumerate(db); err != nil {
		return err
	}

	p.Add(project.Database, dbFile)
	if err := p.Write(); err != nil {
		return err
	}

	fmt.Fprintf(c.Stdout(), "%s: tree %q: %d simulations\n", dbFile, treeName, sp.NumValues())
	return nil
}

// openDB opens the database for an enumeration.
// If the file already exists,
// it must store the same metadata,
// so a previous enumeration can be finished.
func openDB(name string, md countdb.Metadata) (*countdb.DB, error) {
	if _, err := os.Stat(name); err != nil {
		return countdb.Create(name, md)
	}

	db, err := countdb.Open(name)
	if err != nil {
		return nil, err
	}
	if m := db.Metadata(); !reflect.DeepEqual(m, md) {
		db.Close()
		return nil, fmt.Errorf("database %q: stored metadata does not match the project", name)
	}
	return db, nil
}

func treeTSV(t *timetree.Tree) (string, error) {
	tc := timetree.NewCollection()
	if err := tc.Add(t); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tc.TSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
