// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package plotcmd implements a command to plot
// the candidate admixture edges of a tree
// and the sampled parameters of a simulation database.
package plotcmd

import (
	"fmt"

	"github.com/js-arias/command"
	"github.com/js-arias/simcat/admix"
	"github.com/js-arias/simcat/countdb"
	"github.com/js-arias/simcat/project"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var Command = &command.Command{
	Usage: `plot [--vals <field>] [--tree <tree-name>]
	[-o|--output <prefix>]
	<project-file>`,
	Short: "plot candidate edges and sampled parameters",
	Long: `
Command plot reads a SimCat project and writes plots of the simulation space
in PNG files.

The argument of the command is the name of the project file.

By default, the command plots the time overlap interval of each candidate
admixture edge of the tree, with one colored bar per candidate. By default,
the first tree of the project will be used; use the flag --tree to select a
different tree.

If the flag --vals is defined, the command plots a histogram of a sampled
parameter over the labels of the simulation database of the project. Valid
fields are:

	theta    the mutation parameter theta
	prop     the admixture proportions
	tstart   the start of the migration intervals
	tend     the end of the migration intervals

By default, the name of the output file is built from the project name and
the plotted field. If the flag --output, or -o, is defined, the indicated
string will be used as a prefix for the file.
	`,
	SetFlags: setFlags,
	Run:      run,
}

var valsField string
var treeName string
var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&valsField, "vals", "", "")
	c.Flags().StringVar(&treeName, "tree", "", "")
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	if valsField != "" {
		return plotVals(p, args[0])
	}
	return plotCandidates(p, args[0])
}

func plotCandidates(p *project.Project, pFile string) error {
	tc, err := p.Trees()
	if err != nil {
		return err
	}
	if treeName == "" {
		treeName = tc.Names()[0]
	}
	t := tc.Tree(treeName)
	if t == nil {
		return fmt.Errorf("tree %q not in project %q", treeName, pFile)
	}

	d, err := p.Design("design.tab")
	if err != nil {
		return err
	}
	at, err := admix.New(t, d.Scale())
	if err != nil {
		return err
	}
	cands := at.Candidates()
	if len(cands) == 0 {
		return fmt.Errorf("tree %q without candidate edges", treeName)
	}

	pt := plot.New()
	pt.Title.Text = treeName
	pt.X.Label.Text = "candidate edge"
	pt.Y.Label.Text = "age (coalescent units)"
	pt.Add(&candPlot{cands: cands, root: at.Height(at.Root())})

	name := fmt.Sprintf("%s-%s-candidates.png", pFile, treeName)
	if output != "" {
		name = fmt.Sprintf("%s-%s", output, name)
	}
	if err := pt.Save(6*vg.Inch, 4*vg.Inch, name); err != nil {
		return err
	}
	return nil
}

func plotVals(p *project.Project, pFile string) error {
	dbFile := p.Path(project.Database)
	if dbFile == "" {
		return fmt.Errorf("database not defined in project %q", pFile)
	}
	db, err := countdb.Open(dbFile)
	if err != nil {
		return err
	}
	defer db.Close()
	m := db.Metadata()

	vals, err := labelVals(db, m.NValues)
	if err != nil {
		return err
	}
	if len(vals) == 0 {
		return fmt.Errorf("field %q without values in database %q", valsField, dbFile)
	}

	pt := plot.New()
	pt.X.Label.Text = valsField
	pt.Y.Label.Text = "simulations"
	h, err := plotter.NewHist(plotter.Values(vals), 20)
	if err != nil {
		return err
	}
	h.FillColor = plotter.DefaultLineStyle.Color
	pt.Add(h)

	name := fmt.Sprintf("%s-%s.png", pFile, valsField)
	if output != "" {
		name = fmt.Sprintf("%s-%s", output, name)
	}
	if err := pt.Save(6*vg.Inch, 4*vg.Inch, name); err != nil {
		return err
	}
	return nil
}

func labelVals(db *countdb.DB, total int64) ([]float64, error) {
	var vals []float64
	for start := int64(0); start < total; start += 1000 {
		end := start + 1000
		if end > total {
			end = total
		}
		ls, err := db.Labels(start, end)
		if err != nil {
			return nil, err
		}
		for _, l := range ls {
			switch valsField {
			case "theta":
				vals = append(vals, l.Theta)
			case "prop":
				vals = append(vals, l.Props...)
			case "tstart":
				vals = append(vals, l.TStarts...)
			case "tend":
				vals = append(vals, l.TEnds...)
			default:
				return nil, fmt.Errorf("unknown field %q", valsField)
			}
		}
	}
	return vals, nil
}
