// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package main

import "github.com/js-arias/command"

func init() {
	app.Add(databaseGuide)
	app.Add(designFilesGuide)
	app.Add(projectsGuide)
	app.Add(treeFilesGuide)
}

var projectsGuide = &command.Command{
	Usage: "projects",
	Short: "about project files",
	Long: `
SimCat requires several files to define and run a set of labeled simulations.
To reduce the burden of keeping track of many files, a single project file is
used to hold the reference of all files required in the analysis. This guide
explains the structure of the file, but most of the time, the best and most
secure way to edit or view this file is by using simcat commands.

A project file is a tab-delimited file with the following fields:

	- dataset  for the kind of file
	- path     for the path of the file

Here is an example file:

	# simcat project files
	dataset	path
	trees	trees.tab
	design	design.tab
	database	sims.db

The valid file types are:

- Time-calibrated trees. Defined by the dataset keyword "trees". This file
  contains one or more trees in the form of a tab-delimited file. The
  recommended way to add a tree file is by using the command
  'simcat tree add'.
- Simulation designs. Defined by the dataset keyword "design". This file
  contains the parameters that define the simulation space in the form of a
  tab-delimited file. The recommended way to add a design file is by using
  the command 'simcat design'.
- Simulation databases. Defined by the dataset keyword "database". This file
  is an SQLite database with the labels and the site count matrices of the
  simulations. The database is created with the command 'simcat labels' and
  filled with the command 'simcat run'.
	`,
}

var treeFilesGuide = &command.Command{
	Usage: "tree-files",
	Short: "about tree files",
	Long: `
In SimCat, species trees must be time-calibrated and stored in a
tab-delimited file. The advantage of using a tab-delimited file is that it
would be easier to manipulate trees than in traditional newick files; for
example, it would be easier for commands in SimCat, as well as for
third-party applications, to understand the node IDs.

The recommended way to interact with time-calibrated trees in a SimCat
project is by using the commands in "simcat tree".

A SimCat tree file is a tab-delimited file with the following columns:

	-tree    for the name of the tree.
	-node    for the ID of the node.
	-parent  for of ID of the parent node (-1 is used for the root).
	-age     the age of the node (in years).
	-taxon   the taxonomic name of the node.

Here is an example file:

	# time calibrated species tree
	tree	node	parent	age	taxon
	primates	0	-1	65000000
	primates	1	0	23000000
	primates	2	1	0	Macaca mulatta
	primates	3	1	0	Papio anubis
	primates	4	0	0	Homo sapiens

In a SimCat project, the file that contains the trees is indicated with the
"trees" keyword. Each terminal of a tree is treated as a population, with
population IDs assigned by the alphabetical order of the terminal names.
	`,
}

var designFilesGuide = &command.Command{
	Usage: "design-files",
	Short: "about simulation design files",
	Long: `
A simulation design file stores the parameters that define a simulation
space: the number of admixture edges per scenario, the number of sampled
trees, parameter draws, and replicates, the number of sites per simulation,
and the sampling range of the mutation parameter theta.

The recommended way to interact with a design file is with the command
"simcat design".

A design file is a tab-delimited file with the following columns:

	- parameter  the name of the parameter
	- value      the value of the parameter

Here is an example file:

	# simcat design parameters
	parameter	value
	nedges	1
	ntrees	100
	ntests	100
	nreps	10
	nsnps	1000
	theta-min	0.01
	theta-max	0.1
	edges	slider
	seed	123

In a SimCat project, the design file is indicated with the "design" keyword.
	`,
}

var databaseGuide = &command.Command{
	Usage: "databases",
	Short: "about simulation databases",
	Long: `
A simulation database is an SQLite file that stores a set of labeled
simulations. The database is created with the command 'simcat labels', that
writes the label of every simulation of the space: the sampled tree, the
node heights, the value of theta, and the parameters of each admixture
event. The command 'simcat run' reads the labels and stores a site count
matrix per simulation and four taxon subset of the tree.

Because every label is stored before any simulation is run, an interrupted
run can be resumed: the command 'simcat run' will skip any simulation with
stored counts.

The counts of a database can be inspected with the command 'simcat info' and
exported for training with the command 'simcat export'.

In a SimCat project, the database is indicated with the "database" keyword.
	`,
}
