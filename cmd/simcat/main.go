// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// SimCat is a tool to simulate labeled site count data
// for training admixture classifiers.
package main

import (
	"github.com/js-arias/command"
	"github.com/js-arias/simcat/cmd/simcat/design"
	"github.com/js-arias/simcat/cmd/simcat/export"
	"github.com/js-arias/simcat/cmd/simcat/info"
	"github.com/js-arias/simcat/cmd/simcat/labels"
	"github.com/js-arias/simcat/cmd/simcat/plotcmd"
	"github.com/js-arias/simcat/cmd/simcat/run"
	"github.com/js-arias/simcat/cmd/simcat/tree"
)

var app = &command.Command{
	Usage: "simcat <command> [<argument>...]",
	Short: "a tool to simulate site count data for admixture inference",
}

func init() {
	app.Add(design.Command)
	app.Add(export.Command)
	app.Add(info.Command)
	app.Add(labels.Command)
	app.Add(plotcmd.Command)
	app.Add(run.Command)
	app.Add(tree.Command)
}

func main() {
	app.Main()
}
