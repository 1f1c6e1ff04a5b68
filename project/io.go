// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package project

import (
	"fmt"
	"os"

	"github.com/js-arias/simcat/simdesign"
	"github.com/js-arias/timetree"
)

// Design reads a simulation design file
// as defined in a project.
// If the project has no design file,
// a design with the default values is returned
// with the indicated name.
func (p *Project) Design(name string) (*simdesign.Design, error) {
	df := p.Path(Design)
	if df == "" {
		return simdesign.New(name), nil
	}

	d, err := simdesign.Read(df)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", df, err)
	}
	return d, nil
}

// Trees reads a tree collection file
// as defined in a project.
func (p *Project) Trees() (*timetree.Collection, error) {
	name := p.Path(Trees)
	if name == "" {
		return nil, fmt.Errorf("trees not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := timetree.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return c, nil
}
