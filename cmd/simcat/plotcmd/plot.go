// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package plotcmd

import (
	"github.com/js-arias/blind"
	"github.com/js-arias/simcat/admix"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// A candPlot is a plot of the time overlap interval
// of each candidate admixture edge,
// one vertical bar per candidate.
type candPlot struct {
	cands []admix.Candidate
	root  float64
}

// DataRange implements the plot.DataRanger interface.
func (cp *candPlot) DataRange() (xMin, xMax, yMin, yMax float64) {
	return -1, float64(len(cp.cands)), 0, cp.root
}

// Plot implements the plot.Plotter interface.
func (cp *candPlot) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	for i, cand := range cp.cands {
		x0 := trX(float64(i) - 0.4)
		x1 := trX(float64(i) + 0.4)

		pts := []vg.Point{
			{X: x0, Y: trY(cand.End)},
			{X: x1, Y: trY(cand.End)},
			{X: x1, Y: trY(cand.Start)},
			{X: x0, Y: trY(cand.Start)},
			{X: x0, Y: trY(cand.End)},
		}
		// the color scale follows the midpoint
		// of the overlap interval
		mid := (cand.Start + cand.End) / 2
		c.FillPolygon(blind.Sequential(blind.RainbowPurpleToRed, mid/cp.root), pts)
	}
}
