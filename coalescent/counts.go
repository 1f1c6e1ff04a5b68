// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package coalescent

import (
	"gonum.org/v1/gonum/stat/combin"
)

// A Matrix is a 16x16 matrix of site pattern counts
// for a four taxon subset.
// A site with the bases (a, b, c, d)
// on the four populations
// is counted at the cell [4a+b][4c+d].
type Matrix [16][16]uint32

// Quartets returns all four taxon subsets
// of the populations of a tree,
// in lexicographic order,
// e.g. (0, 1, 2, 3), (0, 1, 2, 4), ...
func Quartets(ntips int) [][]int {
	return combin.Combinations(ntips, 4)
}

// NumQuartets returns the number of four taxon subsets
// of the populations of a tree.
func NumQuartets(ntips int) int {
	return combin.Binomial(ntips, 4)
}

// CountMatrices tabulates the site patterns
// of each four taxon subset.
// Each row of snps is a site pattern
// with a base code per population.
func CountMatrices(snps [][]uint8, ntips int) []Matrix {
	qs := Quartets(ntips)
	ms := make([]Matrix, len(qs))
	for i, q := range qs {
		for _, s := range snps {
			x := 4*s[q[0]] + s[q[1]]
			y := 4*s[q[2]] + s[q[3]]
			ms[i][x][y]++
		}
	}
	return ms
}
