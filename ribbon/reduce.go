// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ribbon reduces a rank's retained (B, I, J) triples into a
// dense per-row "ribbon width" vector describing the sparsity pattern
// of the assembled B-matrix.
package ribbon

import (
	"context"
	"sort"

	"github.com/nwra-gsd/bribbon/comm"
	"github.com/nwra-gsd/bribbon/internal/rankerr"
	"github.com/nwra-gsd/bribbon/kernel"
)

// minSentinel and maxSentinel mark a row with no triples anywhere in the
// communicator, before the all-reduce: a row's local min starts above
// every valid column index (g+10, enough slack that a genuine column
// index can never collide with it) and its local max
// starts below every valid column index (-1).
func minSentinel(g int) int { return g + 10 }

const maxSentinel = -1

// Reduce sorts buf's triples by row, derives this rank's local per-row
// min/max retained column index, all-reduces those across the
// communicator, and returns the resulting width vector (length g, the
// grid's total node count). A row untouched by any rank anywhere has
// width 0.
//
// Reduce returns a sanity error if the
// reduced state for any row is internally inconsistent: a max column
// index at or beyond g, or a negative min paired with a non-negative
// max. Either signals corruption upstream (the kernel, the gather, or
// the reduce itself), never a condition this package should paper over.
func Reduce(ctx context.Context, c comm.Communicator, g int, buf *kernel.TripleBuffer) ([]int, error) {
	rowMin := make([]int, g)
	rowMax := make([]int, g)
	sentinel := minSentinel(g)
	for row := range rowMin {
		rowMin[row] = sentinel
		rowMax[row] = maxSentinel
	}

	for _, idx := range stableOrderByRow(buf) {
		row := int(buf.I[idx])
		col := int(buf.J[idx])
		if col < rowMin[row] {
			rowMin[row] = col
		}
		if col > rowMax[row] {
			rowMax[row] = col
		}
	}

	redMin, err := c.AllreduceMinInt(ctx, rowMin)
	if err != nil {
		return nil, err
	}
	redMax, err := c.AllreduceMaxInt(ctx, rowMax)
	if err != nil {
		return nil, err
	}

	widths := make([]int, g)
	for row := 0; row < g; row++ {
		if redMax[row] >= g || (redMin[row] < 0 && redMax[row] >= 0) {
			return nil, rankerr.New(rankerr.KindSanity, "ribbon: inconsistent reduced row bounds")
		}
		if redMin[row] == sentinel || redMax[row] == maxSentinel {
			continue // row absent everywhere, width 0
		}
		widths[row] = redMax[row] - redMin[row]
	}
	return widths, nil
}

// stableOrderByRow returns a permutation of buf's triple indices, stably
// sorted by global row index.
func stableOrderByRow(buf *kernel.TripleBuffer) []int {
	order := make([]int, buf.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return buf.I[order[a]] < buf.I[order[b]]
	})
	return order
}
