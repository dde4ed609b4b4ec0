// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"github.com/nwra-gsd/bribbon/ensemble"
	"github.com/nwra-gsd/bribbon/index"
)

// Driver iterates Threshold over every peer slab in rank order,
// concatenating retained triples into a single rank-local buffer.
type Driver struct {
	Grid    index.Grid
	Thresh  float64
	Workers int
}

// Build runs the kernel against local and every slot of peers (a rank's
// receive-buffer slots, peers[r] being rank r's gathered slab,
// peers[myRank] being the rank's own slab), returning the accumulated
// triples.
func (d Driver) Build(local ensemble.Slab, peers []ensemble.Slab) (*TripleBuffer, error) {
	buf := NewTripleBuffer(local.Columns * local.PlaneSize)
	for r := 0; r < len(peers); r++ {
		if _, err := Threshold(d.Grid, local, peers[r], d.Thresh, d.Workers, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
