// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nwra-gsd/bribbon/ensemble"
	"github.com/nwra-gsd/bribbon/index"
)

// Threshold computes, for every pair of columns (u in local, v in peer)
// and every plane position in each column, the Pearson correlation
// coefficient between the corresponding grid points and appends a
// (covariance, global row, global column) triple to buf whenever the
// coefficient's absolute value meets or exceeds thresh.
//
// Variance and covariance are population means around zero (mean(x^2),
// not mean((x-mean x)^2)): this is only an anomaly covariance when the
// caller has pre-subtracted the ensemble mean upstream; see
// ensemble.ModeAnomaly. A zero denominator is treated as "not above
// threshold", never as an error. Self-pairs are not special-cased.
//
// workers partitions the local columns into that many contiguous chunks
// (via index.Range, the same partition primitive used for ranks) and
// processes each chunk concurrently, merging results back in column
// order so that the emission order — and hence a repeat run's bit-identical
// re-run guarantee — depends only on workers, not on goroutine
// scheduling. workers <= 1 runs single-threaded.
func Threshold(grid index.Grid, local, peer ensemble.Slab, thresh float64, workers int, buf *TripleBuffer) (n int, err error) {
	if local.Ensembles != peer.Ensembles {
		return 0, errMismatchedEnsembleSize(local.Ensembles, peer.Ensembles)
	}
	if workers < 1 {
		workers = 1
	}
	if workers > local.Columns {
		workers = local.Columns
	}
	if local.Columns == 0 || peer.Columns == 0 {
		return 0, nil
	}

	peerCols := make([][][]float64, peer.Columns)
	peerVar := make([][]float64, peer.Columns)
	for v := 0; v < peer.Columns; v++ {
		peerCols[v] = peer.ReshapeColumn(v)
		peerVar[v] = make([]float64, peer.PlaneSize)
		for q, vec := range peerCols[v] {
			peerVar[v][q] = floats.Dot(vec, vec) / float64(peer.Ensembles)
		}
	}

	chunks := make([]*TripleBuffer, workers)
	done := make(chan int, workers)
	for w := 0; w < workers; w++ {
		w := w
		go func() {
			ulo, uhi := index.Range(local.Columns, workers, w)
			chunk := NewTripleBuffer(0)
			thresholdRange(grid, local, peer, thresh, ulo, uhi, peerCols, peerVar, chunk)
			chunks[w] = chunk
			done <- w
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}
	for w := 0; w < workers; w++ {
		buf.AppendAll(chunks[w])
		n += chunks[w].Len()
	}
	return n, nil
}

func thresholdRange(grid index.Grid, local, peer ensemble.Slab, thresh float64, ulo, uhi int, peerCols [][][]float64, peerVar [][]float64, buf *TripleBuffer) {
	ny := grid.Ny
	for u := ulo; u <= uhi; u++ {
		localCol := local.ReshapeColumn(u)
		for p := 0; p < local.PlaneSize; p++ {
			a := localCol[p]
			sigmaP := floats.Dot(a, a) / float64(local.Ensembles)
			if sigmaP == 0 {
				continue
			}
			lj, lk := index.PlaneToJK(p, ny)
			row := grid.Flat(local.IB+u, lj, lk)

			for v := 0; v < peer.Columns; v++ {
				for q := 0; q < peer.PlaneSize; q++ {
					sigmaQ := peerVar[v][q]
					denom := sigmaP * sigmaQ
					if denom <= 0 {
						continue
					}
					b := peerCols[v][q]
					c := floats.Dot(a, b) / float64(local.Ensembles)
					rho := math.Abs(c) / math.Sqrt(denom)
					if rho < thresh {
						continue
					}
					rj, rk := index.PlaneToJK(q, ny)
					col := grid.Flat(peer.IB+v, rj, rk)
					buf.Append(c, int64(row), int64(col))
				}
			}
		}
	}
}
