// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ribbon

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/nwra-gsd/bribbon/comm"
	"github.com/nwra-gsd/bribbon/ensemble"
	"github.com/nwra-gsd/bribbon/index"
	"github.com/nwra-gsd/bribbon/kernel"
)

func TestReduceConstantFieldWidthsAreGMinusOne(t *testing.T) {
	t.Parallel()
	// Scenario 1's width claim: a fully-correlated field retains every
	// pair, so every row's width is G-1.
	grid := index.Grid{Nx: 2, Ny: 2, Nz: 2}
	g := grid.G()
	planeSize := grid.PlaneSize()
	data := make([]float64, 2*planeSize*2)
	for i := range data {
		data[i] = 3.0
	}
	slab := ensemble.FromGathered(data, 2, planeSize, 2, 2, 0)

	buf := kernel.NewTripleBuffer(0)
	if _, err := kernel.Threshold(grid, slab, slab, 0.5, 1, buf); err != nil {
		t.Fatalf("Threshold: %v", err)
	}

	handles := comm.NewInProcess(1)
	widths, err := Reduce(context.Background(), handles[0], g, buf)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	for row, w := range widths {
		if w != g-1 {
			t.Errorf("widths[%d] = %d, want %d", row, w, g-1)
		}
	}
}

func TestReduceTwoRankDiagonalOnlyUnion(t *testing.T) {
	t.Parallel()
	// Scenario 4: a two-rank split of an identity-covariance field
	// (Kronecker ensemble: member e is 1 at point e, 0 elsewhere) yields
	// exactly G diagonal triples after union, and zero-width rows
	// everywhere (every retained row trivially has max == min).
	const g = 4
	grid := index.Grid{Nx: g, Ny: 1, Nz: 1}
	planeSize := grid.PlaneSize()

	// data[e*g+p]: 1 when e == p, else 0.
	full := make([]float64, g*planeSize*g)
	for e := 0; e < g; e++ {
		full[(e*planeSize+0)*g+e] = 1
	}

	chunk := func(ib, width int) ensemble.Slab {
		data := make([]float64, g*planeSize*width)
		for e := 0; e < g; e++ {
			for u := 0; u < width; u++ {
				data[(e*planeSize+0)*width+u] = full[(e*planeSize+0)*g+ib+u]
			}
		}
		return ensemble.FromGathered(data, g, planeSize, width, width, ib)
	}

	ib0, ie0 := index.Range(g, 2, 0)
	ib1, ie1 := index.Range(g, 2, 1)
	rank0 := chunk(ib0, ie0-ib0+1)
	rank1 := chunk(ib1, ie1-ib1+1)
	peers := []ensemble.Slab{rank0, rank1}
	locals := []ensemble.Slab{rank0, rank1}

	handles := comm.NewInProcess(2)
	results := make([]*kernel.TripleBuffer, 2)
	widthsByRank := make([][]int, 2)

	grp, ctx := errgroup.WithContext(context.Background())
	for r := 0; r < 2; r++ {
		r := r
		grp.Go(func() error {
			driver := kernel.Driver{Grid: grid, Thresh: 0.5, Workers: 1}
			buf, err := driver.Build(locals[r], peers)
			if err != nil {
				return err
			}
			results[r] = buf
			widths, err := Reduce(ctx, handles[r], g, buf)
			if err != nil {
				return err
			}
			widthsByRank[r] = widths
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		t.Fatalf("build+reduce: %v", err)
	}

	totalDiag := 0
	totalOffDiag := 0
	for _, buf := range results {
		for i := range buf.I {
			if buf.I[i] == buf.J[i] {
				totalDiag++
			} else {
				totalOffDiag++
			}
		}
	}
	if totalDiag != g {
		t.Errorf("diagonal triple count = %d, want %d", totalDiag, g)
	}
	if totalOffDiag != 0 {
		t.Errorf("off-diagonal triple count = %d, want 0", totalOffDiag)
	}

	want := make([]int, g)
	if diff := cmp.Diff(want, widthsByRank[0]); diff != "" {
		t.Errorf("rank 0 widths (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, widthsByRank[1]); diff != "" {
		t.Errorf("rank 1 widths (-want +got):\n%s", diff)
	}
}

// stubComm is a minimal comm.Communicator double used to drive Reduce's
// sanity gate directly, without standing up a whole hub for inputs that
// a correct kernel+reduce pipeline could never actually produce.
type stubComm struct {
	minResult []int
	maxResult []int
}

func (s stubComm) Rank() int { return 0 }
func (s stubComm) Size() int { return 1 }
func (s stubComm) Barrier(ctx context.Context) error { return nil }
func (s stubComm) Allgather(ctx context.Context, send []float64) ([][]float64, error) {
	return [][]float64{send}, nil
}
func (s stubComm) AllreduceMinInt(ctx context.Context, local []int) ([]int, error) {
	return s.minResult, nil
}
func (s stubComm) AllreduceMaxInt(ctx context.Context, local []int) ([]int, error) {
	return s.maxResult, nil
}
func (s stubComm) AllreduceSumInt(ctx context.Context, local int) (int, error) { return local, nil }
func (s stubComm) AllreduceMaxFloat(ctx context.Context, local float64) (float64, error) {
	return local, nil
}

func TestReduceSanityGateRejectsOutOfRangeMax(t *testing.T) {
	t.Parallel()
	const g = 3
	s := stubComm{
		minResult: []int{0, g + 10, g + 10},
		maxResult: []int{g, -1, -1}, // row 0's max == g: out of range
	}
	_, err := Reduce(context.Background(), s, g, kernel.NewTripleBuffer(0))
	if err == nil {
		t.Fatal("Reduce did not reject an out-of-range reduced max")
	}
}

func TestReduceSanityGateRejectsInconsistentSentinels(t *testing.T) {
	t.Parallel()
	const g = 3
	s := stubComm{
		minResult: []int{-1, g + 10, g + 10}, // negative min
		maxResult: []int{2, -1, -1},          // paired with a non-negative max
	}
	_, err := Reduce(context.Background(), s, g, kernel.NewTripleBuffer(0))
	if err == nil {
		t.Fatal("Reduce did not reject an inconsistent min/max sentinel pairing")
	}
}
