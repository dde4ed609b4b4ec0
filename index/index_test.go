// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRangePartitionsWholeAxis(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		length, nprocs int
	}{
		{length: 1, nprocs: 1},
		{length: 10, nprocs: 3},
		{length: 10, nprocs: 4},
		{length: 100, nprocs: 7},
		{length: 4, nprocs: 8},
	} {
		ib0, _ := Range(test.length, test.nprocs, 0)
		if ib0 != 0 {
			t.Errorf("Range(%d,%d,0).ib = %d, want 0", test.length, test.nprocs, ib0)
		}

		_, ieLast := Range(test.length, test.nprocs, test.nprocs-1)
		if test.length > 0 && ieLast != test.length-1 {
			t.Errorf("Range(%d,%d,%d).ie = %d, want %d", test.length, test.nprocs, test.nprocs-1, ieLast, test.length-1)
		}

		total := 0
		for r := 0; r < test.nprocs; r++ {
			ib, ie := Range(test.length, test.nprocs, r)
			if r > 0 {
				_, prevIe := Range(test.length, test.nprocs, r-1)
				if ib != prevIe+1 {
					t.Errorf("rank %d does not abut rank %d: prev ie=%d, ib=%d", r, r-1, prevIe, ib)
				}
			}
			total += ie - ib + 1
		}
		if total != test.length {
			t.Errorf("ranges for length=%d nprocs=%d sum to %d widths, want %d", test.length, test.nprocs, total, test.length)
		}
	}
}

func TestRangeDeterministic(t *testing.T) {
	t.Parallel()
	// Bit-identical across repeated calls: every caller must see the same
	// bounds for the same (length, nprocs, rank).
	a1, a2 := Range(17, 5, 2)
	b1, b2 := Range(17, 5, 2)
	if a1 != b1 || a2 != b2 {
		t.Errorf("Range not deterministic: (%d,%d) vs (%d,%d)", a1, a2, b1, b2)
	}
}

func TestFlatIJKRoundTrip(t *testing.T) {
	t.Parallel()
	const nx, ny, nz = 5, 3, 4
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				g := IJKToFlat(i, j, k, nx, ny)
				gi, gj, gk := FlatToIJK(g, nx, ny)
				got := [3]int{gi, gj, gk}
				want := [3]int{i, j, k}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("round trip mismatch for g=%d (-want +got):\n%s", g, diff)
				}
			}
		}
	}
}

func TestIJKToFlatConvention(t *testing.T) {
	t.Parallel()
	// The convention is fixed: g = i + j*nx + k*nx*ny.
	got := IJKToFlat(1, 2, 3, 4, 5)
	want := 1 + 2*4 + 3*4*5
	if got != want {
		t.Errorf("IJKToFlat(1,2,3,4,5) = %d, want %d", got, want)
	}
}

func TestMaxWidth(t *testing.T) {
	t.Parallel()
	// length=10, nprocs=3 -> widths 4,3,3
	if got := MaxWidth(10, 3); got != 4 {
		t.Errorf("MaxWidth(10,3) = %d, want 4", got)
	}
}

func TestRangePanicsOnBadInput(t *testing.T) {
	t.Parallel()
	for _, test := range []struct {
		name                   string
		length, nprocs, rank int
	}{
		{"zero nprocs", 10, 0, 0},
		{"negative length", -1, 3, 0},
		{"rank too large", 10, 3, 3},
		{"negative rank", 10, 3, -1},
	} {
		t.Run(test.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Range(%d,%d,%d) did not panic", test.length, test.nprocs, test.rank)
				}
			}()
			Range(test.length, test.nprocs, test.rank)
		})
	}
}
