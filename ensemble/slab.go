// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ensemble implements the slab loader: reading a
// self-describing 5-D ensemble container, applying
// the mean-mode preprocessor, decimating the trailing spatial axes, and
// handing each rank its contiguous x-slab.
package ensemble

// Slab is a rank's (or a gathered peer's) dense block of ensemble
// samples, shape (Ensembles, PlaneSize, Columns) logically, but stored
// with a per-plane-row Stride that may exceed Columns: Slab.Data has
// length Ensembles*PlaneSize*Stride, and only the first Columns entries
// of every (e, p) row are valid. The padded tail exists because the
// all-gather pads every rank's slab to the widest rank's width; a
// local, never-gathered slab has Stride == Columns.
type Slab struct {
	Ensembles int
	PlaneSize int // Nz*Ny
	Stride    int // allocated width per plane row, >= Columns
	Columns   int // valid width (this rank's x-extent)
	IB        int // global starting x index of column 0
	Data      []float64
}

// At returns the sample for ensemble member e, plane position p, and
// local column u.
func (s Slab) At(e, p, u int) float64 {
	return s.Data[(e*s.PlaneSize+p)*s.Stride+u]
}

// columnPoint returns the length-Ensembles vector of samples at plane
// position p, local column u, across every ensemble member. The result
// is a fresh, contiguous slice suitable for gonum/floats reductions.
func (s Slab) columnPoint(p, u int) []float64 {
	vec := make([]float64, s.Ensembles)
	for e := 0; e < s.Ensembles; e++ {
		vec[e] = s.Data[(e*s.PlaneSize+p)*s.Stride+u]
	}
	return vec
}

// ReshapeColumn gathers column u into PlaneSize contiguous per-point
// ensemble vectors, one per plane position, so that the threshold
// kernel can reduce over them with gonum/floats.Dot instead of a
// manually strided accumulation loop.
func (s Slab) ReshapeColumn(u int) [][]float64 {
	cols := make([][]float64, s.PlaneSize)
	for p := 0; p < s.PlaneSize; p++ {
		cols[p] = s.columnPoint(p, u)
	}
	return cols
}

// Flatten linearises the slab's valid columns (dropping any Stride
// padding) into the (Ensembles, PlaneSize, Columns) row-major buffer
// the all-gather send payload needs.
func (s Slab) Flatten() []float64 {
	if s.Stride == s.Columns {
		out := make([]float64, len(s.Data))
		copy(out, s.Data)
		return out
	}
	out := make([]float64, s.Ensembles*s.PlaneSize*s.Columns)
	n := 0
	for e := 0; e < s.Ensembles; e++ {
		for p := 0; p < s.PlaneSize; p++ {
			base := (e*s.PlaneSize + p) * s.Stride
			copy(out[n:n+s.Columns], s.Data[base:base+s.Columns])
			n += s.Columns
		}
	}
	return out
}

// PadTo returns a copy of the slab's valid data zero-padded so that each
// plane row has width stride, the receive-buffer pad convention ahead
// of an Allgather call.
func (s Slab) PadTo(stride int) []float64 {
	if stride < s.Columns {
		panic("ensemble: pad stride smaller than slab width")
	}
	out := make([]float64, s.Ensembles*s.PlaneSize*stride)
	for e := 0; e < s.Ensembles; e++ {
		for p := 0; p < s.PlaneSize; p++ {
			srcBase := (e*s.PlaneSize + p) * s.Stride
			dstBase := (e*s.PlaneSize + p) * stride
			copy(out[dstBase:dstBase+s.Columns], s.Data[srcBase:srcBase+s.Columns])
		}
	}
	return out
}

// FromGathered wraps one row of an Allgather receive buffer (padded to
// stride) as a Slab for the rank that owns columns [ib, ib+columns).
func FromGathered(data []float64, ensembles, planeSize, stride, columns, ib int) Slab {
	return Slab{
		Ensembles: ensembles,
		PlaneSize: planeSize,
		Stride:    stride,
		Columns:   columns,
		IB:        ib,
		Data:      data,
	}
}
