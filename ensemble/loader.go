// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ensemble

import (
	"fmt"

	"github.com/nwra-gsd/bribbon/index"
)

// MeanMode selects the preprocessing applied to a time slice before it
// is partitioned across ranks, one of three modes.
type MeanMode int

const (
	// ModeEnsembleMean replaces the field with the ensemble mean of a
	// single z-plane (rank drops to 2-D).
	ModeEnsembleMean MeanMode = 1
	// ModeAnomaly subtracts the ensemble mean from each member, the
	// only mode compatible with the threshold kernel's zero-mean
	// variance formula.
	ModeAnomaly MeanMode = 2
	// ModeRaw performs no preprocessing.
	ModeRaw MeanMode = 3
)

func (m MeanMode) String() string {
	switch m {
	case ModeEnsembleMean:
		return "ensemble-mean"
	case ModeAnomaly:
		return "anomaly"
	case ModeRaw:
		return "raw"
	default:
		return fmt.Sprintf("MeanMode(%d)", int(m))
	}
}

// preprocessed holds the working tensor after mean-mode preprocessing,
// before decimation: shape (E, Nz, Ny, Nx), row-major.
type preprocessed struct {
	E, Nz, Ny, Nx int
	Data          []float64
}

// preprocess applies the selected mean mode to time slice itime of c.
func preprocess(c *Container, itime int, mode MeanMode) (preprocessed, error) {
	if len(c.Shape()) != 5 {
		return preprocessed{}, fmt.Errorf("ensemble: variable %q has rank %d, want 5", c.Name, len(c.Shape()))
	}
	if itime < 0 || itime >= c.T {
		return preprocessed{}, fmt.Errorf("ensemble: time index %d out of range [0,%d)", itime, c.T)
	}

	plane := c.Ny * c.Nx

	switch mode {
	case ModeEnsembleMean:
		// <T(x,y)> = sum_e T(e, itime, k=1, :, :) / E, a single z-plane.
		if c.Nz < 2 {
			return preprocessed{}, fmt.Errorf("ensemble: mode %s requires Nz >= 2, got %d", mode, c.Nz)
		}
		sum := make([]float64, plane)
		for e := 0; e < c.E; e++ {
			base := ((e*c.T+itime)*c.Nz+1) * plane
			for p := 0; p < plane; p++ {
				sum[p] += c.Data[base+p]
			}
		}
		for p := range sum {
			sum[p] /= float64(c.E)
		}
		return preprocessed{E: 1, Nz: 1, Ny: c.Ny, Nx: c.Nx, Data: sum}, nil

	case ModeAnomaly:
		nz := c.Nz
		data := make([]float64, c.E*nz*plane)
		mean := make([]float64, nz*plane)
		for e := 0; e < c.E; e++ {
			base := (e*c.T + itime) * c.Nz * plane
			dst := e * nz * plane
			copy(data[dst:dst+nz*plane], c.Data[base:base+nz*plane])
			for p := 0; p < nz*plane; p++ {
				mean[p] += data[dst+p]
			}
		}
		for p := range mean {
			mean[p] /= float64(c.E)
		}
		for e := 0; e < c.E; e++ {
			dst := e * nz * plane
			for p := 0; p < nz*plane; p++ {
				data[dst+p] -= mean[p]
			}
		}
		return preprocessed{E: c.E, Nz: nz, Ny: c.Ny, Nx: c.Nx, Data: data}, nil

	case ModeRaw:
		nz := c.Nz
		data := make([]float64, c.E*nz*plane)
		for e := 0; e < c.E; e++ {
			base := (e*c.T + itime) * c.Nz * plane
			dst := e * nz * plane
			copy(data[dst:dst+nz*plane], c.Data[base:base+nz*plane])
		}
		return preprocessed{E: c.E, Nz: nz, Ny: c.Ny, Nx: c.Nx, Data: data}, nil

	default:
		return preprocessed{}, fmt.Errorf("ensemble: bad mean mode %d, want 1, 2, or 3", int(mode))
	}
}

// decimate strides the trailing two spatial axes (y, x) of p by d,
// keeping every d-th sample, per the configured decimation factor.
func decimate(p preprocessed, d int) preprocessed {
	if d <= 1 {
		return p
	}
	ny := index.DecimatedLen(p.Ny, d)
	nx := index.DecimatedLen(p.Nx, d)
	out := make([]float64, p.E*p.Nz*ny*nx)
	n := 0
	for e := 0; e < p.E; e++ {
		for k := 0; k < p.Nz; k++ {
			for j := 0; j < p.Ny; j += d {
				for i := 0; i < p.Nx; i += d {
					src := ((e*p.Nz+k)*p.Ny+j)*p.Nx + i
					out[n] = p.Data[src]
					n++
				}
			}
		}
	}
	return preprocessed{E: p.E, Nz: p.Nz, Ny: ny, Nx: nx, Data: out}
}

// Load reads container, applies the mean-mode preprocessor and
// decimation, and returns the slab owned by mpiRank out of mpiTasks
// ranks, together with the effective (post-decimation) grid.
//
// Modes 1 and 3 are refused unless allowRaw is set: only mode 2's
// zero-mean anomaly field is compatible with the threshold kernel's
// mean(x^2) variance formula.
func Load(c *Container, itime, mpiTasks, mpiRank int, mode MeanMode, decFactor int, allowRaw bool) (Slab, index.Grid, error) {
	if mpiRank < 0 || mpiRank >= mpiTasks {
		return Slab{}, index.Grid{}, fmt.Errorf("ensemble: bad rank %d for %d tasks", mpiRank, mpiTasks)
	}
	if mode != ModeAnomaly && !allowRaw {
		return Slab{}, index.Grid{}, fmt.Errorf("ensemble: mode %s is not an anomaly covariance; pass allowRaw to use it anyway", mode)
	}
	if decFactor < 1 {
		decFactor = 1
	}

	pre, err := preprocess(c, itime, mode)
	if err != nil {
		return Slab{}, index.Grid{}, err
	}
	pre = decimate(pre, decFactor)

	grid := index.Grid{Nx: pre.Nx, Ny: pre.Ny, Nz: pre.Nz}
	ib, ie := index.Range(pre.Nx, mpiTasks, mpiRank)
	columns := ie - ib + 1
	planeSize := grid.PlaneSize()

	data := make([]float64, pre.E*planeSize*columns)
	n := 0
	for e := 0; e < pre.E; e++ {
		for p := 0; p < planeSize; p++ {
			j, k := index.PlaneToJK(p, pre.Ny)
			base := (e*pre.Nz+k)*pre.Ny*pre.Nx + j*pre.Nx
			copy(data[n:n+columns], pre.Data[base+ib:base+ib+columns])
			n += columns
		}
	}

	slab := Slab{
		Ensembles: pre.E,
		PlaneSize: planeSize,
		Stride:    columns,
		Columns:   columns,
		IB:        ib,
		Data:      data,
	}
	return slab, grid, nil
}
