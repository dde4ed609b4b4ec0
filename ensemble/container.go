// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ensemble

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// containerVersion is the current on-disk codec version for an ensemble
// container.
const containerVersion uint64 = 1

// header is the fixed-size preamble of a container file: a magic/version
// tag followed by the 5-D shape (E, T, Nz, Ny, Nx) of the variable it
// holds. The variable name follows immediately after the header as a
// length-prefixed UTF-8 string, then the raw little-endian float64
// payload in (E, T, Nz, Ny, Nx) row-major order.
//
// This mirrors gonum/mat's MarshalBinary convention (version + shape
// header, then raw little-endian payload) rather than binding to a real
// netCDF4 library, since no cgo netCDF binding exists anywhere in this
// corpus and fabricating one would not be learning an idiom anyone here
// actually uses.
type header struct {
	Magic   [4]byte
	Version uint64
	E, T, Nz, Ny, Nx int64
}

var containerMagic = [4]byte{'B', 'R', 'B', 'E'}

var headerSize = binary.Size(header{})

// Container is an in-memory, fully-read ensemble field: shape
// (E, T, Nz, Ny, Nx), row-major, as read from disk by ReadContainer.
type Container struct {
	Name                string
	E, T, Nz, Ny, Nx int
	Data                []float64
}

// Shape returns the container's five dimensions, for the "variable rank"
// check: an input error if rank != 5.
func (c *Container) Shape() []int {
	return []int{c.E, c.T, c.Nz, c.Ny, c.Nx}
}

// At returns the sample for ensemble member e, time t, and grid point
// (k, j, i).
func (c *Container) At(e, t, k, j, i int) float64 {
	idx := (((e*c.T+t)*c.Nz+k)*c.Ny+j)*c.Nx + i
	return c.Data[idx]
}

// WriteContainer writes a synthetic or precomputed ensemble field to
// path in the format ReadContainer understands. It gives the repo a
// concrete, self-contained format so it is runnable end to end without
// a third-party netCDF dependency, and so
// tests can produce fixtures without fixture files checked into the
// repo.
func WriteContainer(path, name string, e, t, nz, ny, nx int, data []float64) error {
	want := e * t * nz * ny * nx
	if len(data) != want {
		return fmt.Errorf("ensemble: data has %d samples, want %d for shape (%d,%d,%d,%d,%d)", len(data), want, e, t, nz, ny, nx)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	hdr := header{Magic: containerMagic, Version: containerVersion, E: int64(e), T: int64(t), Nz: int64(nz), Ny: int64(ny), Nx: int64(nx)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	nameBytes := []byte(name)
	if err := binary.Write(w, binary.LittleEndian, int64(len(nameBytes))); err != nil {
		return err
	}
	if _, err := w.Write(nameBytes); err != nil {
		return err
	}

	var b [8]byte
	for _, v := range data {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadContainer reads an ensemble container written by WriteContainer.
// It returns an input error (caller should classify it via rankerr) if
// the magic/version does not match or the variable name is missing.
func ReadContainer(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("ensemble: reading header: %w", err)
	}
	if hdr.Magic != containerMagic {
		return nil, fmt.Errorf("ensemble: bad magic %q, not a bribbon ensemble container", hdr.Magic)
	}
	if hdr.Version != containerVersion {
		return nil, fmt.Errorf("ensemble: unsupported container version %d", hdr.Version)
	}

	var nameLen int64
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("ensemble: reading variable name length: %w", err)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, fmt.Errorf("ensemble: reading variable name: %w", err)
	}

	n := int(hdr.E * hdr.T * hdr.Nz * hdr.Ny * hdr.Nx)
	if n < 0 {
		return nil, fmt.Errorf("ensemble: invalid shape (%d,%d,%d,%d,%d)", hdr.E, hdr.T, hdr.Nz, hdr.Ny, hdr.Nx)
	}
	raw := make([]byte, n*8)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("ensemble: reading payload: %w", err)
	}
	data := make([]float64, n)
	rd := bytes.NewReader(raw)
	var b [8]byte
	for i := range data {
		if _, err := io.ReadFull(rd, b[:]); err != nil {
			return nil, err
		}
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
	}

	return &Container{
		Name: string(nameBytes),
		E:    int(hdr.E), T: int(hdr.T), Nz: int(hdr.Nz), Ny: int(hdr.Ny), Nx: int(hdr.Nx),
		Data: data,
	}, nil
}
