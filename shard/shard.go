// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shard persists a rank's retained (B, I, J) triples to a
// self-describing binary container and reads them back.
package shard

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/nwra-gsd/bribbon/kernel"
)

const shardVersion uint64 = 1

var shardMagic = [4]byte{'B', 'R', 'B', 'S'}

// header is the fixed-size preamble: magic/version followed by the
// originating rank and the unlimited-dimension triple count N, mirroring
// the same version+shape-header-then-raw-payload convention as
// ensemble.Container (grounded on gonum/mat's MarshalBinary layout).
type header struct {
	Magic   [4]byte
	Version uint64
	Rank    int64
	N       int64
}

// Path returns the canonical shard filename for a given prefix and rank,
// "{prefix}.{rank}.brb".
func Path(dir, prefix string, rank int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d.brb", prefix, rank))
}

// Write persists one rank's triple buffer to path in the container
// format Read understands. Shards are written as-is, uncompressed
// (see the Open Question resolution recorded alongside this package).
func Write(path string, rank int, buf *kernel.TripleBuffer) error {
	n := buf.Len()
	if len(buf.I) != n || len(buf.J) != n {
		return fmt.Errorf("shard: triple buffer columns have mismatched lengths (%d, %d, %d)", n, len(buf.I), len(buf.J))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	hdr := header{Magic: shardMagic, Version: shardVersion, Rank: int64(rank), N: int64(n)}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	if err := writeFloat64s(w, buf.B); err != nil {
		return err
	}
	if err := writeInt64s(w, buf.I); err != nil {
		return err
	}
	if err := writeInt64s(w, buf.J); err != nil {
		return err
	}
	return w.Flush()
}

// Read reads a shard written by Write, returning the originating rank
// and its retained triples.
func Read(path string) (rank int, buf *kernel.TripleBuffer, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return 0, nil, fmt.Errorf("shard: reading header: %w", err)
	}
	if hdr.Magic != shardMagic {
		return 0, nil, fmt.Errorf("shard: bad magic %q, not a bribbon shard", hdr.Magic)
	}
	if hdr.Version != shardVersion {
		return 0, nil, fmt.Errorf("shard: unsupported shard version %d", hdr.Version)
	}
	if hdr.N < 0 {
		return 0, nil, fmt.Errorf("shard: negative triple count %d", hdr.N)
	}

	n := int(hdr.N)
	b, err := readFloat64s(r, n)
	if err != nil {
		return 0, nil, fmt.Errorf("shard: reading B: %w", err)
	}
	i, err := readInt64s(r, n)
	if err != nil {
		return 0, nil, fmt.Errorf("shard: reading I: %w", err)
	}
	j, err := readInt64s(r, n)
	if err != nil {
		return 0, nil, fmt.Errorf("shard: reading J: %w", err)
	}

	return int(hdr.Rank), &kernel.TripleBuffer{B: b, I: i, J: j}, nil
}

func writeFloat64s(w io.Writer, vs []float64) error {
	var b [8]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func writeInt64s(w io.Writer, vs []int64) error {
	var b [8]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func readFloat64s(r io.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	var b [8]byte
	for i := range out {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
	}
	return out, nil
}

func readInt64s(r io.Reader, n int) ([]int64, error) {
	out := make([]int64, n)
	var b [8]byte
	for i := range out {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		out[i] = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return out, nil
}

// Union reads every shard in dir matching prefix across ranks 0..size-1
// and concatenates their triples in rank order, used by tests to compare
// a multi-rank run's shard union against a single-rank baseline.
func Union(dir, prefix string, size int) (*kernel.TripleBuffer, error) {
	out := kernel.NewTripleBuffer(0)
	for r := 0; r < size; r++ {
		_, buf, err := Read(Path(dir, prefix, r))
		if err != nil {
			return nil, err
		}
		out.AppendAll(buf)
	}
	return out, nil
}
