// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernel implements the pairwise covariance/threshold kernel
// and the build driver that iterates it over every peer slab.
package kernel

// TripleBuffer accumulates (B, I, J) triples: B is the signed
// covariance, I and J are global linear row/column indices. It grows
// through append's amortized reallocation on overflow and never shrinks
// during a build.
type TripleBuffer struct {
	B []float64
	I []int64
	J []int64
}

// NewTripleBuffer returns an empty buffer pre-sized to capacity.
func NewTripleBuffer(capacity int) *TripleBuffer {
	return &TripleBuffer{
		B: make([]float64, 0, capacity),
		I: make([]int64, 0, capacity),
		J: make([]int64, 0, capacity),
	}
}

// Len returns the number of triples currently stored.
func (t *TripleBuffer) Len() int { return len(t.B) }

// Append records one retained triple, reallocating the backing arrays
// via append if they are at capacity.
func (t *TripleBuffer) Append(b float64, i, j int64) {
	t.B = append(t.B, b)
	t.I = append(t.I, i)
	t.J = append(t.J, j)
}

// AppendAll concatenates another buffer's triples onto this one, in
// order.
func (t *TripleBuffer) AppendAll(other *TripleBuffer) {
	t.B = append(t.B, other.B...)
	t.I = append(t.I, other.I...)
	t.J = append(t.J, other.J...)
}
