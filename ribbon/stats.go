// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ribbon

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarises a width vector over its nonzero entries. ArgmaxRow
// is -1 when every width is zero.
type Stats struct {
	MaxWidth        int
	ArgmaxRow       int
	AvgWidth        float64
	StdWidth        float64
	AvgWidthTrimmed float64
}

// Compute derives Stats from a width vector. Mean uses
// gonum.org/v1/gonum/stat.Mean, which agrees with the population mean
// for an unweighted sample; standard deviation is computed by hand
// because stat.StdDev/stat.Variance divide by n-1 (sample variance),
// not n, and the ribbon summary is specified in terms of the population
// statistic over the nonzero rows.
func Compute(widths []int) Stats {
	var nonzero []float64
	maxWidth := 0
	argmax := -1
	for row, w := range widths {
		if w <= 0 {
			continue
		}
		nonzero = append(nonzero, float64(w))
		if w > maxWidth {
			maxWidth = w
			argmax = row
		}
	}
	if len(nonzero) == 0 {
		return Stats{ArgmaxRow: -1}
	}

	avg := stat.Mean(nonzero, nil)
	std := popStdDev(nonzero, avg)

	trimLimit := avg + 2*std
	var trimSum float64
	var trimCount int
	for _, w := range nonzero {
		if w < trimLimit {
			trimSum += w
			trimCount++
		}
	}
	trimmed := avg
	if trimCount > 0 {
		trimmed = trimSum / float64(trimCount)
	}

	return Stats{
		MaxWidth:        maxWidth,
		ArgmaxRow:       argmax,
		AvgWidth:        avg,
		StdWidth:        std,
		AvgWidthTrimmed: trimmed,
	}
}

func popStdDev(x []float64, mean float64) float64 {
	var ss float64
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)))
}
