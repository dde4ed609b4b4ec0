// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ribbon

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WritePlot renders a histogram of the nonzero ribbon widths to path, an
// optional diagnostic (-plot) with no bearing on the summary text or
// width file. Rows with width 0 are excluded, matching what Compute
// already excludes from the population statistics.
func WritePlot(path string, widths []int, bins int) error {
	var nonzero plotter.Values
	for _, w := range widths {
		if w > 0 {
			nonzero = append(nonzero, float64(w))
		}
	}
	if len(nonzero) == 0 {
		return fmt.Errorf("ribbon: no nonzero widths to plot")
	}

	p := plot.New()
	p.Title.Text = "Ribbon width distribution"
	p.X.Label.Text = "Width"
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(nonzero, bins)
	if err != nil {
		return fmt.Errorf("ribbon: histogram: %w", err)
	}
	p.Add(h, plotter.NewGrid())

	return p.Save(16*vg.Centimeter, 8*vg.Centimeter, path)
}
