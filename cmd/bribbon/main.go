// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command bribbon computes a sparse background-error covariance matrix
// from a 3-D spatial ensemble, simulating an SPMD cluster run
// in-process.
package main // import "github.com/nwra-gsd/bribbon/cmd/bribbon"

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/nwra-gsd/bribbon"
	"github.com/nwra-gsd/bribbon/ensemble"
	"github.com/nwra-gsd/bribbon/internal/rlog"
)

func defaultRanks() int {
	if n := runtime.NumCPU(); n < 8 {
		return n
	}
	return 8
}

func main() {
	infile := flag.String("infile", "Tmerged17.nc", "ensemble input container")
	varname := flag.String("varname", "T", "variable name inside the container")
	thresh := flag.Float64("thresh", 0.95, "retention threshold tau")
	dfact := flag.Int("dfact", 8, "decimation factor applied to the two trailing spatial axes")
	opref := flag.String("opref", "Bmatrix", "output filename prefix")
	outdir := flag.String("outdir", ".", "directory for shard, width, and summary output files")
	ranks := flag.Int("ranks", defaultRanks(), "number of simulated SPMD ranks")
	workers := flag.Int("workers", 1, "per-rank worker-pool width for the threshold kernel")
	meanMode := flag.Int("mean-mode", int(ensemble.ModeAnomaly), "preprocessing mode: 1 ensemble-mean, 2 anomaly, 3 raw")
	allowRawMode := flag.Bool("allow-raw-mode", false, "allow mean modes 1 and 3, which are incompatible with the kernel's zero-mean variance formula")
	plotFlag := flag.Bool("plot", false, "render a histogram of nonzero ribbon widths")
	plotBins := flag.Int("plot-bins", 32, "number of histogram bins when -plot is set")
	logLevel := flag.String("log-level", "info", "log verbosity: error, info, or debug")
	genEnsemble := flag.String("gen-ensemble", "", "write a synthetic fixture ensemble container to this path and exit")
	genShape := flag.String("gen-shape", "4,1,4,8,8", "E,T,Nz,Ny,Nx shape for -gen-ensemble")
	flag.Parse()

	if *genEnsemble != "" {
		if err := genFixture(*genEnsemble, *varname, *genShape); err != nil {
			fmt.Fprintf(os.Stderr, "bribbon: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := bribbon.Config{
		InFile:   *infile,
		VarName:  *varname,
		Thresh:   *thresh,
		DFact:    *dfact,
		OPrefix:  *opref,
		OutDir:   *outdir,
		Ranks:    *ranks,
		Workers:  *workers,
		MeanMode: ensemble.MeanMode(*meanMode),
		AllowRaw: *allowRawMode,
		Plot:     *plotFlag,
		PlotBins: *plotBins,
		LogLevel: rlog.ParseLevel(*logLevel),
	}

	summary, err := bribbon.Run(context.Background(), cfg)
	if err != nil {
		log := rlog.New(0, cfg.LogLevel)
		log.Fatalf("%v", err)
	}
	fmt.Printf("retained %d triples, max width %d (row %d), avg width %.3f, wrote %s.summary.%v.%d.txt\n",
		summary.CountAboveThreshold, summary.MaxWidth, summary.ArgmaxRow, summary.AvgWidth, cfg.OPrefix, cfg.Thresh, cfg.DFact)
}

// genFixture writes a small deterministic synthetic ensemble, the
// -gen-ensemble helper mode: a runnable repo needs a way to produce
// fixture input without a real netCDF writer.
func genFixture(path, varname, shape string) error {
	var e, t, nz, ny, nx int
	if _, err := fmt.Sscanf(shape, "%d,%d,%d,%d,%d", &e, &t, &nz, &ny, &nx); err != nil {
		return fmt.Errorf("bribbon: parsing -gen-shape %q: %w", shape, err)
	}
	n := e * t * nz * ny * nx
	data := make([]float64, n)
	seed := 0.37
	for i := range data {
		seed = seed*1.0001 + 0.618
		seed -= float64(int(seed))
		data[i] = seed*2 - 1
	}
	return ensemble.WriteContainer(path, varname, e, t, nz, ny, nx, data)
}
