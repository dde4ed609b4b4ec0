// Copyright ©2024 The Bribbon Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bribbon composes the index, ensemble, comm, kernel, ribbon,
// and shard packages into one runnable job: it simulates a P-rank SPMD
// program in-process, one goroutine per rank, and produces the same
// three outputs a real cluster run would (per-rank shards, a width
// vector, and a summary).
package bribbon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nwra-gsd/bribbon/comm"
	"github.com/nwra-gsd/bribbon/ensemble"
	"github.com/nwra-gsd/bribbon/index"
	"github.com/nwra-gsd/bribbon/internal/rankerr"
	"github.com/nwra-gsd/bribbon/internal/rlog"
	"github.com/nwra-gsd/bribbon/kernel"
	"github.com/nwra-gsd/bribbon/ribbon"
	"github.com/nwra-gsd/bribbon/shard"
)

// Config parameterises one orchestrated run, one field per CLI flag the
// command exposes.
type Config struct {
	InFile   string
	VarName  string
	Thresh   float64
	DFact    int
	OPrefix  string
	OutDir   string
	Ranks    int
	Workers  int
	MeanMode ensemble.MeanMode
	AllowRaw bool
	Plot     bool
	PlotBins int
	LogLevel rlog.Level
}

// Summary is the run's final key/value report, matching every field
// the summary file carries.
type Summary struct {
	InFile              string
	VarName             string
	DFact               int
	Thresh              float64
	CountAboveThreshold int
	OutPrefix           string
	MaxPossibleWidth    int
	MaxWidth            int
	ArgmaxRow           int
	AvgWidth            float64
	AvgWidthTrimmed     float64
	WallClockSeconds    float64
}

// Run loads infile, simulates cfg.Ranks SPMD ranks over it, writes a
// shard per rank plus a shared width vector and summary file under
// cfg.OutDir, and returns the summary. Any rank's error aborts the
// whole run.
func Run(ctx context.Context, cfg Config) (*Summary, error) {
	container, err := ensemble.ReadContainer(cfg.InFile)
	if err != nil {
		return nil, rankerr.Wrap(rankerr.KindInput, err, "bribbon: reading ensemble container")
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, rankerr.Wrap(rankerr.KindResource, err, "bribbon: creating output directory")
	}

	handles := comm.NewInProcess(cfg.Ranks)
	widthsByRank := make([][]int, cfg.Ranks)
	globalCountByRank := make([]int, cfg.Ranks)
	globalWallClockByRank := make([]float64, cfg.Ranks)

	grp, gctx := errgroup.WithContext(ctx)
	for r := 0; r < cfg.Ranks; r++ {
		r := r
		grp.Go(func() error {
			log := rlog.New(r, cfg.LogLevel)
			return runRank(gctx, cfg, handles[r], container, log, widthsByRank, globalCountByRank, globalWallClockByRank)
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	widths := widthsByRank[0]
	stats := ribbon.Compute(widths)

	summary := &Summary{
		InFile:              cfg.InFile,
		VarName:             cfg.VarName,
		DFact:               cfg.DFact,
		Thresh:              cfg.Thresh,
		CountAboveThreshold: globalCountByRank[0],
		OutPrefix:           cfg.OPrefix,
		MaxPossibleWidth:    len(widths), // G, not G-1
		MaxWidth:            stats.MaxWidth,
		ArgmaxRow:           stats.ArgmaxRow,
		AvgWidth:            stats.AvgWidth,
		AvgWidthTrimmed:     stats.AvgWidthTrimmed,
		WallClockSeconds:    globalWallClockByRank[0],
	}

	widthsPath := filepath.Join(cfg.OutDir, fmt.Sprintf("%s.width.%v.%d.txt", cfg.OPrefix, cfg.Thresh, cfg.DFact))
	if err := ribbon.WriteWidths(widthsPath, widths); err != nil {
		return nil, rankerr.Wrap(rankerr.KindResource, err, "bribbon: writing width vector")
	}
	if cfg.Plot {
		plotPath := filepath.Join(cfg.OutDir, fmt.Sprintf("%s.widths.%v.%d.png", cfg.OPrefix, cfg.Thresh, cfg.DFact))
		if err := ribbon.WritePlot(plotPath, widths, cfg.PlotBins); err != nil {
			return nil, rankerr.Wrap(rankerr.KindResource, err, "bribbon: writing width histogram")
		}
	}
	if err := writeSummary(filepath.Join(cfg.OutDir, fmt.Sprintf("%s.summary.%v.%d.txt", cfg.OPrefix, cfg.Thresh, cfg.DFact)), summary); err != nil {
		return nil, rankerr.Wrap(rankerr.KindResource, err, "bribbon: writing summary")
	}

	return summary, nil
}

// runRank executes one simulated rank's share of the job: load its
// slab, exchange it with every other rank, build its triples, persist
// its shard, and contribute to the shared ribbon reduction. The global
// retained-triple count and run-time are produced by the SUM and MAX
// all-reduces themselves, not read back off another rank's memory.
func runRank(ctx context.Context, cfg Config, c comm.Communicator, container *ensemble.Container, log *rlog.Logger, widthsByRank [][]int, globalCountByRank []int, globalWallClockByRank []float64) error {
	rankStart := time.Now()

	local, grid, err := ensemble.Load(container, 0, cfg.Ranks, c.Rank(), cfg.MeanMode, cfg.DFact, cfg.AllowRaw)
	if err != nil {
		return rankerr.Wrap(rankerr.KindInput, err, "bribbon: loading slab")
	}

	if err := c.Barrier(ctx); err != nil {
		return err
	}

	maxWidth := index.MaxWidth(grid.Nx, cfg.Ranks)
	padded := local.PadTo(maxWidth)
	raw, err := c.Allgather(ctx, padded)
	if err != nil {
		return err
	}

	peers := make([]ensemble.Slab, cfg.Ranks)
	for r := range raw {
		ib, ie := index.Range(grid.Nx, cfg.Ranks, r)
		peers[r] = ensemble.FromGathered(raw[r], local.Ensembles, local.PlaneSize, maxWidth, ie-ib+1, ib)
	}

	if err := c.Barrier(ctx); err != nil {
		return err
	}

	driver := kernel.Driver{Grid: grid, Thresh: cfg.Thresh, Workers: cfg.Workers}
	buf, err := driver.Build(local, peers)
	if err != nil {
		return rankerr.Wrap(rankerr.KindSanity, err, "bribbon: building triples")
	}
	log.Infof("retained %d triples", buf.Len())

	shardPath := shard.Path(cfg.OutDir, cfg.OPrefix, c.Rank())
	if err := shard.Write(shardPath, c.Rank(), buf); err != nil {
		return rankerr.Wrap(rankerr.KindResource, err, "bribbon: writing shard")
	}

	widths, err := ribbon.Reduce(ctx, c, grid.G(), buf)
	if err != nil {
		return rankerr.Wrap(rankerr.KindSanity, err, "bribbon: ribbon reduction")
	}
	widthsByRank[c.Rank()] = widths

	gcount, err := c.AllreduceSumInt(ctx, buf.Len())
	if err != nil {
		return err
	}
	globalCountByRank[c.Rank()] = gcount

	gdt, err := c.AllreduceMaxFloat(ctx, time.Since(rankStart).Seconds())
	if err != nil {
		return err
	}
	globalWallClockByRank[c.Rank()] = gdt

	return c.Barrier(ctx)
}

func writeSummary(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	lines := []string{
		fmt.Sprintf("infile: %s", s.InFile),
		fmt.Sprintf("varname: %s", s.VarName),
		fmt.Sprintf("dfact: %d", s.DFact),
		fmt.Sprintf("thresh: %v", s.Thresh),
		fmt.Sprintf("count_above_threshold: %d", s.CountAboveThreshold),
		fmt.Sprintf("opref: %s", s.OutPrefix),
		fmt.Sprintf("max_possible_width: %d", s.MaxPossibleWidth),
		fmt.Sprintf("max_width: %d", s.MaxWidth),
		fmt.Sprintf("argmax_row: %d", s.ArgmaxRow),
		fmt.Sprintf("avg_width: %v", s.AvgWidth),
		fmt.Sprintf("avg_width_trimmed: %v", s.AvgWidthTrimmed),
		fmt.Sprintf("wall_clock_seconds: %v", s.WallClockSeconds),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return err
		}
	}
	return nil
}
