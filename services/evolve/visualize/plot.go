// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package visualize

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/AleutianAI/pixelgp/services/evolve/resultslog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned by PlotFitness when there is nothing to draw.
var ErrNoData = errors.New("no generations to plot")

// PlotOptions controls PlotFitness output.
type PlotOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// DefaultPlotOptions returns a 6x4 inch plot.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Title:  "Fitness by generation",
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
	}
}

var (
	bestColor   = color.RGBA{R: 0x16, G: 0x85, B: 0x8E, A: 0xff}
	medianColor = color.RGBA{R: 0xF4, G: 0xD0, B: 0x3F, A: 0xff}
)

// FitnessPlot builds the best/median error plot for entries.
func FitnessPlot(entries []resultslog.Entry, opts PlotOptions) (*plot.Plot, error) {
	if len(entries) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Error (%)"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	best := make(plotter.XYs, len(entries))
	median := make(plotter.XYs, len(entries))
	for i, e := range entries {
		best[i].X, best[i].Y = float64(e.Generation), e.Best
		median[i].X, median[i].Y = float64(e.Generation), e.Median
	}

	bestLine, err := plotter.NewLine(best)
	if err != nil {
		return nil, fmt.Errorf("best line: %w", err)
	}
	bestLine.Color = bestColor
	bestLine.Width = vg.Points(1.5)

	medianLine, err := plotter.NewLine(median)
	if err != nil {
		return nil, fmt.Errorf("median line: %w", err)
	}
	medianLine.Color = medianColor
	medianLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(bestLine, medianLine)
	p.Legend.Add("best", bestLine)
	p.Legend.Add("median", medianLine)
	p.Legend.Top = true

	return p, nil
}

// PlotFitness writes the fitness plot to path. The format follows the
// extension (.png, .svg, .pdf, ...).
func PlotFitness(entries []resultslog.Entry, path string, opts PlotOptions) error {
	def := DefaultPlotOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}

	p, err := FitnessPlot(entries, opts)
	if err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
