// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/AleutianAI/pixelgp/pkg/ux"
	"github.com/AleutianAI/pixelgp/services/evolve/resultslog"
	"github.com/AleutianAI/pixelgp/services/evolve/visualize"
	"github.com/spf13/cobra"
)

func newPlotCmd() *cobra.Command {
	var (
		out   string
		title string
	)

	cmd := &cobra.Command{
		Use:   "plot RESULTS_LOG",
		Short: "Plot best and median error from a results log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := resultslog.ReadFile(args[0])
			if err != nil {
				return err
			}
			opts := visualize.DefaultPlotOptions()
			if title != "" {
				opts.Title = title
			}
			if err := visualize.PlotFitness(entries, out, opts); err != nil {
				return err
			}
			ux.NewPrinter(cmd.OutOrStdout()).Success("wrote " + out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "fitness.png", "Output file (PNG, SVG or PDF)")
	cmd.Flags().StringVar(&title, "title", "", "Plot title")
	return cmd
}
