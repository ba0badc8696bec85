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
	"fmt"
	"io"

	"github.com/AleutianAI/pixelgp/pkg/logging"
	"github.com/AleutianAI/pixelgp/services/evolve/engine"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pixelgp",
		Short: "Evolve image filter programs with genetic programming",
		Long: `pixelgp evolves expression-tree programs that map an input image onto a
target image. Each program has one tree per colour channel; the best
programs of every generation are bred to form the next.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(opts),
		newRunsCmd(opts),
		newInspectCmd(opts),
		newPlotCmd(),
	)
	return root
}

// loadConfig loads the file/env configuration and applies --log-level.
func (o *rootOptions) loadConfig() (engine.FullConfig, error) {
	cfg, err := engine.LoadFullConfig(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.Observability.LogLevel = o.logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger from the observability settings.
// Logs go to w so command output on stdout stays machine readable.
func newLogger(cfg engine.ObservabilityConfig, w io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.LogDir,
		Service: cfg.ServiceName,
		JSON:    cfg.LogJSON,
		Output:  w,
	}), nil
}
