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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/AleutianAI/pixelgp/pkg/logging"
	"github.com/AleutianAI/pixelgp/pkg/ux"
	"github.com/AleutianAI/pixelgp/services/evolve/engine"
	"github.com/AleutianAI/pixelgp/services/evolve/imageio"
	"github.com/AleutianAI/pixelgp/services/evolve/resultslog"
	"github.com/AleutianAI/pixelgp/services/evolve/storage/badger"
	"github.com/AleutianAI/pixelgp/services/evolve/telemetry"
	"github.com/AleutianAI/pixelgp/services/evolve/visualize"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// previewColumns is the width of each terminal preview panel.
const previewColumns = 32

// runFlags holds the flag values of the run command. Only flags the user
// set override the file/env configuration.
type runFlags struct {
	input        string
	target       string
	population   int
	pool         int
	generations  int
	depth        int
	seed         int64
	workers      int
	fitness      string
	mutationRate float64
	out          string
	results      string
	plot         string
	db           string
	preview      bool
	metricsAddr  string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve a program that maps the input image onto the target",
		Long: `Runs the generational loop and writes the requested artifacts: the best
program's output image, the results log, a fitness plot and, with --db, a
persistent run record that "pixelgp runs" and "pixelgp inspect" can read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return executeRun(ctx, cfg, f.input, f.target, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "", "Input image (PNG or JPEG)")
	fl.StringVar(&f.target, "target", "", "Target image, same size as the input")
	fl.IntVar(&f.population, "population", 0, "Trials per generation")
	fl.IntVar(&f.pool, "pool", 0, "Breeding pool size")
	fl.IntVar(&f.generations, "generations", 0, "Number of generations")
	fl.IntVar(&f.depth, "depth", 0, "Maximum initial tree depth")
	fl.Int64Var(&f.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	fl.IntVar(&f.workers, "workers", 0, "Trials evaluated concurrently")
	fl.StringVar(&f.fitness, "fitness", "", "Fitness metric: mean or max")
	fl.Float64Var(&f.mutationRate, "mutation-rate", 0, "Per-channel mutation chance of a bred child")
	fl.StringVar(&f.out, "out", "", "Write the best program's output image here")
	fl.StringVar(&f.results, "results", "", "Write the per-generation results log here")
	fl.StringVar(&f.plot, "plot", "", "Write a fitness plot (PNG, SVG or PDF) here")
	fl.StringVar(&f.db, "db", "", "Record the run in the store at this directory")
	fl.BoolVar(&f.preview, "preview", false, "Show input, target and best output in the terminal")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address during the run")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

// apply copies the flags the user set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *engine.FullConfig) {
	changed := cmd.Flags().Changed

	if changed("population") {
		cfg.Evolution.Population = f.population
	}
	if changed("pool") {
		cfg.Evolution.BreedingPoolSize = f.pool
	}
	if changed("generations") {
		cfg.Evolution.Generations = f.generations
	}
	if changed("depth") {
		cfg.Evolution.MaxInitialDepth = f.depth
	}
	if changed("seed") {
		cfg.Evolution.Seed = f.seed
	}
	if changed("workers") {
		cfg.Parallel.Workers = f.workers
	}
	if changed("fitness") {
		cfg.Evolution.Fitness = engine.FitnessMetric(f.fitness)
	}
	if changed("mutation-rate") {
		cfg.Evolution.MutationRate = f.mutationRate
	}
	if changed("out") {
		cfg.Output.Image = f.out
	}
	if changed("results") {
		cfg.Output.ResultsLog = f.results
	}
	if changed("plot") {
		cfg.Output.Plot = f.plot
	}
	if changed("db") {
		cfg.Storage.Enabled = f.db != ""
		cfg.Storage.Path = f.db
	}
	if changed("preview") {
		cfg.Output.Preview = f.preview
	}
	if changed("metrics-addr") {
		cfg.Observability.MetricsAddr = f.metricsAddr
	}
}

// executeRun performs one evolution run with every configured side output.
//
// Description:
//
//	Sets up logging, telemetry, the optional metrics server and run store,
//	runs the engine and writes the artifacts. A cancelled run still
//	records what it completed and writes its artifacts, then returns the
//	context error.
//
// Inputs:
//
//	ctx - Cancelling ctx stops the run between generations.
//	cfg - Validated configuration.
//	inputPath, targetPath - Image files.
//	out - Receives the run summary.
//	errOut - Receives logs and the progress bar.
func executeRun(ctx context.Context, cfg engine.FullConfig, inputPath, targetPath string, out, errOut io.Writer) (err error) {
	log, err := newLogger(cfg.Observability, errOut)
	if err != nil {
		return err
	}
	defer log.Close()
	logger := log.Slog()

	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceName = cfg.Observability.ServiceName
	telCfg.TraceExporter = cfg.Observability.TraceExporter
	telCfg.MetricExporter = cfg.Observability.MetricExporter
	telCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	telCfg.Writer = errOut
	shutdown, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := shutdown(sctx); serr != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", serr.Error()))
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter("pixelgp.cli"))
	if err != nil {
		return err
	}

	input, err := imageio.Load(inputPath)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	target, err := imageio.Load(targetPath)
	if err != nil {
		return fmt.Errorf("load target: %w", err)
	}

	var currentRun atomic.Value
	currentRun.Store("")
	tracker := engine.StatsSinkFunc(func(_ context.Context, stats engine.GenerationStats) error {
		currentRun.Store(stats.RunID)
		return nil
	})
	sinks := []engine.StatsSink{tracker}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv, err := startMetricsServer(addr, func() string { return currentRun.Load().(string) }, logger)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	var results *resultslog.Writer
	if path := cfg.Output.ResultsLog; path != "" {
		results, err = resultslog.Create(path, cfg.Output.FullScale)
		if err != nil {
			return fmt.Errorf("create results log: %w", err)
		}
		defer results.Close()
		sinks = append(sinks, results)
	}

	var store *badger.RunStore
	if cfg.Storage.Enabled {
		db, err := openStore(cfg.Storage.Path, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		store = badger.NewRunStore(db, logger)
		sinks = append(sinks, store)
	}

	bar := ux.NewProgressBar(errOut, cfg.Evolution.Generations)
	sinks = append(sinks, engine.StatsSinkFunc(func(_ context.Context, stats engine.GenerationStats) error {
		bar.Set(stats.Generation, fmt.Sprintf("gen %d  best %.4f%%  median %.4f%%",
			stats.Generation,
			resultslog.Percent(stats.Best, cfg.Output.FullScale),
			resultslog.Percent(stats.Median, cfg.Output.FullScale),
		))
		return nil
	}))

	tracingOn := cfg.Observability.TracingEnabled || cfg.Observability.TraceExporter != "none"
	eng, err := engine.New(cfg.EngineConfig(),
		engine.WithLogger(logger),
		engine.WithSinks(sinks...),
		engine.WithTracer(engine.NewTracer(logger, tracingOn)),
	)
	if err != nil {
		return err
	}

	started := time.Now()
	result, runErr := eng.Run(ctx, input, target)
	bar.Finish()
	elapsed := time.Since(started)

	// Recording must survive a cancelled run context.
	bg := context.Background()
	status := "ok"
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = "cancelled"
	default:
		status = "error"
	}
	metrics.RunsTotal.Add(bg, 1, metric.WithAttributes(attribute.String("status", status)))
	metrics.RunDuration.Record(bg, elapsed.Seconds())

	if result == nil {
		return runErr
	}
	runLogger := telemetry.LoggerWithRun(ctx, logger, result.RunID)

	if store != nil {
		info := badger.RunMeta{Input: inputPath, Target: targetPath, StartedAt: started}
		if err := store.FinishRun(bg, info, result, runErr); err != nil {
			runLogger.Error("record run failed", slog.String("error", err.Error()))
		}
	}

	artifacts, artErr := writeArtifacts(cfg.Output, result, metrics)
	if artErr != nil {
		runLogger.Error("write artifacts failed", slog.String("error", artErr.Error()))
	}

	printSummary(out, cfg, result, elapsed, artifacts, runErr)
	if cfg.Output.Preview && result.Best != nil {
		ux.NewPrinter(out).Raw(visualize.SideBySide(previewColumns,
			visualize.Panel{Title: "input", Image: input},
			visualize.Panel{Title: "target", Image: target},
			visualize.Panel{Title: "best", Image: result.Best.Output},
		))
	}

	if result.Best != nil {
		metrics.BestFitness.Record(bg, result.Best.Fitness)
	}
	return errors.Join(runErr, artErr)
}

// openStore opens the on-disk run store at path, expanding a leading ~.
func openStore(path string, logger *slog.Logger) (*badger.DB, error) {
	dbCfg := badger.DefaultConfig(logging.ExpandPath(path))
	dbCfg.Logger = logger
	db, err := badger.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return db, nil
}

// writeArtifacts writes the best image and the fitness plot. It returns
// the kind and path of every file written.
func writeArtifacts(out engine.OutputConfig, result *engine.Result, metrics *telemetry.Metrics) ([][2]string, error) {
	var written [][2]string
	var errs []error
	record := func(kind, path string) {
		written = append(written, [2]string{kind, path})
		metrics.ArtifactsWritten.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
	}

	if out.ResultsLog != "" && len(result.Stats) > 0 {
		record("results_log", out.ResultsLog)
	}

	if out.Image != "" && result.Best != nil {
		if err := imageio.Save(out.Image, result.Best.Output); err != nil {
			errs = append(errs, fmt.Errorf("save image: %w", err))
		} else {
			record("image", out.Image)
		}
	}

	if out.Plot != "" && len(result.Stats) > 0 {
		entries := resultslog.FromStats(result.Stats, out.FullScale)
		if err := visualize.PlotFitness(entries, out.Plot, visualize.DefaultPlotOptions()); err != nil {
			errs = append(errs, fmt.Errorf("write plot: %w", err))
		} else {
			record("plot", out.Plot)
		}
	}
	return written, errors.Join(errs...)
}

// printSummary reports the run outcome.
func printSummary(w io.Writer, cfg engine.FullConfig, result *engine.Result, elapsed time.Duration, artifacts [][2]string, runErr error) {
	p := ux.NewPrinter(w)
	p.Title("pixelgp run " + result.RunID)

	pairs := []string{
		"run_id", result.RunID,
		"seed", strconv.FormatInt(result.Seed, 10),
		"generations", fmt.Sprintf("%d/%d", len(result.Stats), result.Config.Generations),
		"elapsed", elapsed.Round(time.Millisecond).String(),
	}
	if result.Best != nil {
		pairs = append(pairs,
			"best_fitness", strconv.FormatFloat(result.Best.Fitness, 'f', 4, 64),
			"best_error", fmt.Sprintf("%.4f%%", resultslog.Percent(result.Best.Fitness, cfg.Output.FullScale)),
			"best_size", strconv.Itoa(result.Best.Program.Size()),
		)
	}
	for _, a := range artifacts {
		pairs = append(pairs, a[0], a[1])
	}
	p.KeyValues(pairs...)

	switch {
	case runErr == nil:
		p.Success("run complete")
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		p.Warning("run cancelled after " + strconv.Itoa(len(result.Stats)) + " generations")
	default:
		p.Error(runErr.Error())
	}
}
