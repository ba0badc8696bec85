// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OTel instruments recorded by the command line around
// whole runs. Per-generation metrics live in the engine's Prometheus
// collectors.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// RunsTotal counts finished runs by status ("ok", "error", "cancelled").
	RunsTotal metric.Int64Counter

	// RunDuration records wall-clock run duration in seconds.
	RunDuration metric.Float64Histogram

	// BestFitness records the best fitness of each finished run.
	BestFitness metric.Float64Histogram

	// ArtifactsWritten counts files written after a run by kind
	// ("image", "plot", "results_log").
	ArtifactsWritten metric.Int64Counter
}

// NewMetrics creates every instrument on meter.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter("pixelgp.cli"))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
//	metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.RunsTotal, err = meter.Int64Counter(
		"pixelgp_runs_total",
		metric.WithDescription("Total evolution runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create runs_total: %w", err)
	}

	m.RunDuration, err = meter.Float64Histogram(
		"pixelgp_run_duration_seconds",
		metric.WithDescription("Evolution run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600),
	)
	if err != nil {
		return nil, fmt.Errorf("create run_duration: %w", err)
	}

	m.BestFitness, err = meter.Float64Histogram(
		"pixelgp_run_best_fitness",
		metric.WithDescription("Best fitness reached by a run"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10, 20, 40, 80, 160),
	)
	if err != nil {
		return nil, fmt.Errorf("create run_best_fitness: %w", err)
	}

	m.ArtifactsWritten, err = meter.Int64Counter(
		"pixelgp_artifacts_written_total",
		metric.WithDescription("Files written after a run"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create artifacts_written_total: %w", err)
	}

	return m, nil
}
