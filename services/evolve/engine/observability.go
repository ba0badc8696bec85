// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/pixelgp/services/evolve/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const engineTracerName = "pixelgp.engine"

// Tracer provides OpenTelemetry spans for runs, generations and trials.
//
// Thread Safety: Safe for concurrent use.
type Tracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewTracer creates a tracer using the global tracer provider.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil for slog.Default()).
//   - enabled: When false every span is a no-op.
//
// Outputs:
//   - *Tracer: Tracer instance.
func NewTracer(logger *slog.Logger, enabled bool) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		tracer:  otel.Tracer(engineTracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// StartRun starts the span covering a whole run.
//
// Inputs:
//   - ctx: Parent context.
//   - runID: Run identifier.
//   - cfg: Run parameters, recorded as attributes.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span (no-op if tracing disabled).
func (t *Tracer) StartRun(ctx context.Context, runID string, cfg Config) (context.Context, trace.Span) {
	t.logger.InfoContext(ctx, "run started",
		slog.String("run_id", runID),
		slog.Int("population", cfg.Population),
		slog.Int("pool_size", cfg.BreedingPoolSize),
		slog.Int("generations", cfg.Generations),
		slog.Int("max_depth", cfg.MaxInitialDepth),
		slog.Int("workers", cfg.Workers),
		slog.String("fitness", string(cfg.Fitness)),
	)

	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "pixelgp.run",
		trace.WithAttributes(
			attribute.String("pixelgp.run_id", runID),
			attribute.Int("pixelgp.population", cfg.Population),
			attribute.Int("pixelgp.pool_size", cfg.BreedingPoolSize),
			attribute.Int("pixelgp.generations", cfg.Generations),
			attribute.Int("pixelgp.max_depth", cfg.MaxInitialDepth),
			attribute.Int("pixelgp.workers", cfg.Workers),
			attribute.Int64("pixelgp.seed", cfg.Seed),
			attribute.String("pixelgp.fitness", string(cfg.Fitness)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndRun completes the run span.
//
// Inputs:
//   - span: The span to end.
//   - result: The run result (can be nil).
//   - err: Error if the run failed.
func (t *Tracer) EndRun(span trace.Span, result *Result, err error) {
	if span == nil {
		return
	}

	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetSpanOK(span)
	}

	attrs := []slog.Attr{}
	if result != nil {
		span.SetAttributes(attribute.Int("pixelgp.result.generations", len(result.Stats)))
		attrs = append(attrs, slog.String("run_id", result.RunID), slog.Int("generations", len(result.Stats)))
		if result.Best != nil {
			span.SetAttributes(attribute.Float64("pixelgp.result.best_fitness", result.Best.Fitness))
			attrs = append(attrs, slog.Float64("best_fitness", result.Best.Fitness))
		}
	}
	span.End()

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		t.logger.LogAttrs(context.Background(), slog.LevelError, "run failed", attrs...)
		return
	}
	t.logger.LogAttrs(context.Background(), slog.LevelInfo, "run completed", attrs...)
}

// TraceGeneration starts a span for one generation.
func (t *Tracer) TraceGeneration(ctx context.Context, generation int, phase State) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "pixelgp.generation",
		trace.WithAttributes(
			attribute.Int("pixelgp.generation", generation),
			attribute.String("pixelgp.phase", phase.String()),
		),
	)
}

// EndGeneration completes the generation span and logs its statistics.
func (t *Tracer) EndGeneration(ctx context.Context, span trace.Span, stats GenerationStats, err error) {
	if span == nil {
		return
	}

	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetSpanOK(span)
	}
	span.SetAttributes(
		attribute.Float64("pixelgp.generation.best", stats.Best),
		attribute.Float64("pixelgp.generation.median", stats.Median),
		attribute.Int("pixelgp.generation.pool_size", stats.PoolSize),
		attribute.Int("pixelgp.generation.evaluated", stats.Evaluated),
	)
	span.End()

	if err != nil {
		return
	}
	telemetry.LoggerWithTrace(ctx, t.logger).Info("generation complete",
		slog.String("run_id", stats.RunID),
		slog.Int("generation", stats.Generation),
		slog.Float64("best", stats.Best),
		slog.Float64("median", stats.Median),
		slog.Int("pool_size", stats.PoolSize),
		slog.Duration("duration", stats.Duration),
	)
}

// TraceTrial starts a span for one candidate.
func (t *Tracer) TraceTrial(ctx context.Context, index int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "pixelgp.trial",
		trace.WithAttributes(attribute.Int("pixelgp.trial", index)),
	)
}

// EndTrial completes the trial span.
func (t *Tracer) EndTrial(span trace.Span, c *Candidate, err error) {
	if span == nil {
		return
	}
	if err != nil {
		telemetry.RecordError(span, err)
	} else if c != nil {
		span.SetAttributes(
			attribute.Float64("pixelgp.trial.fitness", c.Fitness),
			attribute.Int("pixelgp.trial.size", c.Program.Size()),
		)
	}
	span.End()
}
