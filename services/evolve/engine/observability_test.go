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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func TestTracer_Disabled(t *testing.T) {
	tracer := NewTracer(nil, false)

	_, span := tracer.StartRun(context.Background(), "run-1", DefaultConfig())
	assert.False(t, span.SpanContext().IsValid())
	tracer.EndRun(span, nil, nil)

	_, span = tracer.TraceGeneration(context.Background(), 1, StateFirstGeneration)
	assert.False(t, span.SpanContext().IsValid())
	tracer.EndGeneration(context.Background(), span, GenerationStats{}, nil)

	_, span = tracer.TraceTrial(context.Background(), 0)
	tracer.EndTrial(span, nil, nil)
}

func TestTracer_NilSpan(t *testing.T) {
	tracer := NewTracer(nil, true)
	tracer.EndRun(nil, nil, nil)
	tracer.EndGeneration(context.Background(), nil, GenerationStats{}, nil)
	tracer.EndTrial(nil, nil, nil)
}

func TestTracer_RunSpans(t *testing.T) {
	sr := recordSpans(t)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cfg := smallConfig()
	cfg.Population = 4
	cfg.BreedingPoolSize = 2
	cfg.Generations = 2

	e, err := New(cfg, WithLogger(logger), WithTracer(NewTracer(logger, true)))
	require.NoError(t, err)

	_, err = e.Run(context.Background(), gp.SolidImage(2, 2, 1, 2, 3), gp.SolidImage(2, 2, 3, 2, 1))
	require.NoError(t, err)

	counts := map[string]int{}
	var runSpan sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		counts[s.Name()]++
		if s.Name() == "pixelgp.run" {
			runSpan = s
		}
	}
	assert.Equal(t, 1, counts["pixelgp.run"])
	assert.Equal(t, 2, counts["pixelgp.generation"])
	assert.Equal(t, 8, counts["pixelgp.trial"])

	require.NotNil(t, runSpan)
	assert.Equal(t, codes.Ok, runSpan.Status().Code)
	for _, s := range sr.Ended() {
		if s.Name() == "pixelgp.run" {
			continue
		}
		assert.Equal(t, runSpan.SpanContext().TraceID(), s.SpanContext().TraceID(), "one trace per run")
	}

	assert.Contains(t, logs.String(), "run started")
	assert.Contains(t, logs.String(), "generation complete")
	assert.Contains(t, logs.String(), "run completed")
}

func TestTracer_EndRunWithError(t *testing.T) {
	sr := recordSpans(t)

	var logs bytes.Buffer
	tracer := NewTracer(slog.New(slog.NewTextHandler(&logs, nil)), true)

	_, span := tracer.StartRun(context.Background(), "run-err", DefaultConfig())
	tracer.EndRun(span, &Result{RunID: "run-err"}, errors.New("boom"))

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Contains(t, logs.String(), "run failed")
}

func TestTracer_TrialAttributes(t *testing.T) {
	sr := recordSpans(t)
	tracer := NewTracer(quietLogger(), true)

	prog := gp.NewProgram(4)
	require.NoError(t, prog.SetInput(gp.SolidImage(1, 1, 1, 1, 1)))
	prog.Generate(newTestRand(3))

	_, span := tracer.TraceTrial(context.Background(), 7)
	tracer.EndTrial(span, &Candidate{Program: prog, Fitness: 2.5}, nil)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	attrs := map[string]any{}
	for _, kv := range ended[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(7), attrs["pixelgp.trial"])
	assert.Equal(t, 2.5, attrs["pixelgp.trial.fitness"])
	assert.Equal(t, int64(prog.Size()), attrs["pixelgp.trial.size"])
	assert.Equal(t, trace.SpanKindInternal, ended[0].SpanKind())
}
