// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry bootstraps OpenTelemetry for pixelgp.
//
// Init installs a TracerProvider and MeterProvider chosen by configuration.
// The engine creates its spans through the global otel.Tracer, so a run
// is traced as soon as Init has installed a real provider. With both
// exporters set to "none" Init installs nothing and every span is a no-op.
//
// # Exporters
//
//   - Traces: "otlp" (or its alias "jaeger"), "stdout", "none".
//   - Metrics: "prometheus", "stdout", "none".
//
// The Prometheus exporter registers with the default registry, which also
// carries the engine's promauto collectors, so MetricsHandler serves both.
//
// # Logging
//
// LoggerWithTrace and LoggerWithRun add trace_id, span_id and run_id
// fields to an slog.Logger so log lines can be joined to traces.
//
// # Environment Variables
//
//   - OTEL_TRACES_EXPORTER: trace exporter (default: none)
//   - OTEL_METRICS_EXPORTER: metric exporter (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - PIXELGP_ENV: deployment environment (default: development)
//
// # Thread Safety
//
// Init must be called once at startup. Everything else is safe for
// concurrent use.
package telemetry
