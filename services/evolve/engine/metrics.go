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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Total generations completed by phase",
		},
		[]string{"phase"},
	)

	candidatesEvaluatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "candidates_evaluated_total",
			Help:      "Total candidate programs evaluated",
		},
	)

	poolEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "pool_evictions_total",
			Help:      "Total candidates evicted from the elite pool",
		},
	)

	invariantFaultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "invariant_faults_total",
			Help:      "Total runs aborted by a structural invariant violation",
		},
	)

	bestFitness = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "best_fitness",
			Help:      "Best fitness in the elite pool after the last generation",
		},
	)

	medianFitness = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "median_fitness",
			Help:      "Median fitness in the elite pool after the last generation",
		},
	)

	poolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "pool_size",
			Help:      "Elite pool size after the last generation",
		},
	)

	trialDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "trial_duration_seconds",
			Help:      "Time to build and score one candidate",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	generationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pixelgp",
			Subsystem: "engine",
			Name:      "generation_duration_seconds",
			Help:      "Time to complete one generation",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// recordGeneration publishes the pool state after a generation.
func recordGeneration(phase State, stats GenerationStats) {
	generationsTotal.WithLabelValues(phase.String()).Inc()
	bestFitness.Set(stats.Best)
	medianFitness.Set(stats.Median)
	poolSize.Set(float64(stats.PoolSize))
	generationDurationSeconds.Observe(stats.Duration.Seconds())
}
