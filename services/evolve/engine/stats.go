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
	"time"
)

// GenerationStats summarizes the elite pool after one generation.
type GenerationStats struct {
	RunID      string        `json:"run_id"`
	Generation int           `json:"generation"`
	Best       float64       `json:"best"`
	Median     float64       `json:"median"`
	PoolSize   int           `json:"pool_size"`
	Evaluated  int           `json:"evaluated"`
	Duration   time.Duration `json:"duration"`
}

// StatsSink receives per-generation statistics, e.g. a results log writer
// or the run store.
//
// Sinks are called from the run goroutine in generation order. A sink
// error is logged and does not stop the run.
type StatsSink interface {
	RecordGeneration(ctx context.Context, stats GenerationStats) error
}

// StatsSinkFunc adapts a function to StatsSink.
type StatsSinkFunc func(ctx context.Context, stats GenerationStats) error

// RecordGeneration implements StatsSink.
func (f StatsSinkFunc) RecordGeneration(ctx context.Context, stats GenerationStats) error {
	return f(ctx, stats)
}
