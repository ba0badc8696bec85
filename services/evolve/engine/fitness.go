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
	"fmt"
	"math"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FitnessMetric selects how per-channel errors combine into one score.
type FitnessMetric string

const (
	// FitnessMean averages the per-channel errors.
	FitnessMean FitnessMetric = "mean"

	// FitnessMax takes the worst per-channel error.
	FitnessMax FitnessMetric = "max"
)

// ParseFitnessMetric converts a name into a FitnessMetric.
func ParseFitnessMetric(s string) (FitnessMetric, error) {
	switch m := FitnessMetric(s); m {
	case FitnessMean, FitnessMax:
		return m, nil
	case "":
		return FitnessMean, nil
	default:
		return "", fmt.Errorf("unknown fitness metric %q", s)
	}
}

// ChannelError returns the mean absolute difference between two channels
// of equal size.
func ChannelError(output, target *gp.Channel) float64 {
	diff := make([]float64, len(target.Pix))
	floats.SubTo(diff, target.Pix, output.Pix)
	for i, d := range diff {
		diff[i] = math.Abs(d)
	}
	return stat.Mean(diff, nil)
}

// Score computes the fitness of an output image against the target's
// channels. Lower is better; zero is a pixel-perfect match. A result that
// is not a number scores +Inf so that it sorts last.
func Score(metric FitnessMetric, output *gp.Image, target []*gp.Channel) float64 {
	errs := make([]float64, gp.NumChannels)
	for i := range errs {
		errs[i] = ChannelError(output.Channels[i], target[i])
		if math.IsNaN(errs[i]) {
			return math.Inf(1)
		}
	}

	var score float64
	if metric == FitnessMax {
		score = floats.Max(errs)
	} else {
		score = stat.Mean(errs, nil)
	}
	if math.IsNaN(score) {
		return math.Inf(1)
	}
	return score
}
