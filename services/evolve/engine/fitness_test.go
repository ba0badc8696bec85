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
	"math"
	"testing"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFitnessMetric(t *testing.T) {
	m, err := ParseFitnessMetric("max")
	require.NoError(t, err)
	assert.Equal(t, FitnessMax, m)

	m, err = ParseFitnessMetric("")
	require.NoError(t, err)
	assert.Equal(t, FitnessMean, m)

	_, err = ParseFitnessMetric("median")
	assert.Error(t, err)
}

func TestChannelError(t *testing.T) {
	out := &gp.Channel{Width: 2, Height: 2, Pix: []float64{1, 2, 3, 4}}
	target := &gp.Channel{Width: 2, Height: 2, Pix: []float64{2, 2, 1, 8}}

	// |1| + 0 + |2| + |4| over 4 pixels
	assert.InDelta(t, 1.75, ChannelError(out, target), 1e-12)
	assert.Zero(t, ChannelError(target, target))
}

func TestScore(t *testing.T) {
	target, err := gp.SolidImage(2, 2, 10, 20, 30).Split()
	require.NoError(t, err)

	output := gp.SolidImage(2, 2, 12, 20, 24)

	assert.InDelta(t, (2.0+0+6)/3, Score(FitnessMean, output, target), 1e-12)
	assert.InDelta(t, 6.0, Score(FitnessMax, output, target), 1e-12)

	same := gp.SolidImage(2, 2, 10, 20, 30)
	assert.Zero(t, Score(FitnessMean, same, target))
	assert.Zero(t, Score(FitnessMax, same, target))
}

func TestScore_NaNIsWorst(t *testing.T) {
	target, err := gp.SolidImage(1, 1, 1, 1, 1).Split()
	require.NoError(t, err)

	output := gp.SolidImage(1, 1, math.NaN(), 1, 1)
	assert.True(t, math.IsInf(Score(FitnessMean, output, target), 1))
	assert.True(t, math.IsInf(Score(FitnessMax, output, target), 1))

	inf := gp.SolidImage(1, 1, math.Inf(1), 1, 1)
	assert.True(t, math.IsInf(Score(FitnessMean, inf, target), 1))
}
