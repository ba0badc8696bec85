// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gp

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImage_SplitAndMerge(t *testing.T) {
	img := SolidImage(3, 2, 10, 20, 30, 40)
	channels, err := img.Split()
	require.NoError(t, err)
	require.Len(t, channels, NumChannels)
	assert.Same(t, img.Channels[0], channels[0])
	assert.Equal(t, 20.0, channels[1].At(2, 1))

	merged, err := Merge(channels...)
	require.NoError(t, err)
	assert.Equal(t, 3, merged.NumChannels())
	assert.Equal(t, 3, merged.Width)

	_, err = Merge(NewChannel(2, 2), NewChannel(3, 2))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Merge()
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestImage_SplitErrors(t *testing.T) {
	_, err := SolidImage(2, 2, 1, 2).Split()
	assert.ErrorIs(t, err, ErrTooFewChannels)

	_, err = NewImage(0, 2, 3).Split()
	assert.ErrorIs(t, err, ErrEmptyImage)

	var nilImg *Image
	_, err = nilImg.Split()
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestCheckPair(t *testing.T) {
	good := SolidImage(4, 4, 1, 2, 3)

	assert.NoError(t, CheckPair(good, SolidImage(4, 4, 0, 0, 0)))
	assert.NoError(t, CheckPair(SolidImage(4, 4, 1, 2, 3, 4), good), "extra channels are ignored")
	assert.ErrorIs(t, CheckPair(good, SolidImage(4, 5, 1, 2, 3)), ErrShapeMismatch)
	assert.ErrorIs(t, CheckPair(SolidImage(4, 4, 1), good), ErrTooFewChannels)
	assert.ErrorIs(t, CheckPair(good, SolidImage(4, 4, 1, 2)), ErrTooFewChannels)
	assert.ErrorIs(t, CheckPair(nil, good), ErrEmptyImage)
}

func TestProgram_SetInput(t *testing.T) {
	p := NewProgram(5)

	assert.ErrorIs(t, p.SetInput(SolidImage(2, 2, 1, 2)), ErrTooFewChannels)
	assert.ErrorIs(t, p.SetInput(NewImage(0, 0, 3)), ErrEmptyImage)

	img := SolidImage(2, 2, 1, 2, 3)
	require.NoError(t, p.SetInput(img))
	for i, tr := range p.Trees {
		assert.Same(t, img.Channels[i], tr.Source())
	}
}

func TestProgram_GenerateAndEvaluate(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	input := SolidImage(4, 3, 10, 100, 200)
	before := input.Clone()

	p := NewProgram(6)
	require.NoError(t, p.SetInput(input))
	p.Generate(rng)
	require.NoError(t, p.Validate())

	out := p.Evaluate()
	assert.Equal(t, 4, out.Width)
	assert.Equal(t, 3, out.Height)
	assert.Equal(t, NumChannels, out.NumChannels())
	assert.Equal(t, before, input, "input must not be written")

	last := p.LastOutput()
	require.NotNil(t, last)
	assert.Equal(t, out, last)

	assert.Positive(t, p.Size())
	assert.LessOrEqual(t, p.Depth(), 6)
}

func TestProgram_EvaluateWithoutInputPanics(t *testing.T) {
	p := NewProgram(4)
	p.Generate(rand.New(rand.NewSource(1)))

	defer func() {
		_, ok := AsInvariant(recover())
		assert.True(t, ok)
	}()
	p.Evaluate()
	t.Fatal("expected panic")
}

func TestProgram_LastOutputBeforeEvaluate(t *testing.T) {
	p := NewProgram(4)
	assert.Nil(t, p.LastOutput())
}

func TestProgram_Breed(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	input := SolidImage(3, 3, 5, 50, 150)

	a := NewProgram(6)
	b := NewProgram(6)
	require.NoError(t, a.SetInput(input))
	require.NoError(t, b.SetInput(input))
	a.Generate(rng)
	b.Generate(rng)

	aJSON, _ := json.Marshal(a)
	bJSON, _ := json.Marshal(b)

	for range 20 {
		child := a.Breed(b, rng, DefaultMutationRate)
		require.NoError(t, child.Validate())
		assert.NotPanics(t, func() { child.Evaluate() })
	}

	aAfter, _ := json.Marshal(a)
	bAfter, _ := json.Marshal(b)
	assert.JSONEq(t, string(aJSON), string(aAfter))
	assert.JSONEq(t, string(bJSON), string(bAfter))
}

func TestProgram_SelfBreedWithoutMutation(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	input := SolidImage(2, 2, 3, 6, 9)

	p := NewProgram(6)
	require.NoError(t, p.SetInput(input))
	p.Generate(rng)

	child := p.Breed(p, rng, 0)
	assert.Equal(t, p.Evaluate(), child.Evaluate())
}

func TestProgram_Clone(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := NewProgram(5)
	require.NoError(t, p.SetInput(SolidImage(2, 2, 1, 1, 1)))
	p.Generate(rng)

	c := p.Clone()
	assert.Equal(t, p.MaxDepth, c.MaxDepth)
	for i := range p.Trees {
		assert.NotSame(t, p.Trees[i], c.Trees[i])
		assert.Equal(t, p.Trees[i].Root, c.Trees[i].Root)
		assert.Same(t, p.Trees[i].Source(), c.Trees[i].Source())
	}
}

func TestProgram_JSONRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(44))
	p := NewProgram(5)
	p.Generate(rng)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"max_depth":5`)
	assert.Contains(t, string(data), `"kind":"operator"`)

	var decoded Program
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 5, decoded.MaxDepth)
	for i := range p.Trees {
		assert.Equal(t, p.Trees[i].Root, decoded.Trees[i].Root)
		assert.Equal(t, 5, decoded.Trees[i].MaxDepth)
	}
}

func TestProgram_UnmarshalRejectsBrokenTrees(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing channel", `{"max_depth":4,"channels":[{"kind":"source"},{"kind":"source"},null]}`},
		{"operator without children", `{"max_depth":4,"channels":[{"kind":"operator","op":"add"},{"kind":"source"},{"kind":"source"}]}`},
		{"unknown kind", `{"max_depth":4,"channels":[{"kind":"tensor"},{"kind":"source"},{"kind":"source"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Program
			assert.Error(t, json.Unmarshal([]byte(tt.data), &p))
		})
	}
}

func TestProgram_UnmarshalRebasesDepths(t *testing.T) {
	data := `{"max_depth":4,"channels":[
		{"kind":"operator","op":"add","depth":9,"left":{"kind":"source","depth":3},"right":{"kind":"constant","constant":0.5}},
		{"kind":"source"},
		{"kind":"constant","constant":1}]}`

	var p Program
	require.NoError(t, json.Unmarshal([]byte(data), &p))
	assert.Equal(t, 0, p.Trees[0].Root.Depth)
	assert.Equal(t, 1, p.Trees[0].Root.Left.Depth)

	require.NoError(t, p.SetInput(SolidImage(1, 1, 2, 3, 4)))
	out := p.Evaluate()
	assert.Equal(t, []float64{2.5}, out.Channels[0].Pix)
	assert.Equal(t, []float64{3}, out.Channels[1].Pix)
	assert.Equal(t, []float64{1}, out.Channels[2].Pix)
}

func TestInvariantError(t *testing.T) {
	err := error(&InvariantError{Op: "breed", Reason: "no donor"})
	assert.Equal(t, "gp: invariant violated in breed: no donor", err.Error())

	wrapped := errors.Join(errors.New("context"), err)
	ie, ok := AsInvariant(wrapped)
	require.True(t, ok)
	assert.Equal(t, "breed", ie.Op)

	_, ok = AsInvariant("plain string")
	assert.False(t, ok)
	_, ok = AsInvariant(errors.New("other"))
	assert.False(t, ok)
}
