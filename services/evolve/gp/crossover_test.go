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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deepTree generates trees until one reaches MinBreedDepth.
func deepTree(t *testing.T, rng *rand.Rand) *Tree {
	t.Helper()
	for range 1000 {
		tree := NewTree(6)
		tree.Generate(rng)
		if tree.Depth() >= MinBreedDepth {
			return tree
		}
	}
	t.Fatal("no deep tree generated")
	return nil
}

func TestBreed_ParentsUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(21))

	for range 100 {
		a := deepTree(t, rng)
		b := deepTree(t, rng)
		aBefore := a.Root.Clone()
		bBefore := b.Root.Clone()

		child := Breed(a, b, rng)

		require.Equal(t, aBefore, a.Root)
		require.Equal(t, bBefore, b.Root)
		require.NoError(t, child.Validate())
		assert.NotSame(t, b.Root, child.Root)
		assert.Equal(t, KindOperator, child.Root.Kind)
	}
}

func TestBreed_GraftsDonorSubtree(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	changed := 0

	for range 100 {
		a := deepTree(t, rng)
		b := deepTree(t, rng)
		child := Breed(a, b, rng)
		if child.String() != b.String() {
			changed++
		}

		// The root is never a swap point.
		assert.Equal(t, b.Root.Op, child.Root.Op)
	}
	assert.Greater(t, changed, 50)
}

func TestBreed_SelfBreedIsClone(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := deepTree(t, rng)

	child := Breed(a, a, rng)
	assert.Equal(t, a.Root, child.Root)
	assert.NotSame(t, a.Root, child.Root)
}

func TestBreed_ShallowParentsReturnClone(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	shallow := rooted(op(OpAdd, op(OpMultiply, src(), cnst(2)), src()))
	require.Equal(t, 3, shallow.Depth())
	deep := deepTree(t, rng)

	child := Breed(deep, shallow, rng)
	assert.Equal(t, shallow.Root, child.Root)

	child = Breed(shallow, deep, rng)
	assert.Equal(t, deep.Root, child.Root)
}

func TestBreed_ClearsOutputAndKeepsSource(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	source := row(1, 2, 3)

	a := deepTree(t, rng)
	b := deepTree(t, rng)
	a.SetSource(source)
	b.SetSource(source)
	b.Evaluate()

	child := Breed(a, b, rng)
	assert.Same(t, source, child.Source())
	if child.String() != b.String() {
		assert.Nil(t, child.LastOutput())
	}
	assert.NotPanics(t, func() { child.Evaluate() })
}

func TestMutate_KeepsStructuralRules(t *testing.T) {
	rng := rand.New(rand.NewSource(13))

	for maxDepth := 2; maxDepth <= 6; maxDepth++ {
		for range 100 {
			tree := NewTree(maxDepth)
			tree.Generate(rng)

			require.True(t, Mutate(tree, rng))
			require.NoError(t, tree.ValidateCappedLeaves())
			checkSiblings(t, tree.Root)
			assert.LessOrEqual(t, tree.Depth(), maxDepth)
		}
	}
}

func TestMutate_ChangesTree(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	changed := 0
	for range 100 {
		tree := NewTree(6)
		tree.Generate(rng)
		before := tree.Root.Clone()
		Mutate(tree, rng)
		if !assert.ObjectsAreEqual(before, tree.Root) {
			changed++
		}
	}
	assert.Greater(t, changed, 50)
}

func TestMutate_LeafRoot(t *testing.T) {
	tree := rooted(src())
	assert.False(t, Mutate(tree, rand.New(rand.NewSource(1))))
	assert.Equal(t, KindSource, tree.Root.Kind)
}
