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
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSet_Pick(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	seen := map[Kind]int{}
	for range 3000 {
		seen[allKinds.pick(rng)]++
	}
	for _, k := range []Kind{KindConstant, KindSource, KindOperator} {
		assert.Greater(t, seen[k], 800, "kind %s drawn too rarely", k)
	}

	for range 100 {
		assert.Equal(t, KindSource, leafKinds.without(KindConstant).pick(rng))
	}
}

func TestKindSet_PickEmptyPanics(t *testing.T) {
	assert.Panics(t, func() {
		kindSet(0).pick(rand.New(rand.NewSource(1)))
	})
}

func TestChildKinds(t *testing.T) {
	assert.Equal(t, allKinds, childKinds(1, 6))
	assert.Equal(t, allKinds, childKinds(4, 6))
	assert.Equal(t, leafKinds, childKinds(5, 6))
	assert.Equal(t, leafKinds, childKinds(9, 6))
	assert.Equal(t, leafKinds, childKinds(1, 2))
}

// checkSiblings fails if two leaf siblings anywhere share a kind.
func checkSiblings(t *testing.T, n *Node) {
	t.Helper()
	if n == nil || n.Kind != KindOperator {
		return
	}
	if n.Left.IsLeaf() && n.Right.IsLeaf() {
		assert.NotEqual(t, n.Left.Kind, n.Right.Kind, "leaf siblings at depth %d", n.Depth+1)
	}
	checkSiblings(t, n.Left)
	checkSiblings(t, n.Right)
}

func TestGenerateRandomTree_Properties(t *testing.T) {
	for maxDepth := 2; maxDepth <= 7; maxDepth++ {
		t.Run(fmt.Sprintf("max_depth_%d", maxDepth), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(maxDepth)))
			for range 200 {
				tree := NewTree(maxDepth)
				tree.Generate(rng)

				require.NoError(t, tree.ValidateCappedLeaves())
				assert.Equal(t, KindOperator, tree.Root.Kind)
				assert.Equal(t, 0, tree.Root.Depth)
				assert.GreaterOrEqual(t, tree.Depth(), 2)
				assert.LessOrEqual(t, tree.Depth(), maxDepth)
				checkSiblings(t, tree.Root)

				for _, n := range tree.Nodes() {
					assert.GreaterOrEqual(t, n.Constant, 0.0)
					assert.Less(t, n.Constant, 1.0)
				}
			}
		})
	}
}

func TestGenerateRandomTree_ShallowestCeiling(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for range 50 {
		root := GenerateRandomTree(rng, 1)
		require.True(t, root.Left.IsLeaf())
		require.True(t, root.Right.IsLeaf())
		assert.NotEqual(t, root.Left.Kind, root.Right.Kind)
	}
}

func TestGenerateRandomTree_Deterministic(t *testing.T) {
	a := GenerateRandomTree(rand.New(rand.NewSource(42)), 6)
	b := GenerateRandomTree(rand.New(rand.NewSource(42)), 6)
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, a, b)
}
