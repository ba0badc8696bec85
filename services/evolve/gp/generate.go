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

import "math/rand"

// kindSet is a bitmask of node kinds a random draw may produce.
type kindSet uint8

const (
	setConstant kindSet = 1 << KindConstant
	setSource   kindSet = 1 << KindSource
	setOperator kindSet = 1 << KindOperator

	leafKinds = setConstant | setSource
	allKinds  = leafKinds | setOperator
)

func (s kindSet) has(k Kind) bool {
	return s&(1<<k) != 0
}

func (s kindSet) without(k Kind) kindSet {
	return s &^ (1 << k)
}

// pick draws a kind uniformly from the set.
func (s kindSet) pick(rng *rand.Rand) Kind {
	var kinds [3]Kind
	n := 0
	for k := KindConstant; k <= KindOperator; k++ {
		if s.has(k) {
			kinds[n] = k
			n++
		}
	}
	if n == 0 {
		invariant("generate", "empty kind set")
	}
	return kinds[rng.Intn(n)]
}

// childKinds returns the kinds allowed for a child at childDepth.
//
// Below maxDepth-1 growth is unrestricted; from there on only leaves
// may be drawn, which stops the branch.
func childKinds(childDepth, maxDepth int) kindSet {
	if childDepth < maxDepth-1 {
		return allKinds
	}
	return leafKinds
}

// randomNode draws a node of an allowed kind. Operator and constant are
// always randomized, whatever the kind.
func randomNode(rng *rand.Rand, allowed kindSet, depth int) *Node {
	return &Node{
		Kind:     allowed.pick(rng),
		Op:       Operator(rng.Intn(numOperators)),
		Constant: rng.Float64(),
		Depth:    depth,
	}
}

// GenerateRandomTree builds a random expression whose root is an operator
// at depth 0 and whose branches stop growing at maxDepth-1.
func GenerateRandomTree(rng *rand.Rand, maxDepth int) *Node {
	root := &Node{
		Kind:     KindOperator,
		Op:       Operator(rng.Intn(numOperators)),
		Constant: rng.Float64(),
		Depth:    0,
	}
	growChildren(rng, root, maxDepth)
	return root
}

// growChildren fills both children of an operator node, recursing into
// operator children.
//
// Rules:
//   - left is drawn from childKinds(depth+1)
//   - left operator: right is drawn from the same set
//   - left leaf at a capped depth: right is the other leaf kind
//   - left leaf below the cap: right is drawn excluding left's kind
func growChildren(rng *rand.Rand, parent *Node, maxDepth int) {
	if parent.Kind != KindOperator {
		return
	}

	depth := parent.Depth + 1
	allowed := childKinds(depth, maxDepth)

	parent.Left = randomNode(rng, allowed, depth)

	switch {
	case parent.Left.Kind == KindOperator:
		growChildren(rng, parent.Left, maxDepth)
		parent.Right = randomNode(rng, allowed, depth)
	case !allowed.has(KindOperator):
		// Capped: two leaf siblings must differ.
		parent.Right = randomNode(rng, leafKinds, depth)
		parent.Right.Kind = parent.Left.Kind.otherLeaf()
	default:
		parent.Right = randomNode(rng, allowed.without(parent.Left.Kind), depth)
	}

	if parent.Right.Kind == KindOperator {
		growChildren(rng, parent.Right, maxDepth)
	}
}
