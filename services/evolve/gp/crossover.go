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

const (
	// MinBreedDepth is the depth both parents need for crossover to happen.
	// Shallower pairs produce an unchanged clone of the second parent.
	MinBreedDepth = 4

	// operatorBiasDepth is the depth above which swap points are
	// restricted to operator nodes.
	operatorBiasDepth = 2
)

// Breed produces a child by subtree crossover.
//
// Description:
//
//	The child starts as a deep copy of b. A non-root node of the copy is
//	replaced by a deep copy of a non-root node of a. On trees deeper than
//	two levels both swap points are operators; otherwise the donor must
//	share the target's kind.
//
// Inputs:
//
//	a - Donor parent. Not modified.
//	b - Recipient parent. Not modified.
//	rng - Random source.
//
// Outputs:
//
//	*Tree - The child. An unchanged clone of b when a and b are the same
//	tree or either is shallower than MinBreedDepth.
func Breed(a, b *Tree, rng *rand.Rand) *Tree {
	child := b.Clone()
	if a == b || a.Depth() < MinBreedDepth || b.Depth() < MinBreedDepth {
		return child
	}

	targets := child.slots()
	if child.Depth() > operatorBiasDepth {
		targets = operatorSlots(targets)
	}
	if len(targets) == 0 {
		invariant("breed", "no swap point in recipient of depth %d", child.Depth())
	}
	target := targets[rng.Intn(len(targets))]

	var donors []*Node
	if a.Depth() > operatorBiasDepth {
		donors = a.Nodes(ExcludeRoot, OnlyKind(KindOperator))
	} else {
		donors = a.Nodes(ExcludeRoot, OnlyKind(target.node().Kind))
	}
	if len(donors) == 0 {
		invariant("breed", "no %s donor in parent of depth %d", target.node().Kind, a.Depth())
	}
	donor := donors[rng.Intn(len(donors))]

	target.replace(donor.cloneAt(target.parent.Depth + 1))
	child.output = nil
	return child
}

// Mutate regenerates one random non-root subtree in place.
//
// The new node follows the generation rules for its depth against the
// tree's MaxDepth and never shares a kind with a leaf sibling. Operator
// replacements are grown into full subtrees. Reports false if the tree
// has no non-root node.
func Mutate(t *Tree, rng *rand.Rand) bool {
	slots := t.slots()
	if len(slots) == 0 {
		return false
	}
	s := slots[rng.Intn(len(slots))]

	depth := s.parent.Depth + 1
	allowed := childKinds(depth, t.MaxDepth)
	if sib := s.sibling(); sib.IsLeaf() {
		allowed = allowed.without(sib.Kind)
	}

	n := randomNode(rng, allowed, depth)
	growChildren(rng, n, t.MaxDepth)
	s.replace(n)
	t.output = nil
	return true
}

func operatorSlots(slots []slot) []slot {
	out := slots[:0]
	for _, s := range slots {
		if s.node().Kind == KindOperator {
			out = append(out, s)
		}
	}
	return out
}

func (s slot) replace(n *Node) {
	if s.left {
		s.parent.Left = n
	} else {
		s.parent.Right = n
	}
}
