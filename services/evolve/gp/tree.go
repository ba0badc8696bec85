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
	"iter"
	"math/rand"
)

// DefaultMaxDepth is the generation depth ceiling used when none is configured.
const DefaultMaxDepth = 6

// Tree is one expression over a single image channel.
//
// Thread Safety: Not safe for concurrent use. Distinct trees may be
// evaluated concurrently even when they share a source channel.
type Tree struct {
	// Root is the top node. Nil until generated, bred or decoded.
	Root *Node

	// MaxDepth is the generation depth ceiling, counted in levels.
	MaxDepth int

	// source is read, never written.
	source *Channel

	// output holds the most recent evaluation result.
	output *Channel
}

// NewTree creates an empty tree. A non-positive maxDepth selects DefaultMaxDepth.
func NewTree(maxDepth int) *Tree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Tree{MaxDepth: maxDepth}
}

// SetSource assigns the channel read by source leaves.
//
// The buffer is shared, not copied. The last output is dropped if its
// dimensions no longer match.
func (t *Tree) SetSource(c *Channel) {
	t.source = c
	if t.output != nil && !t.output.SameSize(c) {
		t.output = nil
	}
}

// Source returns the source channel.
func (t *Tree) Source() *Channel {
	return t.source
}

// LastOutput returns the result of the most recent Evaluate, or nil.
// The buffer must be treated as read-only.
func (t *Tree) LastOutput() *Channel {
	return t.output
}

// Generate replaces the tree with a fresh random expression.
func (t *Tree) Generate(rng *rand.Rand) {
	t.Root = GenerateRandomTree(rng, t.MaxDepth)
	t.output = nil
}

// Clone returns a structurally independent copy that shares the source channel.
func (t *Tree) Clone() *Tree {
	return &Tree{
		Root:     t.Root.Clone(),
		MaxDepth: t.MaxDepth,
		source:   t.source,
		output:   t.output.Clone(),
	}
}

// Depth returns the number of levels on the longest root-to-leaf path.
// A lone root counts as 1; an empty tree is 0.
func (t *Tree) Depth() int {
	return t.Root.levels()
}

// Size returns the number of nodes.
func (t *Tree) Size() int {
	return t.Root.Size()
}

// String renders the tree as an infix expression.
func (t *Tree) String() string {
	if t.Root == nil {
		return "<empty>"
	}
	return t.Root.String()
}

// =============================================================================
// Node Listing
// =============================================================================

// NodeFilter selects nodes in Nodes.
type NodeFilter func(*Node) bool

// ExcludeRoot drops the depth-0 node.
func ExcludeRoot(n *Node) bool {
	return n.Depth > 0
}

// OnlyKind keeps nodes of kind k.
func OnlyKind(k Kind) NodeFilter {
	return func(n *Node) bool { return n.Kind == k }
}

// ExcludeKind drops nodes of kind k.
func ExcludeKind(k Kind) NodeFilter {
	return func(n *Node) bool { return n.Kind != k }
}

// Nodes lists the tree's nodes in pre-order, keeping those accepted by
// every filter. The returned pointers alias the tree.
func (t *Tree) Nodes(filters ...NodeFilter) []*Node {
	var out []*Node
	collectNodes(t.Root, &out, filters)
	return out
}

func collectNodes(n *Node, out *[]*Node, filters []NodeFilter) {
	if n == nil {
		return
	}
	keep := true
	for _, f := range filters {
		if !f(n) {
			keep = false
			break
		}
	}
	if keep {
		*out = append(*out, n)
	}
	collectNodes(n.Left, out, filters)
	collectNodes(n.Right, out, filters)
}

// slot addresses a non-root node through its parent.
type slot struct {
	parent *Node
	left   bool
}

func (s slot) node() *Node {
	if s.left {
		return s.parent.Left
	}
	return s.parent.Right
}

func (s slot) sibling() *Node {
	if s.left {
		return s.parent.Right
	}
	return s.parent.Left
}

// slots lists every non-root node position in pre-order.
func (t *Tree) slots() []slot {
	var out []slot
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil || n.Kind != KindOperator {
			return
		}
		out = append(out, slot{parent: n, left: true})
		walk(n.Left)
		out = append(out, slot{parent: n, left: false})
		walk(n.Right)
	}
	walk(t.Root)
	return out
}

// =============================================================================
// Read-only Traversal
// =============================================================================

// NodeView is a read-only snapshot of one node, produced by Walk.
type NodeView struct {
	Kind     Kind
	Op       Operator
	Constant float64
	Depth    int

	// Children is 2 for operators and 0 for leaves.
	Children int

	// Path spells the route from the root: "" for the root, then one
	// 'L' or 'R' per level.
	Path string
}

// Walk returns a pre-order traversal of the tree. The sequence is lazy
// and may be ranged over any number of times.
//
// Example:
//
//	for v := range tree.Walk() {
//	    fmt.Println(strings.Repeat("  ", v.Depth), v.Kind)
//	}
func (t *Tree) Walk() iter.Seq[NodeView] {
	return func(yield func(NodeView) bool) {
		walkNode(t.Root, "", yield)
	}
}

func walkNode(n *Node, path string, yield func(NodeView) bool) bool {
	if n == nil {
		return true
	}
	children := 0
	if n.Left != nil {
		children++
	}
	if n.Right != nil {
		children++
	}
	v := NodeView{
		Kind:     n.Kind,
		Op:       n.Op,
		Constant: n.Constant,
		Depth:    n.Depth,
		Children: children,
		Path:     path,
	}
	if !yield(v) {
		return false
	}
	if !walkNode(n.Left, path+"L", yield) {
		return false
	}
	return walkNode(n.Right, path+"R", yield)
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks the structural rules that hold for every tree:
// a root exists, operators have two children, leaves have none and
// depths increase by one per level.
func (t *Tree) Validate() error {
	if t.Root == nil {
		return &InvariantError{Op: "validate", Reason: "tree has no root"}
	}
	if t.Root.Depth != 0 {
		return &InvariantError{Op: "validate", Reason: fmt.Sprintf("root depth %d", t.Root.Depth)}
	}
	return validateNode(t.Root, -1)
}

// ValidateCappedLeaves additionally checks that, at the generation ceiling,
// two leaf siblings never share a kind. It only holds for trees produced
// by generation and mutation.
func (t *Tree) ValidateCappedLeaves() error {
	if err := t.Validate(); err != nil {
		return err
	}
	return validateNode(t.Root, t.MaxDepth)
}

func validateNode(n *Node, cappedAt int) error {
	switch n.Kind {
	case KindConstant, KindSource:
		if n.Left != nil || n.Right != nil {
			return &InvariantError{Op: "validate", Reason: fmt.Sprintf("%s leaf at depth %d has children", n.Kind, n.Depth)}
		}
		return nil
	case KindOperator:
	default:
		return &InvariantError{Op: "validate", Reason: fmt.Sprintf("unknown kind %d", n.Kind)}
	}

	if n.Left == nil || n.Right == nil {
		return &InvariantError{Op: "validate", Reason: fmt.Sprintf("operator at depth %d is missing a child", n.Depth)}
	}
	for _, c := range []*Node{n.Left, n.Right} {
		if c.Depth != n.Depth+1 {
			return &InvariantError{Op: "validate", Reason: fmt.Sprintf("child depth %d under parent depth %d", c.Depth, n.Depth)}
		}
	}
	if cappedAt > 0 && n.Depth+1 >= cappedAt-1 && n.Left.IsLeaf() && n.Right.IsLeaf() && n.Left.Kind == n.Right.Kind {
		return &InvariantError{Op: "validate", Reason: fmt.Sprintf("capped leaf siblings at depth %d are both %s", n.Depth+1, n.Left.Kind)}
	}
	if err := validateNode(n.Left, cappedAt); err != nil {
		return err
	}
	return validateNode(n.Right, cappedAt)
}
