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
	"strconv"
	"strings"
)

// Kind is the tag of a Node.
type Kind uint8

const (
	// KindConstant is a leaf holding a scalar.
	KindConstant Kind = iota

	// KindSource is a leaf that reads the tree's source channel.
	KindSource

	// KindOperator is an internal node with two children.
	KindOperator
)

var kindNames = [...]string{"constant", "source", "operator"}

// String returns "constant", "source" or "operator".
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsLeaf reports whether nodes of this kind have no children.
func (k Kind) IsLeaf() bool {
	return k == KindConstant || k == KindSource
}

// otherLeaf returns the leaf kind that is not k.
func (k Kind) otherLeaf() Kind {
	if k == KindConstant {
		return KindSource
	}
	return KindConstant
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("gp: unknown kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("gp: unknown kind %q", text)
}

// Operator is the binary operation of an operator node.
type Operator uint8

const (
	OpAdd Operator = iota
	OpSubtract
	OpMultiply
	OpDivide

	numOperators = 4
)

var operatorNames = [...]string{"add", "subtract", "multiply", "divide"}
var operatorSymbols = [...]string{"+", "-", "*", "/"}

// String returns "add", "subtract", "multiply" or "divide".
func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Symbol returns the infix symbol of the operator.
func (o Operator) Symbol() string {
	if int(o) < len(operatorSymbols) {
		return operatorSymbols[o]
	}
	return "?"
}

// Apply computes a op b. Division by zero yields 0.
func (o Operator) Apply(a, b float64) float64 {
	switch o {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		return protectedDiv(a, b)
	}
	invariant("apply", "unknown operator %d", o)
	return 0
}

func protectedDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	if int(o) >= len(operatorNames) {
		return nil, fmt.Errorf("gp: unknown operator %d", o)
	}
	return []byte(operatorNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(text []byte) error {
	for i, name := range operatorNames {
		if name == string(text) {
			*o = Operator(i)
			return nil
		}
	}
	return fmt.Errorf("gp: unknown operator %q", text)
}

// Node is one vertex of an expression tree.
//
// Op is meaningful only for operators and Constant only for constants;
// generation fills both for every node.
type Node struct {
	Kind     Kind     `json:"kind"`
	Op       Operator `json:"op"`
	Constant float64  `json:"constant"`
	Depth    int      `json:"depth"`
	Left     *Node    `json:"left,omitempty"`
	Right    *Node    `json:"right,omitempty"`
}

// IsLeaf reports whether the node is a constant or source leaf.
func (n *Node) IsLeaf() bool {
	return n.Kind.IsLeaf()
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	return n.cloneAt(n.Depth)
}

// cloneAt deep-copies the subtree with its root placed at depth.
func (n *Node) cloneAt(depth int) *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:     n.Kind,
		Op:       n.Op,
		Constant: n.Constant,
		Depth:    depth,
	}
	if n.Left != nil {
		c.Left = n.Left.cloneAt(depth + 1)
	}
	if n.Right != nil {
		c.Right = n.Right.cloneAt(depth + 1)
	}
	return c
}

// rebase rewrites depths in place so the subtree starts at depth.
func (n *Node) rebase(depth int) {
	if n == nil {
		return
	}
	n.Depth = depth
	n.Left.rebase(depth + 1)
	n.Right.rebase(depth + 1)
}

// Size returns the number of nodes in the subtree.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	return 1 + n.Left.Size() + n.Right.Size()
}

// levels returns the number of levels on the longest path below n,
// counting n itself.
func (n *Node) levels() int {
	if n == nil {
		return 0
	}
	return 1 + max(n.Left.levels(), n.Right.levels())
}

// String renders the subtree as a fully parenthesized infix expression,
// e.g. "((src + 0.25) * src)".
func (n *Node) String() string {
	var b strings.Builder
	n.writeInfix(&b)
	return b.String()
}

func (n *Node) writeInfix(b *strings.Builder) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	switch n.Kind {
	case KindConstant:
		b.WriteString(strconv.FormatFloat(n.Constant, 'g', 4, 64))
	case KindSource:
		b.WriteString("src")
	default:
		b.WriteByte('(')
		n.Left.writeInfix(b)
		b.WriteByte(' ')
		b.WriteString(n.Op.Symbol())
		b.WriteByte(' ')
		n.Right.writeInfix(b)
		b.WriteByte(')')
	}
}
