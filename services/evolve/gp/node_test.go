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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helpers for hand-built trees. Depths are fixed by rooted().

func src() *Node { return &Node{Kind: KindSource} }

func cnst(v float64) *Node { return &Node{Kind: KindConstant, Constant: v} }

func op(o Operator, l, r *Node) *Node {
	return &Node{Kind: KindOperator, Op: o, Left: l, Right: r}
}

func rooted(root *Node) *Tree {
	root.rebase(0)
	t := NewTree(DefaultMaxDepth)
	t.Root = root
	return t
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "constant", KindConstant.String())
	assert.Equal(t, "source", KindSource.String())
	assert.Equal(t, "operator", KindOperator.String())
	assert.Equal(t, "kind(9)", Kind(9).String())

	assert.True(t, KindConstant.IsLeaf())
	assert.True(t, KindSource.IsLeaf())
	assert.False(t, KindOperator.IsLeaf())
	assert.Equal(t, KindSource, KindConstant.otherLeaf())
	assert.Equal(t, KindConstant, KindSource.otherLeaf())
}

func TestKind_Text(t *testing.T) {
	for _, k := range []Kind{KindConstant, KindSource, KindOperator} {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var got Kind
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, k, got)
	}

	_, err := Kind(7).MarshalText()
	assert.Error(t, err)

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("leaf")))
}

func TestOperator_Apply(t *testing.T) {
	tests := []struct {
		op   Operator
		a, b float64
		want float64
	}{
		{OpAdd, 2, 3, 5},
		{OpSubtract, 2, 3, -1},
		{OpSubtract, 3, 2, 1},
		{OpMultiply, 2, 3, 6},
		{OpDivide, 3, 2, 1.5},
		{OpDivide, 2, 3, 2.0 / 3.0},
		{OpDivide, 5, 0, 0},
		{OpDivide, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.op.Apply(tt.a, tt.b), 1e-12)
		})
	}
}

func TestOperator_Apply_UnknownPanics(t *testing.T) {
	defer func() {
		r := recover()
		ie, ok := AsInvariant(r)
		require.True(t, ok, "expected invariant panic, got %v", r)
		assert.Equal(t, "apply", ie.Op)
	}()
	Operator(9).Apply(1, 2)
}

func TestOperator_SymbolAndText(t *testing.T) {
	assert.Equal(t, "+", OpAdd.Symbol())
	assert.Equal(t, "-", OpSubtract.Symbol())
	assert.Equal(t, "*", OpMultiply.Symbol())
	assert.Equal(t, "/", OpDivide.Symbol())
	assert.Equal(t, "?", Operator(8).Symbol())

	text, err := OpDivide.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "divide", string(text))

	var o Operator
	require.NoError(t, o.UnmarshalText([]byte("multiply")))
	assert.Equal(t, OpMultiply, o)
	assert.Error(t, o.UnmarshalText([]byte("modulo")))
}

func TestNode_CloneIsDeep(t *testing.T) {
	orig := rooted(op(OpAdd, src(), op(OpMultiply, cnst(0.5), src()))).Root
	c := orig.Clone()

	assert.Equal(t, orig.String(), c.String())

	c.Right.Left.Constant = 0.9
	c.Left.Kind = KindConstant

	assert.Equal(t, 0.5, orig.Right.Left.Constant)
	assert.Equal(t, KindSource, orig.Left.Kind)
	assert.NotSame(t, orig.Right, c.Right)
}

func TestNode_CloneAtRebasesDepths(t *testing.T) {
	n := rooted(op(OpAdd, src(), op(OpSubtract, src(), cnst(1)))).Root.Right
	require.Equal(t, 1, n.Depth)

	c := n.cloneAt(3)
	assert.Equal(t, 3, c.Depth)
	assert.Equal(t, 4, c.Left.Depth)
	assert.Equal(t, 4, c.Right.Depth)
	assert.Equal(t, 1, n.Depth, "original untouched")
}

func TestNode_SizeAndLevels(t *testing.T) {
	var empty *Node
	assert.Equal(t, 0, empty.Size())
	assert.Equal(t, 0, empty.levels())

	root := rooted(op(OpAdd, op(OpDivide, src(), cnst(2)), src())).Root
	assert.Equal(t, 5, root.Size())
	assert.Equal(t, 3, root.levels())
}

func TestNode_String(t *testing.T) {
	root := rooted(op(OpMultiply, op(OpAdd, src(), cnst(0.25)), src())).Root
	assert.Equal(t, "((src + 0.25) * src)", root.String())
}
