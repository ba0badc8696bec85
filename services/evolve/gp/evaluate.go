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

import "gonum.org/v1/gonum/floats"

// operand is the value of an evaluated subtree: a scalar when buf is nil,
// otherwise a pixel buffer. An owned buffer was allocated during this
// evaluation and may be overwritten; a borrowed one is the source channel.
type operand struct {
	scalar float64
	buf    []float64
	owned  bool
}

func (o operand) isScalar() bool {
	return o.buf == nil
}

// Evaluate computes the tree over its source channel.
//
// The result is kept as the tree's last output and a copy is returned, so
// callers may modify it freely. Evaluating an unchanged tree over an
// unchanged source yields identical output.
//
// Panics with *InvariantError if the tree has no root, an operator lacks
// a child, or no source channel is set.
func (t *Tree) Evaluate() *Channel {
	if t.Root == nil {
		invariant("evaluate", "tree has no root")
	}
	if t.source.Empty() {
		invariant("evaluate", "no source channel")
	}

	res := evalNode(t.Root, t.source.Pix)

	out := &Channel{Width: t.source.Width, Height: t.source.Height}
	switch {
	case res.isScalar():
		out.Pix = make([]float64, len(t.source.Pix))
		floats.AddConst(res.scalar, out.Pix)
	case !res.owned:
		out.Pix = append([]float64(nil), res.buf...)
	default:
		out.Pix = res.buf
	}
	t.output = out
	return out.Clone()
}

// evalNode evaluates a subtree in post-order, left before right.
func evalNode(n *Node, src []float64) operand {
	switch n.Kind {
	case KindConstant:
		return operand{scalar: n.Constant}
	case KindSource:
		return operand{buf: src}
	case KindOperator:
	default:
		invariant("evaluate", "unknown kind %d at depth %d", n.Kind, n.Depth)
	}
	if n.Left == nil || n.Right == nil {
		invariant("evaluate", "operator at depth %d is missing a child", n.Depth)
	}
	left := evalNode(n.Left, src)
	right := evalNode(n.Right, src)
	return combine(n.Op, left, right)
}

// combine applies left op right. The result reuses an owned operand
// buffer when one exists, preferring the left one.
func combine(op Operator, l, r operand) operand {
	if l.isScalar() && r.isScalar() {
		return operand{scalar: op.Apply(l.scalar, r.scalar)}
	}

	var dst []float64
	switch {
	case l.owned:
		dst = l.buf
	case r.owned:
		dst = r.buf
	case l.isScalar():
		dst = make([]float64, len(r.buf))
	default:
		dst = make([]float64, len(l.buf))
	}

	switch {
	case r.isScalar():
		bufScalar(op, dst, l.buf, r.scalar)
	case l.isScalar():
		scalarBuf(op, dst, l.scalar, r.buf)
	default:
		bufBuf(op, dst, l.buf, r.buf)
	}
	return operand{buf: dst, owned: true}
}

// bufBuf computes dst = a op b element-wise. dst may alias a or b.
func bufBuf(op Operator, dst, a, b []float64) {
	if len(a) != len(b) {
		invariant("evaluate", "operand lengths %d and %d differ", len(a), len(b))
	}
	switch op {
	case OpAdd:
		floats.AddTo(dst, a, b)
	case OpSubtract:
		floats.SubTo(dst, a, b)
	case OpMultiply:
		floats.MulTo(dst, a, b)
	case OpDivide:
		for i := range dst {
			dst[i] = protectedDiv(a[i], b[i])
		}
	default:
		invariant("evaluate", "unknown operator %d", op)
	}
}

// bufScalar computes dst = a op s. dst may alias a.
func bufScalar(op Operator, dst, a []float64, s float64) {
	switch op {
	case OpAdd:
		copy(dst, a)
		floats.AddConst(s, dst)
	case OpSubtract:
		copy(dst, a)
		floats.AddConst(-s, dst)
	case OpMultiply:
		floats.ScaleTo(dst, s, a)
	case OpDivide:
		for i := range dst {
			dst[i] = protectedDiv(a[i], s)
		}
	default:
		invariant("evaluate", "unknown operator %d", op)
	}
}

// scalarBuf computes dst = s op b. dst may alias b.
func scalarBuf(op Operator, dst []float64, s float64, b []float64) {
	switch op {
	case OpAdd:
		copy(dst, b)
		floats.AddConst(s, dst)
	case OpSubtract:
		floats.ScaleTo(dst, -1, b)
		floats.AddConst(s, dst)
	case OpMultiply:
		floats.ScaleTo(dst, s, b)
	case OpDivide:
		for i := range dst {
			dst[i] = protectedDiv(s, b[i])
		}
	default:
		invariant("evaluate", "unknown operator %d", op)
	}
}
