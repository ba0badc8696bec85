// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gp implements the expression trees evolved by pixelgp.
//
// A Program is three Trees, one per color channel. Each Tree is a binary
// expression over a single-channel source buffer built from four operators
// (add, subtract, multiply, protected divide), scalar constants in [0,1)
// and the source channel itself. Evaluating a Tree yields a new channel
// buffer; evaluating a Program merges the three channel results into an
// Image that can be scored against a target.
//
// # Ownership
//
// Nodes own their children exclusively. Duplicating a node, tree or program
// is always a deep copy (Clone). Source channel buffers are the one shared
// structure: every Program built from the same input image reads the same
// buffers, and nothing in this package writes to them.
//
// # Randomness
//
// Every generating or breeding call takes an explicit *rand.Rand. Nothing
// here touches a global generator, so a fixed seed reproduces a run.
//
// # Structural Rules
//
//   - An Operator node has exactly two children; leaves have none.
//   - Node.Depth equals the parent's depth plus one (root is 0).
//   - Two leaf siblings never share a kind when produced by generation
//     or mutation.
//
// Violations indicate a defect and are raised as a panic carrying an
// *InvariantError. The engine recovers these at its run boundary.
package gp
