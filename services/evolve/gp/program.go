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
	"fmt"
	"math/rand"
)

// DefaultMutationRate is the per-channel chance of mutation after crossover.
const DefaultMutationRate = 0.2

// Program is a candidate solution: one tree per color channel.
//
// Thread Safety: Not safe for concurrent use. Programs that share an input
// may be evaluated concurrently.
type Program struct {
	Trees    [NumChannels]*Tree
	MaxDepth int
}

// NewProgram creates a program with three empty trees.
func NewProgram(maxDepth int) *Program {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	p := &Program{MaxDepth: maxDepth}
	for i := range p.Trees {
		p.Trees[i] = NewTree(maxDepth)
	}
	return p
}

// SetInput splits img and assigns channel i as the source of tree i.
// Channel buffers are shared, not copied.
func (p *Program) SetInput(img *Image) error {
	channels, err := img.Split()
	if err != nil {
		return err
	}
	for i, t := range p.Trees {
		t.SetSource(channels[i])
	}
	return nil
}

// Generate replaces every tree with a fresh random expression.
func (p *Program) Generate(rng *rand.Rand) {
	for _, t := range p.Trees {
		t.Generate(rng)
	}
}

// Evaluate runs each tree over its source and merges the results.
//
// Panics with *InvariantError if a tree produces an empty channel.
func (p *Program) Evaluate() *Image {
	channels := make([]*Channel, NumChannels)
	for i, t := range p.Trees {
		c := t.Evaluate()
		if c.Empty() {
			invariant("evaluate", "channel %d produced no pixels", i)
		}
		channels[i] = c
	}
	img, err := Merge(channels...)
	if err != nil {
		invariant("evaluate", "merge: %v", err)
	}
	return img
}

// LastOutput merges the trees' most recent outputs, or returns nil if any
// tree has not been evaluated.
func (p *Program) LastOutput() *Image {
	channels := make([]*Channel, NumChannels)
	for i, t := range p.Trees {
		c := t.LastOutput()
		if c.Empty() {
			return nil
		}
		channels[i] = c.Clone()
	}
	img, err := Merge(channels...)
	if err != nil {
		return nil
	}
	return img
}

// Breed crosses p with other channel by channel, p donating into a copy of
// other, then mutates each child tree with probability mutationRate.
// Neither parent is modified.
func (p *Program) Breed(other *Program, rng *rand.Rand, mutationRate float64) *Program {
	child := &Program{MaxDepth: other.MaxDepth}
	for i := range child.Trees {
		t := Breed(p.Trees[i], other.Trees[i], rng)
		if mutationRate > 0 && rng.Float64() < mutationRate {
			Mutate(t, rng)
		}
		child.Trees[i] = t
	}
	return child
}

// Clone returns an independent copy sharing the input channels.
func (p *Program) Clone() *Program {
	c := &Program{MaxDepth: p.MaxDepth}
	for i, t := range p.Trees {
		c.Trees[i] = t.Clone()
	}
	return c
}

// Depth returns the deepest tree's depth.
func (p *Program) Depth() int {
	d := 0
	for _, t := range p.Trees {
		d = max(d, t.Depth())
	}
	return d
}

// Size returns the total node count.
func (p *Program) Size() int {
	n := 0
	for _, t := range p.Trees {
		n += t.Size()
	}
	return n
}

// Validate checks every tree's structure.
func (p *Program) Validate() error {
	for i, t := range p.Trees {
		if t == nil {
			return fmt.Errorf("channel %d: %w", i, &InvariantError{Op: "validate", Reason: "missing tree"})
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
	}
	return nil
}

// programJSON is the persisted form of a Program.
type programJSON struct {
	MaxDepth int                `json:"max_depth"`
	Channels [NumChannels]*Node `json:"channels"`
}

// MarshalJSON implements json.Marshaler.
func (p *Program) MarshalJSON() ([]byte, error) {
	out := programJSON{MaxDepth: p.MaxDepth}
	for i, t := range p.Trees {
		out.Channels[i] = t.Root
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. Depths are recomputed from
// the structure and the result is validated.
func (p *Program) UnmarshalJSON(data []byte) error {
	var in programJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded := NewProgram(in.MaxDepth)
	for i, root := range in.Channels {
		root.rebase(0)
		decoded.Trees[i].Root = root
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*p = *decoded
	return nil
}
