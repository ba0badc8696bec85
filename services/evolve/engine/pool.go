// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"cmp"
	"slices"
	"sync"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
)

// Candidate is one evaluated program.
type Candidate struct {
	// ID uniquely identifies the candidate within and across runs.
	ID string

	// Program is owned by the candidate and never modified after scoring.
	Program *gp.Program

	// Output is the merged evaluation result the fitness was computed from.
	Output *gp.Image

	// Fitness is the error against the target. Lower is better.
	Fitness float64

	// Generation is the 1-based generation that produced the candidate.
	Generation int
}

// ElitePool keeps the lowest-fitness candidates up to a fixed capacity,
// sorted ascending by fitness.
//
// Description:
//
//	Offer appends, stable-sorts and truncates. Because the newcomer sorts
//	after existing members of equal fitness, a full pool only admits a
//	candidate that is strictly better than its current worst member.
//
// Thread Safety: Safe for concurrent use.
type ElitePool struct {
	mu       sync.Mutex
	capacity int
	members  []*Candidate
}

// NewElitePool creates an empty pool. Capacity is clamped to at least 1.
func NewElitePool(capacity int) *ElitePool {
	capacity = max(capacity, 1)
	return &ElitePool{
		capacity: capacity,
		members:  make([]*Candidate, 0, capacity+1),
	}
}

// Offer inserts c and evicts the worst member if the pool overflows.
//
// Outputs:
//
//	kept - True if c is in the pool afterwards.
//	evicted - The member removed by this call, which may be c itself, or
//	          nil if nothing was removed.
func (p *ElitePool) Offer(c *Candidate) (kept bool, evicted *Candidate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.members = append(p.members, c)
	slices.SortStableFunc(p.members, func(a, b *Candidate) int {
		return cmp.Compare(a.Fitness, b.Fitness)
	})
	if len(p.members) <= p.capacity {
		return true, nil
	}
	evicted = p.members[p.capacity]
	p.members[p.capacity] = nil
	p.members = p.members[:p.capacity]
	return evicted != c, evicted
}

// Best returns the lowest-fitness member. Reports false on an empty pool.
func (p *ElitePool) Best() (*Candidate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.members) == 0 {
		return nil, false
	}
	return p.members[0], true
}

// Median returns the median fitness of the pool. Reports false on an
// empty pool.
func (p *ElitePool) Median() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.members) == 0 {
		return 0, false
	}
	return medianSorted(p.fitnessesLocked()), true
}

// Fitnesses returns the members' fitness values in ascending order.
func (p *ElitePool) Fitnesses() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fitnessesLocked()
}

func (p *ElitePool) fitnessesLocked() []float64 {
	out := make([]float64, len(p.members))
	for i, c := range p.members {
		out[i] = c.Fitness
	}
	return out
}

// Snapshot returns a copy of the member list, best first. The candidates
// themselves are shared.
func (p *ElitePool) Snapshot() []*Candidate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.members)
}

// Reset empties the pool.
func (p *ElitePool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.members)
	p.members = p.members[:0]
}

// Len returns the number of members.
func (p *ElitePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}

// Capacity returns the maximum number of members.
func (p *ElitePool) Capacity() int {
	return p.capacity
}

// medianSorted returns the median of an ascending, non-empty slice.
func medianSorted(v []float64) float64 {
	n := len(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
