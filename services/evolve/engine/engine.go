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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is the phase of the generational loop.
type State int

const (
	StateUninitialized State = iota
	StateFirstGeneration
	StateSteadyGeneration
	StateDone
)

var stateNames = [...]string{"uninitialized", "first", "steady", "done"}

// String returns the phase name.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of a run.
type Result struct {
	// RunID identifies the run.
	RunID string

	// Seed is the seed actually used, so a clock-seeded run can be repeated.
	Seed int64

	// Config is the parameter set the run used.
	Config Config

	// Best is the lowest-fitness candidate, or nil when no generation ran.
	Best *Candidate

	// Pool is the final elite pool, best first.
	Pool []*Candidate

	// Stats holds one entry per completed generation.
	Stats []GenerationStats
}

// Engine drives the generational loop.
//
// Description:
//
//	The first generation scores Population random programs. Each later
//	generation freezes the elite pool, empties it, and refills it from
//	Population children bred from the frozen members. Trials may run on
//	several goroutines; parents and per-trial seeds are drawn in trial
//	order on the run goroutine, and children are offered to the pool in
//	trial order, so a fixed seed gives the same result for any worker count.
//
// Thread Safety: Safe for concurrent use. Only one Run may be active.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	state   State
	running bool

	logger *slog.Logger
	tracer *Tracer
	sinks  []StatsSink
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSinks adds per-generation statistics sinks.
func WithSinks(sinks ...StatsSink) Option {
	return func(e *Engine) {
		for _, s := range sinks {
			if s != nil {
				e.sinks = append(e.sinks, s)
			}
		}
	}
}

// WithTracer sets the span tracer. Defaults to a disabled tracer.
func WithTracer(t *Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New creates an engine after validating cfg.
//
// Outputs:
//
//	*Engine - Ready to Run.
//	error - Wraps ErrInvalidConfig if cfg is invalid.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = NewTracer(e.logger, false)
	}
	return e, nil
}

// Configure replaces the four sizing parameters, keeping the rest of the
// configuration. Nothing changes if validation fails.
func (e *Engine) Configure(population, breedingPoolSize, generations, maxInitialDepth int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrBusy
	}

	cfg := e.cfg
	cfg.Population = population
	cfg.BreedingPoolSize = breedingPoolSize
	cfg.Generations = generations
	cfg.MaxInitialDepth = maxInitialDepth
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.state = StateUninitialized
	return nil
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// State returns the phase of the current or most recent run.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run evolves programs that map input towards target.
//
// Description:
//
//	Validates the image pair, then runs cfg.Generations generations.
//	Statistics are handed to every sink after each generation. The
//	context is checked between generations; a cancelled run returns the
//	result so far together with ctx.Err().
//
// Inputs:
//
//	ctx - Context for cancellation and tracing. Must not be nil.
//	input - Source image, at least 3 channels.
//	target - Target image, same size as input, at least 3 channels.
//
// Outputs:
//
//	*Result - Best candidate, final pool and statistics. Best is nil when
//	          Generations is zero.
//	error - Image shape errors from gp, ErrInvariant on a structural
//	        defect, ErrBusy, or the context's error.
func (e *Engine) Run(ctx context.Context, input, target *gp.Image) (result *Result, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := gp.CheckPair(input, target); err != nil {
		return nil, fmt.Errorf("check images: %w", err)
	}
	targetChannels, err := target.Split()
	if err != nil {
		return nil, fmt.Errorf("check images: %w", err)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.running = true
	cfg := e.cfg
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cfg.Seed = seed

	result = &Result{RunID: uuid.NewString(), Seed: seed, Config: cfg}

	ctx, span := e.tracer.StartRun(ctx, result.RunID, cfg)
	defer func() {
		if r := recover(); r != nil {
			ie, ok := gp.AsInvariant(r)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("%w: %w", ErrInvariant, ie)
		}
		if err != nil && errors.Is(err, ErrInvariant) {
			invariantFaultsTotal.Inc()
		}
		e.tracer.EndRun(span, result, err)
	}()

	if cfg.Generations == 0 {
		e.setState(StateDone)
		return result, nil
	}

	r := &run{
		engine: e,
		cfg:    cfg,
		id:     result.RunID,
		rng:    rand.New(rand.NewSource(seed)),
		input:  input,
		target: targetChannels,
		pool:   NewElitePool(cfg.BreedingPoolSize),
	}

	for gen := 1; gen <= cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			r.fill(result)
			return result, err
		}
		stats, err := r.generation(ctx, gen)
		if err != nil {
			r.fill(result)
			return result, err
		}
		result.Stats = append(result.Stats, stats)
		e.publish(ctx, stats)
	}

	r.fill(result)
	e.setState(StateDone)
	return result, nil
}

// publish hands stats to every sink. Sink failures are logged only.
func (e *Engine) publish(ctx context.Context, stats GenerationStats) {
	for _, s := range e.sinks {
		if err := s.RecordGeneration(ctx, stats); err != nil {
			e.logger.Warn("stats sink failed",
				slog.String("run_id", stats.RunID),
				slog.Int("generation", stats.Generation),
				slog.String("error", err.Error()),
			)
		}
	}
}

// =============================================================================
// Run State
// =============================================================================

// run holds the state of one Run call.
type run struct {
	engine *Engine
	cfg    Config
	id     string
	rng    *rand.Rand
	input  *gp.Image
	target []*gp.Channel
	pool   *ElitePool
}

// trial describes one candidate to build: a fresh program when a is nil,
// otherwise a child of a and b.
type trial struct {
	index int
	seed  int64
	a, b  *Candidate
}

func (r *run) fill(result *Result) {
	result.Pool = r.pool.Snapshot()
	if best, ok := r.pool.Best(); ok {
		result.Best = best
	}
}

// generation plans, runs and pools one generation.
func (r *run) generation(ctx context.Context, gen int) (GenerationStats, error) {
	start := time.Now()

	phase := StateSteadyGeneration
	if gen == 1 {
		phase = StateFirstGeneration
	}
	r.engine.setState(phase)

	ctx, span := r.engine.tracer.TraceGeneration(ctx, gen, phase)

	trials := r.plan(phase)
	children, err := r.runTrials(ctx, gen, trials)
	if err != nil {
		r.engine.tracer.EndGeneration(ctx, span, GenerationStats{RunID: r.id, Generation: gen}, err)
		return GenerationStats{}, err
	}

	for _, c := range children {
		if _, evicted := r.pool.Offer(c); evicted != nil {
			poolEvictionsTotal.Inc()
		}
	}

	stats := GenerationStats{
		RunID:      r.id,
		Generation: gen,
		PoolSize:   r.pool.Len(),
		Evaluated:  len(trials),
	}
	if best, ok := r.pool.Best(); ok {
		stats.Best = best.Fitness
	}
	if median, ok := r.pool.Median(); ok {
		stats.Median = median
	}
	stats.Duration = time.Since(start)

	recordGeneration(phase, stats)
	r.engine.tracer.EndGeneration(ctx, span, stats, nil)
	return stats, nil
}

// plan draws parents and seeds for every trial of a generation. In the
// steady phase the pool is frozen into a snapshot and emptied.
func (r *run) plan(phase State) []trial {
	trials := make([]trial, r.cfg.Population)

	if phase == StateFirstGeneration {
		for i := range trials {
			trials[i] = trial{index: i, seed: r.rng.Int63()}
		}
		return trials
	}

	parents := r.pool.Snapshot()
	r.pool.Reset()
	n := len(parents)
	if n == 0 {
		panic(&gp.InvariantError{Op: "plan", Reason: "empty breeding pool"})
	}

	for i := range trials {
		ai := i % n
		bi := ai
		if n > 1 {
			for bi == ai {
				bi = r.rng.Intn(n)
			}
		}
		trials[i] = trial{index: i, seed: r.rng.Int63(), a: parents[ai], b: parents[bi]}
	}
	return trials
}

// runTrials builds and scores every trial, returning candidates in
// trial order.
func (r *run) runTrials(ctx context.Context, gen int, trials []trial) ([]*Candidate, error) {
	out := make([]*Candidate, len(trials))

	if r.cfg.Workers <= 1 {
		for i, t := range trials {
			c, err := r.runTrial(ctx, gen, t)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, t := range trials {
		g.Go(func() error {
			c, err := r.runTrial(gctx, gen, t)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// runTrial builds one candidate with its own random source. Parents are
// only read.
func (r *run) runTrial(ctx context.Context, gen int, t trial) (c *Candidate, err error) {
	_, span := r.engine.tracer.TraceTrial(ctx, t.index)
	defer func() {
		if rec := recover(); rec != nil {
			ie, ok := gp.AsInvariant(rec)
			if !ok {
				panic(rec)
			}
			c, err = nil, fmt.Errorf("%w: generation %d trial %d: %w", ErrInvariant, gen, t.index, ie)
		}
		r.engine.tracer.EndTrial(span, c, err)
	}()

	start := time.Now()
	rng := rand.New(rand.NewSource(t.seed))

	var prog *gp.Program
	if t.a == nil {
		prog = gp.NewProgram(r.cfg.MaxInitialDepth)
		if err := prog.SetInput(r.input); err != nil {
			return nil, err
		}
		prog.Generate(rng)
	} else {
		prog = t.a.Program.Breed(t.b.Program, rng, r.cfg.MutationRate)
	}

	output := prog.Evaluate()
	c = &Candidate{
		ID:         uuid.NewString(),
		Program:    prog,
		Output:     output,
		Fitness:    Score(r.cfg.Fitness, output, r.target),
		Generation: gen,
	}

	candidatesEvaluatedTotal.Inc()
	trialDurationSeconds.Observe(time.Since(start).Seconds())
	return c, nil
}
