// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AleutianAI/pixelgp/pkg/ux"
	"github.com/AleutianAI/pixelgp/services/evolve/storage/badger"
	"github.com/AleutianAI/pixelgp/services/evolve/visualize"
)

// inspectRun prints the run record, its per-generation history and the
// best program's trees.
func inspectRun(ctx context.Context, store *badger.RunStore, id string, channel int, w io.Writer) error {
	meta, err := store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}

	p := ux.NewPrinter(w)
	p.Title("run " + meta.ID)
	pairs := []string{
		"status", string(meta.Status),
		"seed", strconv.FormatInt(meta.Seed, 10),
		"input", meta.Input,
		"target", meta.Target,
		"generations", fmt.Sprintf("%d/%d", meta.Generations, meta.Config.Generations),
		"population", strconv.Itoa(meta.Config.Population),
		"pool", strconv.Itoa(meta.Config.BreedingPoolSize),
		"fitness", string(meta.Config.Fitness),
		"best_fitness", strconv.FormatFloat(meta.BestFitness, 'f', 4, 64),
	}
	if meta.Error != "" {
		pairs = append(pairs, "error", meta.Error)
	}
	p.KeyValues(pairs...)

	gens, err := store.Generations(ctx, id)
	if err != nil {
		return err
	}
	if len(gens) > 0 {
		var b strings.Builder
		for _, g := range gens {
			fmt.Fprintf(&b, "%4d  best %.4f  median %.4f  pool %d\n", g.Generation, g.Best, g.Median, g.PoolSize)
		}
		p.Box("generations", strings.TrimRight(b.String(), "\n"))
	}

	best, err := store.LoadBest(ctx, id)
	if errors.Is(err, badger.ErrNotFound) {
		p.Info("no best program recorded")
		return nil
	}
	if err != nil {
		return err
	}

	dump, err := visualize.DumpProgram(best.Program, channel)
	if err != nil {
		return err
	}
	p.Box(fmt.Sprintf("best program (generation %d, fitness %.4f)", best.Generation, best.Fitness), dump)
	return nil
}
