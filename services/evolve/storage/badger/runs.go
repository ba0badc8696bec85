// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/AleutianAI/pixelgp/pkg/validation"
	"github.com/AleutianAI/pixelgp/services/evolve/engine"
	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	dgbadger "github.com/dgraph-io/badger/v4"
)

var (
	// ErrNotFound is returned when a run or its best program is not stored.
	ErrNotFound = errors.New("run not found")

	// ErrEmptyRunID is returned when an operation is given an empty run ID.
	ErrEmptyRunID = validation.ErrEmptyRunID
)

// RunStatus is the lifecycle state of a stored run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunDone      RunStatus = "done"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// RunMeta describes one run.
type RunMeta struct {
	ID          string        `json:"id"`
	Seed        int64         `json:"seed"`
	Config      engine.Config `json:"config"`
	Input       string        `json:"input,omitempty"`
	Target      string        `json:"target,omitempty"`
	Status      RunStatus     `json:"status"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at,omitzero"`
	Generations int           `json:"generations"`
	BestFitness float64       `json:"best_fitness"`
}

// BestRecord is the stored best candidate of a run. The program is kept
// without its input so it can be inspected without the source image.
type BestRecord struct {
	CandidateID string      `json:"candidate_id"`
	Fitness     float64     `json:"fitness"`
	Generation  int         `json:"generation"`
	Program     *gp.Program `json:"program"`
}

// RunStore persists runs, their per-generation statistics and best
// programs.
//
// RunStore implements engine.StatsSink, so it can be handed to the engine
// with engine.WithSinks and records each generation as it completes.
//
// Thread Safety: Safe for concurrent use.
type RunStore struct {
	db     *DB
	logger *slog.Logger
}

// NewRunStore wraps an open database.
func NewRunStore(db *DB, logger *slog.Logger) *RunStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunStore{db: db, logger: logger}
}

func runPrefix(id string) []byte {
	return []byte("run/" + id + "/")
}

func metaKey(id string) []byte {
	return []byte("run/" + id + "/meta")
}

func genPrefix(id string) []byte {
	return []byte("run/" + id + "/gen/")
}

func genKey(id string, generation int) []byte {
	return []byte(fmt.Sprintf("run/%s/gen/%08d", id, generation))
}

func bestKey(id string) []byte {
	return []byte("run/" + id + "/best")
}

func putJSON(txn *dgbadger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *dgbadger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
}

// SaveRun creates or replaces the metadata of a run.
func (s *RunStore) SaveRun(ctx context.Context, meta RunMeta) error {
	if err := validation.ValidateRunID(meta.ID); err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return putJSON(txn, metaKey(meta.ID), meta)
	})
}

// GetRun returns the metadata of a run.
//
// Outputs:
//
//	*RunMeta - The stored metadata.
//	error - ErrNotFound if no run has this ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (*RunMeta, error) {
	if err := validation.ValidateRunID(id); err != nil {
		return nil, err
	}
	var meta RunMeta
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		return getJSON(txn, metaKey(id), &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListRuns returns every stored run, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]RunMeta, error) {
	var runs []RunMeta
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte("run/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if !bytes.HasSuffix(item.Key(), []byte("/meta")) {
				continue
			}
			var meta RunMeta
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			runs = append(runs, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(runs, func(a, b RunMeta) int {
		return cmp.Compare(b.StartedAt.UnixNano(), a.StartedAt.UnixNano())
	})
	return runs, nil
}

// RecordGeneration stores one generation's statistics under its run.
//
// Description:
//
//	Writes the statistics and, in the same transaction, updates the run's
//	metadata with the latest generation number and best fitness. The
//	first generation of an unknown run creates its metadata with status
//	RunRunning, so `pixelgp runs` shows a run while it is in progress.
func (s *RunStore) RecordGeneration(ctx context.Context, stats engine.GenerationStats) error {
	if err := validation.ValidateRunID(stats.RunID); err != nil {
		return err
	}
	return s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		var meta RunMeta
		switch err := getJSON(txn, metaKey(stats.RunID), &meta); {
		case errors.Is(err, ErrNotFound):
			meta = RunMeta{ID: stats.RunID, Status: RunRunning, StartedAt: time.Now().Add(-stats.Duration)}
		case err != nil:
			return err
		}
		meta.Generations = stats.Generation
		meta.BestFitness = stats.Best

		if err := putJSON(txn, metaKey(stats.RunID), meta); err != nil {
			return err
		}
		return putJSON(txn, genKey(stats.RunID, stats.Generation), stats)
	})
}

// Generations returns the stored statistics of a run in generation order.
// A run with no recorded generations yields an empty slice.
func (s *RunStore) Generations(ctx context.Context, id string) ([]engine.GenerationStats, error) {
	if err := validation.ValidateRunID(id); err != nil {
		return nil, err
	}
	var out []engine.GenerationStats
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		it := txn.NewIterator(dgbadger.DefaultIteratorOptions)
		defer it.Close()

		prefix := genPrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var stats engine.GenerationStats
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stats)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			out = append(out, stats)
		}
		return nil
	})
	return out, err
}

// SaveBest stores the best candidate of a run.
func (s *RunStore) SaveBest(ctx context.Context, id string, best *engine.Candidate) error {
	if err := validation.ValidateRunID(id); err != nil {
		return err
	}
	if best == nil || best.Program == nil {
		return errors.New("best candidate has no program")
	}
	rec := BestRecord{
		CandidateID: best.ID,
		Fitness:     best.Fitness,
		Generation:  best.Generation,
		Program:     best.Program,
	}
	return s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return putJSON(txn, bestKey(id), rec)
	})
}

// LoadBest returns the stored best candidate of a run.
//
// Outputs:
//
//	*BestRecord - The record; its program has no input set.
//	error - ErrNotFound if the run has no stored best program.
func (s *RunStore) LoadBest(ctx context.Context, id string) (*BestRecord, error) {
	if err := validation.ValidateRunID(id); err != nil {
		return nil, err
	}
	var rec BestRecord
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		return getJSON(txn, bestKey(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRun removes a run and everything stored under it.
func (s *RunStore) DeleteRun(ctx context.Context, id string) error {
	if err := validation.ValidateRunID(id); err != nil {
		return err
	}
	if _, err := s.GetRun(ctx, id); err != nil {
		return err
	}
	if err := s.db.DropPrefix(runPrefix(id)); err != nil {
		return fmt.Errorf("drop run %s: %w", id, err)
	}
	s.logger.Debug("run deleted", slog.String("run_id", id))
	return nil
}

// FinishRun records the outcome of a run.
//
// Description:
//
//	Merges info (input and target paths, start time) with the run's
//	identity and parameters from result, sets the status from runErr
//	(context cancellation is RunCancelled) and saves the metadata. The
//	best program is saved when the result has one. A start time already
//	stored by RecordGeneration is kept when info has none.
//
// Inputs:
//
//	ctx - Must not be cancelled; pass a fresh context after a cancelled run.
//	info - Caller-known fields of RunMeta.
//	result - The engine result. Must not be nil.
//	runErr - The error Run returned, if any.
func (s *RunStore) FinishRun(ctx context.Context, info RunMeta, result *engine.Result, runErr error) error {
	if result == nil {
		return errors.New("nil result")
	}

	meta := info
	meta.ID = result.RunID
	meta.Seed = result.Seed
	meta.Config = result.Config
	meta.Generations = len(result.Stats)
	meta.FinishedAt = time.Now()

	if meta.StartedAt.IsZero() {
		prev, err := s.GetRun(ctx, result.RunID)
		switch {
		case err == nil:
			meta.StartedAt = prev.StartedAt
		case !errors.Is(err, ErrNotFound):
			return err
		default:
			meta.StartedAt = meta.FinishedAt
		}
	}

	switch {
	case runErr == nil:
		meta.Status = RunDone
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		meta.Status = RunCancelled
		meta.Error = runErr.Error()
	default:
		meta.Status = RunFailed
		meta.Error = runErr.Error()
	}
	if result.Best != nil {
		meta.BestFitness = result.Best.Fitness
	}

	if err := s.SaveRun(ctx, meta); err != nil {
		return err
	}
	if result.Best != nil {
		return s.SaveBest(ctx, result.RunID, result.Best)
	}
	return nil
}
