// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resultslog writes and reads the plain-text results log.
//
// Each generation is one block:
//
//	Generation: 3
//	Best error: 4.2157%
//	Median error: 9.8039%
//	<blank line>
//
// Errors are percentages of the pixel full scale (255 for 8-bit images).
package resultslog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/AleutianAI/pixelgp/services/evolve/engine"
)

// DefaultFullScale is the pixel full scale of 8-bit images.
const DefaultFullScale = 255.0

// ErrMalformed is returned by Read for a line that does not fit the format.
var ErrMalformed = errors.New("malformed results log")

// Entry is one generation of the log.
type Entry struct {
	Generation int
	// Best and Median are percentages of the full scale.
	Best   float64
	Median float64
}

// Percent converts a fitness value to a percentage of fullScale.
func Percent(fitness, fullScale float64) float64 {
	if fullScale <= 0 {
		fullScale = DefaultFullScale
	}
	return 100 * fitness / fullScale
}

// FromStats converts engine statistics into log entries.
func FromStats(stats []engine.GenerationStats, fullScale float64) []Entry {
	out := make([]Entry, len(stats))
	for i, s := range stats {
		out[i] = Entry{
			Generation: s.Generation,
			Best:       Percent(s.Best, fullScale),
			Median:     Percent(s.Median, fullScale),
		}
	}
	return out
}

// Writer appends generation blocks to an io.Writer. It implements
// engine.StatsSink.
//
// Thread Safety: Safe for concurrent use.
type Writer struct {
	mu        sync.Mutex
	w         *bufio.Writer
	closer    io.Closer
	fullScale float64
}

// NewWriter returns a Writer over w. A non-positive fullScale means
// DefaultFullScale.
func NewWriter(w io.Writer, fullScale float64) *Writer {
	if fullScale <= 0 {
		fullScale = DefaultFullScale
	}
	return &Writer{w: bufio.NewWriter(w), fullScale: fullScale}
}

// Create truncates or creates the file at path and returns a Writer on it.
// Close must be called to flush and close the file.
func Create(path string, fullScale float64) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create results log: %w", err)
	}
	w := NewWriter(f, fullScale)
	w.closer = f
	return w, nil
}

// RecordGeneration writes one block and flushes it, so the log is
// readable while the run continues.
func (w *Writer) RecordGeneration(_ context.Context, stats engine.GenerationStats) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := fmt.Fprintf(w.w, "Generation: %d\nBest error: %.4f%%\nMedian error: %.4f%%\n\n",
		stats.Generation,
		Percent(stats.Best, w.fullScale),
		Percent(stats.Median, w.fullScale),
	)
	if err != nil {
		return fmt.Errorf("write results log: %w", err)
	}
	return w.w.Flush()
}

// Close flushes buffered output and closes the file opened by Create.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.w.Flush()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
		w.closer = nil
	}
	return err
}

// Read parses a results log.
//
// Description:
//
//	Accepts any amount of blank lines between blocks and a missing
//	trailing blank line. A block must list its three lines in order.
//	The "%" suffix is optional.
//
// Outputs:
//
//	[]Entry - Entries in file order.
//	error - Wraps ErrMalformed with the offending line number.
func Read(r io.Reader) ([]Entry, error) {
	var (
		out  []Entry
		cur  Entry
		step int
		line int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			if step != 0 {
				return nil, fmt.Errorf("%w: line %d: incomplete block", ErrMalformed, line)
			}
			continue
		}

		var err error
		switch step {
		case 0:
			cur = Entry{}
			cur.Generation, err = parseInt(text, "Generation:")
		case 1:
			cur.Best, err = parsePercent(text, "Best error:")
		case 2:
			cur.Median, err = parsePercent(text, "Median error:")
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}

		step++
		if step == 3 {
			out = append(out, cur)
			step = 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read results log: %w", err)
	}
	if step != 0 {
		return nil, fmt.Errorf("%w: line %d: incomplete block", ErrMalformed, line)
	}
	return out, nil
}

// ReadFile parses the results log at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results log: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func field(text, label string) (string, error) {
	rest, ok := strings.CutPrefix(text, label)
	if !ok {
		return "", fmt.Errorf("expected %q, got %q", label, text)
	}
	return strings.TrimSpace(rest), nil
}

func parseInt(text, label string) (int, error) {
	v, err := field(text, label)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func parsePercent(text, label string) (float64, error) {
	v, err := field(text, label)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
}
