// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressBar redraws a single progress line in place on a terminal and
// prints one line per step otherwise.
//
// Thread Safety: Safe for concurrent use.
type ProgressBar struct {
	mu    sync.Mutex
	w     io.Writer
	mode  Mode
	bar   progress.Model
	total int
	drawn bool
}

// NewProgressBar creates a bar for total steps. The mode follows
// NewPrinter: rich on a terminal, plain otherwise.
func NewProgressBar(w io.Writer, total int) *ProgressBar {
	mode := ModePlain
	if IsTerminal(w) {
		mode = ModeRich
	}
	return NewProgressBarMode(w, total, mode)
}

// NewProgressBarMode creates a bar with an explicit mode.
func NewProgressBarMode(w io.Writer, total int, mode Mode) *ProgressBar {
	return &ProgressBar{
		w:    w,
		mode: mode,
		bar: progress.New(
			progress.WithScaledGradient(string(ColorTealDeep), string(ColorTealBright)),
			progress.WithWidth(40),
		),
		total: max(total, 1),
	}
}

// Set draws the bar at done steps with a trailing label.
func (p *ProgressBar) Set(done int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	done = min(max(done, 0), p.total)
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "PROGRESS: %d/%d %s\n", done, p.total, label)
		return
	}
	pct := float64(done) / float64(p.total)
	fmt.Fprintf(p.w, "\r%s %s\x1b[K", p.bar.ViewAs(pct), Styles.Muted.Render(label))
	p.drawn = true
}

// Finish ends the progress line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}
