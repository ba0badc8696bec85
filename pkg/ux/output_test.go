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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModePlain, NewPrinter(&buf).Mode())
	assert.False(t, IsTerminal(&buf))
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterMode(&buf, ModePlain)

	p.Title("hidden")
	p.Success("saved")
	p.Warning("slow")
	p.Error("broken")
	p.Info("note")
	p.KeyValues("run_id", "abc", "best", "1.5")
	p.Box("Tree", "body")

	want := "OK: saved\nWARN: slow\nERROR: broken\nnote\nrun_id=abc\nbest=1.5\nTree:\nbody\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinter_Rich(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterMode(&buf, ModeRich)

	p.Title("Run")
	p.Success("saved")
	p.KeyValues("a", "1", "longer", "2")
	p.Box("Tree", "body")

	out := buf.String()
	assert.Contains(t, out, "Run")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "saved")
	assert.Contains(t, out, "longer")
	assert.Contains(t, out, "body")
	assert.Equal(t, p.Writer(), &buf)
}

func TestProgressBar_Plain(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBarMode(&buf, 4, ModePlain)

	bar.Set(1, "gen 1")
	bar.Set(9, "gen 9")
	bar.Finish()

	assert.Equal(t, "PROGRESS: 1/4 gen 1\nPROGRESS: 4/4 gen 9\n", buf.String())
}

func TestProgressBar_Rich(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBarMode(&buf, 2, ModeRich)

	bar.Set(1, "gen 1")
	bar.Set(2, "gen 2")
	bar.Finish()
	bar.Finish()

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "\r"))
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "gen 2")
}
