// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package visualize renders images, trees and fitness curves for humans.
//
// Preview draws an image in the terminal with upper half-block cells, two
// pixel rows per line. DumpTree and DumpProgram print the structure of
// evolved programs from gp's read-only Walk. PlotFitness writes the best
// and median error of each generation to an image file.
package visualize

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/pixelgp/pkg/ux"
	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	"github.com/charmbracelet/lipgloss"
)

// Panel is a titled image for SideBySide.
type Panel struct {
	Title string
	Image *gp.Image
}

// Preview renders img at most cols characters wide, preserving aspect
// ratio with nearest-neighbour sampling. Values are clamped to [0, 255].
func Preview(img *gp.Image, cols int) string {
	if img == nil || img.Empty() || cols <= 0 {
		return ""
	}
	cols = min(cols, img.Width)
	scale := float64(img.Width) / float64(cols)
	rows := max(1, int(float64(img.Height)/scale+0.5))

	var b strings.Builder
	for r := 0; r < rows; r += 2 {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < cols; c++ {
			x := min(int(float64(c)*scale), img.Width-1)
			top := pixelColor(img, x, min(int(float64(r)*scale), img.Height-1))
			style := lipgloss.NewStyle().Foreground(top)
			if r+1 < rows {
				style = style.Background(pixelColor(img, x, min(int(float64(r+1)*scale), img.Height-1)))
			}
			b.WriteString(style.Render("▀"))
		}
	}
	return b.String()
}

func pixelColor(img *gp.Image, x, y int) lipgloss.Color {
	var rgb [3]uint8
	for k := range rgb {
		ch := img.Channels[min(k, img.NumChannels()-1)]
		v := ch.At(x, y)
		switch {
		case !(v > 0):
			rgb[k] = 0
		case v >= 255:
			rgb[k] = 255
		default:
			rgb[k] = uint8(v + 0.5)
		}
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]))
}

// SideBySide renders panels next to each other with their titles above.
func SideBySide(cols int, panels ...Panel) string {
	blocks := make([]string, 0, len(panels))
	for _, p := range panels {
		block := lipgloss.JoinVertical(lipgloss.Left,
			ux.Styles.Subtitle.Render(p.Title),
			Preview(p.Image, cols),
		)
		blocks = append(blocks, lipgloss.NewStyle().PaddingRight(2).Render(block))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}
