// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package imageio

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 0, A: 255})

	img := FromImage(src)
	require.Equal(t, 3, img.NumChannels())
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.Equal(t, []float64{10, 200}, img.Channels[0].Pix)
	assert.Equal(t, []float64{20, 100}, img.Channels[1].Pix)
	assert.Equal(t, []float64{30, 0}, img.Channels[2].Pix)
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 7, 6))
	src.SetGray(5, 5, color.Gray{Y: 40})
	src.SetGray(6, 5, color.Gray{Y: 80})

	img := FromImage(src)
	for k := range 3 {
		assert.Equal(t, []float64{40, 80}, img.Channels[k].Pix)
	}
}

func TestToImage_ClampsAndRounds(t *testing.T) {
	img := gp.NewImage(4, 1, 3)
	copy(img.Channels[0].Pix, []float64{-5, 12.4, 12.6, 300})
	copy(img.Channels[1].Pix, []float64{math.NaN(), math.Inf(1), math.Inf(-1), 255})
	copy(img.Channels[2].Pix, []float64{0, 1, 2, 3})

	out := ToImage(img)
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 0, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 12, G: 255, B: 1, A: 255}, out.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 13, G: 0, B: 2, A: 255}, out.NRGBAAt(2, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 3, A: 255}, out.NRGBAAt(3, 0))
}

func TestToImage_SingleChannelIsGrey(t *testing.T) {
	out := ToImage(gp.SolidImage(1, 1, 77))
	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 255}, out.NRGBAAt(0, 0))
}

func TestSaveLoad_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	img := gp.NewImage(3, 2, 3)
	for k, ch := range img.Channels {
		for i := range ch.Pix {
			ch.Pix[i] = float64(k*50 + i*10)
		}
	}

	require.NoError(t, Save(path, img))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, img, got, "PNG is lossless for integer values")
}

func TestSaveLoad_JPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.JPG")
	img := gp.SolidImage(8, 8, 120, 60, 200)

	require.NoError(t, Save(path, img))
	got, err := Load(path)
	require.NoError(t, err)
	require.True(t, got.SameSize(img))
	for k := range 3 {
		assert.InDelta(t, img.Channels[k].Pix[0], got.Channels[k].Pix[0], 8)
	}
}

func TestSave_UnsupportedFormat(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "out.bmp"), gp.SolidImage(1, 1, 1, 1, 1))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.png"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
