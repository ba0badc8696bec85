// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package imageio converts between image files and gp images.
//
// Decoded images become three float64 channels (red, green, blue) in
// [0, 255]. Alpha is dropped. Encoding clamps each value to [0, 255] and
// rounds to the nearest integer.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/pixelgp/services/evolve/gp"
)

// ErrUnsupportedFormat is returned by Save for an unknown file extension.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Load decodes a PNG or JPEG file.
func Load(path string) (*gp.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromImage(src), nil
}

// FromImage converts any image.Image into a three-channel gp.Image.
func FromImage(src image.Image) *gp.Image {
	b := src.Bounds()
	img := gp.NewImage(b.Dx(), b.Dy(), gp.NumChannels)
	r, g, bl := img.Channels[0].Pix, img.Channels[1].Pix, img.Channels[2].Pix

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := y*b.Dx() + x
			r[i] = float64(c.R)
			g[i] = float64(c.G)
			bl[i] = float64(c.B)
		}
	}
	return img
}

// ToImage converts the first three channels of img into an opaque NRGBA
// image. A single-channel image is rendered as grey.
func ToImage(img *gp.Image) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	if img.Empty() || img.NumChannels() == 0 {
		return out
	}

	ch := func(k int) []float64 {
		if k < img.NumChannels() {
			return img.Channels[k].Pix
		}
		return img.Channels[0].Pix
	}
	r, g, b := ch(0), ch(1), ch(2)

	for i := range r {
		o := i * 4
		out.Pix[o] = clamp8(r[i])
		out.Pix[o+1] = clamp8(g[i])
		out.Pix[o+2] = clamp8(b[i])
		out.Pix[o+3] = 0xff
	}
	return out
}

func clamp8(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}

// Save encodes img to path. The format follows the extension: .png, or
// .jpg/.jpeg at quality 95.
func Save(path string, img *gp.Image) error {
	var encode func(f *os.File, m image.Image) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encode = func(f *os.File, m image.Image) error { return png.Encode(f, m) }
	case ".jpg", ".jpeg":
		encode = func(f *os.File, m image.Image) error {
			return jpeg.Encode(f, m, &jpeg.Options{Quality: 95})
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := encode(f, ToImage(img)); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
