// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gp

import (
	"fmt"
	"slices"
)

// NumChannels is the number of channel trees in a Program.
const NumChannels = 3

// Channel is a single-channel floating-point pixel buffer in row-major order.
type Channel struct {
	Width  int
	Height int
	Pix    []float64
}

// NewChannel allocates a zeroed channel.
func NewChannel(width, height int) *Channel {
	return &Channel{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// Empty reports whether the channel holds no pixels.
func (c *Channel) Empty() bool {
	return c == nil || c.Width <= 0 || c.Height <= 0 || len(c.Pix) == 0
}

// SameSize reports whether both channels have the same dimensions.
func (c *Channel) SameSize(o *Channel) bool {
	return c != nil && o != nil && c.Width == o.Width && c.Height == o.Height
}

// At returns the pixel at (x, y).
func (c *Channel) At(x, y int) float64 {
	return c.Pix[y*c.Width+x]
}

// Clone returns a deep copy.
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}
	return &Channel{Width: c.Width, Height: c.Height, Pix: slices.Clone(c.Pix)}
}

// Image is a planar multi-channel image with float64 samples.
//
// Samples loaded from 8-bit files are in [0, 255]; evaluated outputs are
// unbounded.
type Image struct {
	Width    int
	Height   int
	Channels []*Channel
}

// NewImage allocates a zeroed image with the given number of channels.
func NewImage(width, height, channels int) *Image {
	img := &Image{Width: width, Height: height, Channels: make([]*Channel, channels)}
	for i := range img.Channels {
		img.Channels[i] = NewChannel(width, height)
	}
	return img
}

// SolidImage returns an image where channel i is filled with values[i].
func SolidImage(width, height int, values ...float64) *Image {
	img := NewImage(width, height, len(values))
	for i, v := range values {
		pix := img.Channels[i].Pix
		for j := range pix {
			pix[j] = v
		}
	}
	return img
}

// Merge assembles an image from channels of identical dimensions.
func Merge(channels ...*Channel) (*Image, error) {
	if len(channels) == 0 {
		return nil, ErrEmptyImage
	}
	first := channels[0]
	if first.Empty() {
		return nil, ErrEmptyImage
	}
	for i, c := range channels[1:] {
		if !first.SameSize(c) {
			return nil, fmt.Errorf("channel %d: %w", i+1, ErrShapeMismatch)
		}
	}
	return &Image{Width: first.Width, Height: first.Height, Channels: channels}, nil
}

// NumChannels returns the number of channels.
func (img *Image) NumChannels() int {
	return len(img.Channels)
}

// Empty reports whether the image holds no pixels.
func (img *Image) Empty() bool {
	return img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Channels) == 0
}

// SameSize reports whether both images have the same width and height.
func (img *Image) SameSize(o *Image) bool {
	return img != nil && o != nil && img.Width == o.Width && img.Height == o.Height
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	out := &Image{Width: img.Width, Height: img.Height, Channels: make([]*Channel, len(img.Channels))}
	for i, c := range img.Channels {
		out.Channels[i] = c.Clone()
	}
	return out
}

// Split returns the first NumChannels channels.
//
// The returned channels alias the image's buffers. Callers that need to
// write must Clone them.
func (img *Image) Split() ([]*Channel, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	if len(img.Channels) < NumChannels {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewChannels, len(img.Channels))
	}
	out := make([]*Channel, NumChannels)
	for i := range out {
		c := img.Channels[i]
		if c.Empty() || c.Width != img.Width || c.Height != img.Height {
			return nil, fmt.Errorf("channel %d: %w", i, ErrShapeMismatch)
		}
		out[i] = c
	}
	return out, nil
}

// CheckPair validates an input/target pair for a run: both must be non-empty,
// have at least NumChannels channels, and share dimensions.
func CheckPair(input, target *Image) error {
	if input.Empty() || target.Empty() {
		return ErrEmptyImage
	}
	if input.NumChannels() < NumChannels {
		return fmt.Errorf("input: %w: got %d", ErrTooFewChannels, input.NumChannels())
	}
	if target.NumChannels() < NumChannels {
		return fmt.Errorf("target: %w: got %d", ErrTooFewChannels, target.NumChannels())
	}
	if !input.SameSize(target) {
		return fmt.Errorf("%w: input %dx%d, target %dx%d",
			ErrShapeMismatch, input.Width, input.Height, target.Width, target.Height)
	}
	return nil
}
