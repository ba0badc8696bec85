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
	"errors"
	"fmt"
)

var (
	// ErrTooFewChannels is returned when an image has fewer than NumChannels channels.
	ErrTooFewChannels = errors.New("image has fewer than 3 channels")

	// ErrEmptyImage is returned when an image has zero width or height.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrShapeMismatch is returned when two buffers that must align do not.
	ErrShapeMismatch = errors.New("image dimensions do not match")
)

// InvariantError reports a structural defect in a tree or program.
//
// It is raised with panic, never returned, because it can only be caused
// by a bug in generation, crossover or mutation. Use AsInvariant to turn
// a recovered value back into an error.
type InvariantError struct {
	// Op is the operation that detected the defect, e.g. "evaluate".
	Op string

	// Reason describes the violated rule.
	Reason string
}

// Error implements error.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("gp: invariant violated in %s: %s", e.Op, e.Reason)
}

// invariant panics with an *InvariantError.
func invariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// AsInvariant reports whether a recovered panic value is an *InvariantError.
//
// Example:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        ie, ok := gp.AsInvariant(r)
//	        if !ok {
//	            panic(r)
//	        }
//	        err = ie
//	    }
//	}()
func AsInvariant(recovered any) (*InvariantError, bool) {
	err, ok := recovered.(error)
	if !ok {
		return nil, false
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
