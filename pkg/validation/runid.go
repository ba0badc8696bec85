// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks user-supplied identifiers before they reach
// storage keys or file paths.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyRunID is returned for an empty run ID.
	ErrEmptyRunID = errors.New("run id must not be empty")

	// ErrInvalidRunID is returned for a run ID with characters outside
	// the allowed set.
	ErrInvalidRunID = errors.New("invalid run id")
)

// runIDPattern matches run IDs: engine UUIDs and short hand-picked names.
// Allows letters, digits, dots, underscores and hyphens; no key
// separators, no leading punctuation, at most 64 characters.
var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateRunID checks that id is safe to embed in a store key.
//
// Run IDs are joined into keys such as "run/<id>/meta", so a "/" in an ID
// would let one run's prefix cover another's.
//
// Example:
//
//	if err := validation.ValidateRunID(id); err != nil {
//	    return nil, err
//	}
func ValidateRunID(id string) error {
	if id == "" {
		return ErrEmptyRunID
	}
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (1-64 letters, digits, dots, underscores or hyphens)", ErrInvalidRunID, id)
	}
	return nil
}

// SanitizeRunID trims surrounding whitespace and validates the result.
// Use it on IDs typed by a user, e.g. a CLI argument.
func SanitizeRunID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if err := ValidateRunID(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
