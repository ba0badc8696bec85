// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "errors"

// Sentinel errors for the engine package.
var (
	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrInvalidConfig is returned when run parameters fail validation.
	ErrInvalidConfig = errors.New("invalid engine config")

	// ErrInvariant wraps a structural defect detected while generating,
	// breeding or evaluating a program. The run that raised it is aborted.
	ErrInvariant = errors.New("structural invariant violated")

	// ErrBusy is returned when Run or Configure is called during a run.
	ErrBusy = errors.New("engine is already running")
)
