// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command pixelgp evolves image-to-image programs with genetic programming.
//
// Usage:
//
//	pixelgp run --input in.png --target target.png --generations 50 --out best.png
//	pixelgp runs --db ~/.pixelgp/runs
//	pixelgp inspect RUN_ID --db ~/.pixelgp/runs --channel 0
//	pixelgp plot results.log --out fitness.png
//
// Configuration is read from an optional YAML or JSON file (--config), then
// PIXELGP_* environment variables, then command-line flags.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
