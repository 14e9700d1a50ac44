// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package types

import "errors"

// Sentinel errors for structural validation. These are rejected before
// any subsystem is invoked and are never retried.
var (
	// ErrInvalidActor indicates an actor that fails structural checks
	// (nil id, zero version).
	ErrInvalidActor = errors.New("invalid actor")

	// ErrInvalidContribution indicates a contribution with an empty
	// dimension or system, or a non-finite value.
	ErrInvalidContribution = errors.New("invalid contribution")

	// ErrInvalidCap indicates caps with min > max or a negative min.
	ErrInvalidCap = errors.New("invalid cap")

	// ErrInvalidInput indicates malformed input outside the more
	// specific categories above.
	ErrInvalidInput = errors.New("invalid input")
)
