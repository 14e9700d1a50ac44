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

import (
	"fmt"
	"math"
)

// Contribution is one source's proposed adjustment to a dimension.
// Contributions are produced by subsystems during fan-out, consumed
// once per resolution, and never persisted standalone.
type Contribution struct {
	// Dimension names the numeric attribute being adjusted.
	Dimension string `json:"dimension" yaml:"dimension"`

	// Bucket selects the processing stage within the pipeline.
	Bucket Bucket `json:"bucket" yaml:"bucket"`

	// Value is the adjustment. Must be finite; NaN and ±Inf are
	// rejected before aggregation starts.
	Value float64 `json:"value" yaml:"value"`

	// System identifies the contributing subsystem. Part of the
	// deterministic sort key.
	System string `json:"system" yaml:"system"`

	// Priority breaks ties within a bucket (higher first). Zero when
	// the contributor does not care.
	Priority int64 `json:"priority,omitempty" yaml:"priority,omitempty"`

	// Tags carry optional routing or debug metadata.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// NewContribution creates a contribution with default priority.
func NewContribution(dimension string, bucket Bucket, value float64, system string) Contribution {
	return Contribution{
		Dimension: dimension,
		Bucket:    bucket,
		Value:     value,
		System:    system,
	}
}

// Validate checks the contribution's structural invariants.
func (c Contribution) Validate() error {
	if c.Dimension == "" {
		return fmt.Errorf("%w: empty dimension", ErrInvalidContribution)
	}
	if c.System == "" {
		return fmt.Errorf("%w: empty system for dimension %q", ErrInvalidContribution, c.Dimension)
	}
	if !c.Bucket.Valid() {
		return fmt.Errorf("%w: bad bucket for dimension %q", ErrInvalidContribution, c.Dimension)
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return fmt.Errorf("%w: non-finite value %v for dimension %q from %q",
			ErrInvalidContribution, c.Value, c.Dimension, c.System)
	}
	return nil
}

// CapContribution is one source's declared bound on a dimension,
// scoped to exactly one cap layer.
type CapContribution struct {
	// System identifies the contributing subsystem.
	System string `json:"system" yaml:"system"`

	// Dimension names the attribute being bounded.
	Dimension string `json:"dimension" yaml:"dimension"`

	// Kind says whether this is a lower or upper bound.
	Kind CapKind `json:"kind" yaml:"kind"`

	// Mode refines how the bound folds into the accumulated caps.
	Mode CapMode `json:"mode" yaml:"mode"`

	// Value is the bound. Must be finite.
	Value float64 `json:"value" yaml:"value"`

	// Priority breaks ties between bounds of the same kind.
	Priority int64 `json:"priority,omitempty" yaml:"priority,omitempty"`

	// Scope names the cap layer this bound belongs to ("equipment",
	// "buffs"). Bounds with an unconfigured scope are ignored.
	Scope string `json:"scope" yaml:"scope"`

	// Realm optionally narrows the bound to a realm.
	Realm string `json:"realm,omitempty" yaml:"realm,omitempty"`

	// Tags carry optional routing or debug metadata.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// NewCapContribution creates a cap contribution for a layer.
func NewCapContribution(system, dimension string, kind CapKind, mode CapMode, value float64, scope string) CapContribution {
	return CapContribution{
		System:    system,
		Dimension: dimension,
		Kind:      kind,
		Mode:      mode,
		Value:     value,
		Scope:     scope,
	}
}

// Validate checks the cap contribution's structural invariants.
func (c CapContribution) Validate() error {
	if c.System == "" {
		return fmt.Errorf("%w: empty system", ErrInvalidCap)
	}
	if c.Dimension == "" {
		return fmt.Errorf("%w: empty dimension from %q", ErrInvalidCap, c.System)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: bad kind for dimension %q", ErrInvalidCap, c.Dimension)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: bad mode for dimension %q", ErrInvalidCap, c.Dimension)
	}
	if c.Scope == "" {
		return fmt.Errorf("%w: missing layer scope for dimension %q", ErrInvalidCap, c.Dimension)
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return fmt.Errorf("%w: non-finite value %v for dimension %q", ErrInvalidCap, c.Value, c.Dimension)
	}
	return nil
}
