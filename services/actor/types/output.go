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

import "fmt"

// SubsystemMeta identifies the producer of a SubsystemOutput.
type SubsystemMeta struct {
	// System is the contributing subsystem's id.
	System string `json:"system" yaml:"system"`

	// Stage optionally names the pipeline stage the output was
	// produced in, for diagnostics.
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`

	// Version is the subsystem's data version, when it tracks one.
	Version int64 `json:"version,omitempty" yaml:"version,omitempty"`
}

// SubsystemOutput is the result of one subsystem's contribute call.
// It is produced fresh per resolution and discarded after Merge.
type SubsystemOutput struct {
	// Primary holds contributions to primary dimensions.
	Primary []Contribution `json:"primary" yaml:"primary"`

	// Derived holds contributions to derived dimensions.
	Derived []Contribution `json:"derived" yaml:"derived"`

	// Caps holds layered bound declarations.
	Caps []CapContribution `json:"caps" yaml:"caps"`

	// Meta identifies the producer.
	Meta SubsystemMeta `json:"meta" yaml:"meta"`
}

// NewSubsystemOutput creates an empty output for a system.
func NewSubsystemOutput(systemID string) *SubsystemOutput {
	return &SubsystemOutput{Meta: SubsystemMeta{System: systemID}}
}

// AddPrimary appends a primary contribution.
func (o *SubsystemOutput) AddPrimary(c Contribution) {
	o.Primary = append(o.Primary, c)
}

// AddDerived appends a derived contribution.
func (o *SubsystemOutput) AddDerived(c Contribution) {
	o.Derived = append(o.Derived, c)
}

// AddCap appends a cap contribution.
func (o *SubsystemOutput) AddCap(c CapContribution) {
	o.Caps = append(o.Caps, c)
}

// Validate checks every contribution in the output. The first failure
// is returned; a failing output aborts the whole resolution.
func (o *SubsystemOutput) Validate() error {
	if o.Meta.System == "" {
		return fmt.Errorf("%w: output missing system id", ErrInvalidInput)
	}
	for _, c := range o.Primary {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("primary from %q: %w", o.Meta.System, err)
		}
	}
	for _, c := range o.Derived {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("derived from %q: %w", o.Meta.System, err)
		}
	}
	for _, c := range o.Caps {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("cap from %q: %w", o.Meta.System, err)
		}
	}
	return nil
}
