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

// Caps is a (min, max) bound on a dimension's final value.
//
// The type itself only requires min ≤ max for Validate; the game-domain
// rule that min must be non-negative is enforced by ValidateCaps in the
// caps provider, not here, so internal intermediates may go negative.
type Caps struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// NewCaps creates a caps pair.
func NewCaps(min, max float64) Caps {
	return Caps{Min: min, Max: max}
}

// UnboundedCaps is the identity for intersection: every real value is
// inside it.
func UnboundedCaps() Caps {
	return Caps{Min: math.Inf(-1), Max: math.Inf(1)}
}

// EmptyCaps is the identity for union: no real value is inside it.
func EmptyCaps() Caps {
	return Caps{Min: math.Inf(1), Max: math.Inf(-1)}
}

// IsValid reports min ≤ max with both bounds non-NaN.
func (c Caps) IsValid() bool {
	return !math.IsNaN(c.Min) && !math.IsNaN(c.Max) && c.Min <= c.Max
}

// IsEmpty reports an inverted range (min > max).
func (c Caps) IsEmpty() bool {
	return c.Min > c.Max
}

// Clamp pulls a value into the range: floor first, then ceiling.
func (c Caps) Clamp(value float64) float64 {
	return math.Min(math.Max(value, c.Min), c.Max)
}

// Contains reports whether the value lies inside the range inclusive.
func (c Caps) Contains(value float64) bool {
	return value >= c.Min && value <= c.Max
}

// Intersection narrows: the result admits only values both ranges admit.
func (c Caps) Intersection(other Caps) Caps {
	return Caps{
		Min: math.Max(c.Min, other.Min),
		Max: math.Min(c.Max, other.Max),
	}
}

// Union widens: the result admits values either range admits.
func (c Caps) Union(other Caps) Caps {
	return Caps{
		Min: math.Min(c.Min, other.Min),
		Max: math.Max(c.Max, other.Max),
	}
}

// Range returns max - min.
func (c Caps) Range() float64 {
	return c.Max - c.Min
}

// Expand widens both bounds outward by amount.
func (c Caps) Expand(amount float64) Caps {
	return Caps{Min: c.Min - amount, Max: c.Max + amount}
}

// Shrink narrows both bounds inward by amount, collapsing to the
// center when they would cross.
func (c Caps) Shrink(amount float64) Caps {
	out := Caps{Min: c.Min + amount, Max: c.Max - amount}
	if out.Min > out.Max {
		center := (c.Min + c.Max) / 2
		out.Min, out.Max = center, center
	}
	return out
}

// Validate checks min ≤ max and finiteness of present bounds.
func (c Caps) Validate() error {
	if math.IsNaN(c.Min) || math.IsNaN(c.Max) {
		return fmt.Errorf("%w: NaN bound (min=%v, max=%v)", ErrInvalidCap, c.Min, c.Max)
	}
	if c.Min > c.Max {
		return fmt.Errorf("%w: min %v exceeds max %v", ErrInvalidCap, c.Min, c.Max)
	}
	return nil
}

func (c Caps) String() string {
	return fmt.Sprintf("[%g, %g]", c.Min, c.Max)
}
