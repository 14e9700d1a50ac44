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

// Bucket defines how contributions to a dimension combine during
// pipeline processing. Buckets are applied in a fixed order:
// Flat → Mult → PostAdd → Override, then the extended buckets
// (Exponential → Logarithmic → Conditional) when enabled.
type Bucket uint8

const (
	// BucketFlat adds the contribution value to the running total.
	BucketFlat Bucket = iota

	// BucketMult multiplies the running total by the contribution value.
	BucketMult

	// BucketPostAdd adds the contribution value after multiplication.
	BucketPostAdd

	// BucketOverride replaces the running total. The highest-priority
	// override wins outright; lower-priority overrides are ignored.
	BucketOverride

	// BucketExponential raises the running total to the contribution
	// value. Extended bucket, disabled unless the processor opts in.
	BucketExponential

	// BucketLogarithmic takes the log of the running total in the base
	// given by the contribution value. Extended bucket.
	BucketLogarithmic

	// BucketConditional adds the value when its condition holds.
	// Extended bucket; condition evaluation is the contributor's job,
	// the processor treats it as a plain addition.
	BucketConditional

	bucketCount
)

var bucketNames = [bucketCount]string{
	"flat",
	"mult",
	"post_add",
	"override",
	"exponential",
	"logarithmic",
	"conditional",
}

// String returns the wire name of the bucket.
func (b Bucket) String() string {
	if int(b) < len(bucketNames) {
		return bucketNames[b]
	}
	return fmt.Sprintf("bucket(%d)", uint8(b))
}

// Valid reports whether the bucket is a known value.
func (b Bucket) Valid() bool {
	return b < bucketCount
}

// Extended reports whether the bucket is one of the optional
// extended buckets rather than the core four.
func (b Bucket) Extended() bool {
	return b >= BucketExponential && b < bucketCount
}

// ParseBucket converts a wire name into a Bucket.
func ParseBucket(s string) (Bucket, error) {
	for i, name := range bucketNames {
		if name == s {
			return Bucket(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown bucket %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler so buckets round-trip
// through YAML and JSON configuration.
func (b Bucket) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: bucket out of range: %d", ErrInvalidInput, uint8(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bucket) UnmarshalText(text []byte) error {
	parsed, err := ParseBucket(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// CapKind distinguishes minimum bounds from maximum bounds.
type CapKind uint8

const (
	// CapMin declares a lower bound for a dimension.
	CapMin CapKind = iota

	// CapMax declares an upper bound for a dimension.
	CapMax

	capKindCount
)

var capKindNames = [capKindCount]string{"min", "max"}

// String returns the wire name of the cap kind.
func (k CapKind) String() string {
	if int(k) < len(capKindNames) {
		return capKindNames[k]
	}
	return fmt.Sprintf("cap_kind(%d)", uint8(k))
}

// Valid reports whether the cap kind is a known value.
func (k CapKind) Valid() bool {
	return k < capKindCount
}

// ParseCapKind converts a wire name into a CapKind.
func ParseCapKind(s string) (CapKind, error) {
	for i, name := range capKindNames {
		if name == s {
			return CapKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown cap kind %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k CapKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: cap kind out of range: %d", ErrInvalidInput, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CapKind) UnmarshalText(text []byte) error {
	parsed, err := ParseCapKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// CapMode describes how a cap contribution applies to the bounds
// already accumulated for its dimension.
type CapMode uint8

const (
	// CapModeBaseline pins both bounds to the contribution value.
	CapModeBaseline CapMode = iota

	// CapModeAdditive widens the accumulated range by the value.
	CapModeAdditive

	// CapModeHardMax declares an upper bound.
	CapModeHardMax

	// CapModeHardMin declares a lower bound.
	CapModeHardMin

	// CapModeOverride replaces the accumulated bounds entirely.
	CapModeOverride

	// CapModeSoftMax declares an upper bound that reducers may exceed.
	CapModeSoftMax

	capModeCount
)

var capModeNames = [capModeCount]string{
	"baseline",
	"additive",
	"hard_max",
	"hard_min",
	"override",
	"soft_max",
}

// String returns the wire name of the cap mode.
func (m CapMode) String() string {
	if int(m) < len(capModeNames) {
		return capModeNames[m]
	}
	return fmt.Sprintf("cap_mode(%d)", uint8(m))
}

// Valid reports whether the cap mode is a known value.
func (m CapMode) Valid() bool {
	return m < capModeCount
}

// ParseCapMode converts a wire name into a CapMode.
func ParseCapMode(s string) (CapMode, error) {
	for i, name := range capModeNames {
		if name == s {
			return CapMode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown cap mode %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m CapMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: cap mode out of range: %d", ErrInvalidInput, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *CapMode) UnmarshalText(text []byte) error {
	parsed, err := ParseCapMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Operator names a reduction applied to a dimension's merged values
// when its merge rule bypasses the bucket pipeline.
type Operator uint8

const (
	// OperatorSum adds all values.
	OperatorSum Operator = iota

	// OperatorMax takes the largest value.
	OperatorMax

	// OperatorMin takes the smallest value.
	OperatorMin

	// OperatorAverage takes the arithmetic mean.
	OperatorAverage

	// OperatorMultiply multiplies all values together.
	OperatorMultiply

	// OperatorCustom resolves a registered named reduction. The merge
	// rule carries the strategy name.
	OperatorCustom

	operatorCount
)

var operatorNames = [operatorCount]string{
	"sum",
	"max",
	"min",
	"average",
	"multiply",
	"custom",
}

// String returns the wire name of the operator.
func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("operator(%d)", uint8(o))
}

// Valid reports whether the operator is a known value.
func (o Operator) Valid() bool {
	return o < operatorCount
}

// ParseOperator converts a wire name into an Operator.
func ParseOperator(s string) (Operator, error) {
	for i, name := range operatorNames {
		if name == s {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown operator %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: operator out of range: %d", ErrInvalidInput, uint8(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Operator) UnmarshalText(text []byte) error {
	parsed, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// AcrossLayerPolicy selects how per-layer caps fold into the final
// effective caps for a dimension.
type AcrossLayerPolicy uint8

const (
	// PolicyIntersect narrows monotonically: the running min is raised
	// to each layer's min, the running max lowered to each layer's max.
	PolicyIntersect AcrossLayerPolicy = iota

	// PolicyUnion widens: the loosest bound from any layer survives.
	PolicyUnion

	// PolicyPrioritizedOverride lets the last layer in the configured
	// order fully replace the accumulated caps for a dimension.
	PolicyPrioritizedOverride

	policyCount
)

var policyNames = [policyCount]string{
	"intersect",
	"union",
	"prioritized_override",
}

// String returns the wire name of the policy.
func (p AcrossLayerPolicy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// Valid reports whether the policy is a known value.
func (p AcrossLayerPolicy) Valid() bool {
	return p < policyCount
}

// ParseAcrossLayerPolicy converts a wire name into a policy.
func ParseAcrossLayerPolicy(s string) (AcrossLayerPolicy, error) {
	for i, name := range policyNames {
		if name == s {
			return AcrossLayerPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown across-layer policy %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p AcrossLayerPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: policy out of range: %d", ErrInvalidInput, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *AcrossLayerPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseAcrossLayerPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
