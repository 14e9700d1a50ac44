// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bucket combines a dimension's contributions into one number.
//
// Processing is deterministic: for a fixed multiset of contributions
// the result never depends on input order. Determinism comes from the
// internal sort (priority descending, then system ascending, then
// value ascending), never from caller ordering.
package bucket

import (
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Processor runs the fixed-order bucket pipeline for one dimension.
//
// The zero value processes the core four buckets only. Enable the
// extended buckets (Exponential, Logarithmic, Conditional) with
// WithExtendedBuckets.
type Processor struct {
	extended bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithExtendedBuckets enables the Exponential, Logarithmic, and
// Conditional buckets, processed after the core four in that order.
func WithExtendedBuckets() Option {
	return func(p *Processor) { p.extended = true }
}

// NewProcessor creates a Processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// coreOrder is the fixed processing order for the core buckets.
var coreOrder = [...]types.Bucket{
	types.BucketFlat,
	types.BucketMult,
	types.BucketPostAdd,
	types.BucketOverride,
}

// extendedOrder follows the core buckets when extended mode is on.
var extendedOrder = [...]types.Bucket{
	types.BucketExponential,
	types.BucketLogarithmic,
	types.BucketConditional,
}

// Order returns the bucket processing order for this processor.
func (p *Processor) Order() []types.Bucket {
	out := append([]types.Bucket(nil), coreOrder[:]...)
	if p.extended {
		out = append(out, extendedOrder[:]...)
	}
	return out
}

// Process combines contributions for one dimension into a single
// value, starting from initial and clamping to caps when non-nil.
//
// Bucket semantics: Flat and PostAdd sum into the running total, Mult
// multiplies it by each value in turn, and Override replaces it with
// the highest-priority override's value (priority descending is the
// sort order, so the first element of the sorted override bucket
// wins). Contributions are validated before any arithmetic; a single
// invalid entry fails the whole call.
func (p *Processor) Process(contribs []types.Contribution, initial float64, caps *types.Caps) (float64, error) {
	if err := ValidateContributions(contribs); err != nil {
		return 0, err
	}

	groups := groupByBucket(contribs)
	value := initial

	for _, b := range coreOrder {
		bucketContribs, ok := groups[b]
		if !ok {
			continue
		}
		sortDeterministic(bucketContribs)
		switch b {
		case types.BucketFlat, types.BucketPostAdd:
			for _, c := range bucketContribs {
				value += c.Value
			}
		case types.BucketMult:
			for _, c := range bucketContribs {
				value *= c.Value
			}
		case types.BucketOverride:
			value = bucketContribs[0].Value
		}
	}

	if p.extended {
		for _, b := range extendedOrder {
			bucketContribs, ok := groups[b]
			if !ok {
				continue
			}
			sortDeterministic(bucketContribs)
			var err error
			for _, c := range bucketContribs {
				value, err = applyExtended(value, c)
				if err != nil {
					return 0, err
				}
			}
		}
	} else {
		for _, b := range extendedOrder {
			if _, ok := groups[b]; ok {
				return 0, fmt.Errorf("%w: bucket %s requires extended mode",
					types.ErrInvalidContribution, b)
			}
		}
	}

	if caps != nil {
		value = caps.Clamp(value)
	}
	return value, nil
}

// applyExtended applies one extended-bucket contribution.
func applyExtended(value float64, c types.Contribution) (float64, error) {
	switch c.Bucket {
	case types.BucketExponential:
		return math.Pow(value, c.Value), nil
	case types.BucketLogarithmic:
		if c.Value <= 0 || c.Value == 1 {
			return 0, fmt.Errorf("%w: logarithmic bucket needs a base > 0 and != 1, got %v",
				types.ErrInvalidContribution, c.Value)
		}
		return math.Log(value) / math.Log(c.Value), nil
	case types.BucketConditional:
		return value + c.Value, nil
	default:
		return 0, fmt.Errorf("%w: bucket %s is not an extended bucket",
			types.ErrInvalidContribution, c.Bucket)
	}
}

// ValidateContributions rejects contributions with structural faults
// before any processing happens.
func ValidateContributions(contribs []types.Contribution) error {
	for _, c := range contribs {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// sortDeterministic orders a bucket's contributions: priority
// descending, then system ascending, then value ascending as the
// final tiebreak.
func sortDeterministic(contribs []types.Contribution) {
	sort.SliceStable(contribs, func(i, j int) bool {
		a, b := contribs[i], contribs[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.System != b.System {
			return a.System < b.System
		}
		return a.Value < b.Value
	})
}

// groupByBucket splits contributions into per-bucket slices.
func groupByBucket(contribs []types.Contribution) map[types.Bucket][]types.Contribution {
	groups := make(map[types.Bucket][]types.Contribution)
	for _, c := range contribs {
		groups[c.Bucket] = append(groups[c.Bucket], c)
	}
	return groups
}
