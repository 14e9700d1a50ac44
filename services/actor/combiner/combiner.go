// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package combiner maps dimensions to merge rules: either run the
// bucket pipeline or reduce the dimension's merged values with a
// named operator.
//
// Custom reductions are registered by name rather than passed as raw
// function values, so rules remain serializable and config-selectable.
package combiner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Sentinel errors for the combiner package.
var (
	// ErrRuleNotFound indicates no merge rule exists for a dimension.
	ErrRuleNotFound = errors.New("merge rule not found")

	// ErrUnknownStrategy indicates a custom operator name with no
	// registered reduction.
	ErrUnknownStrategy = errors.New("unknown custom strategy")

	// ErrInvalidRule indicates a rule that fails validation.
	ErrInvalidRule = errors.New("invalid merge rule")
)

// MergeRule selects how one dimension's merged contributions become a
// value. Configured externally; read-only to the aggregation core.
type MergeRule struct {
	// UsePipeline routes the dimension through the bucket pipeline.
	// When false the Operator reduction applies instead.
	UsePipeline bool `json:"use_pipeline" yaml:"use_pipeline"`

	// Operator names the reduction for non-pipeline dimensions.
	Operator types.Operator `json:"operator" yaml:"operator"`

	// Strategy names the registered reduction when Operator is
	// custom. Empty otherwise.
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`

	// ClampDefault bounds the reduced value when the caps provider
	// yields no effective caps for the dimension. Nil means no
	// combiner-level clamp.
	ClampDefault *types.Caps `json:"clamp_default,omitempty" yaml:"clamp_default,omitempty"`
}

// Validate checks the rule's structural invariants.
func (r MergeRule) Validate() error {
	if !r.UsePipeline && !r.Operator.Valid() {
		return fmt.Errorf("%w: bad operator", ErrInvalidRule)
	}
	if r.Operator == types.OperatorCustom && r.Strategy == "" {
		return fmt.Errorf("%w: custom operator requires a strategy name", ErrInvalidRule)
	}
	if r.ClampDefault != nil {
		if err := r.ClampDefault.Validate(); err != nil {
			return fmt.Errorf("%w: clamp default: %v", ErrInvalidRule, err)
		}
	}
	return nil
}

// Reduction folds a dimension's merged values into one number.
// Implementations must be pure: same values in, same value out.
type Reduction func(values []float64) float64

// Registry resolves merge rules for dimensions.
type Registry interface {
	// GetRule returns the rule for a dimension, or false when the
	// dimension falls back to the bucket pipeline.
	GetRule(dimension string) (MergeRule, bool)

	// Validate checks every registered rule.
	Validate() error
}

// MemoryRegistry is the in-process Registry. Reads are lock-free in
// the common path (RWMutex read lock); mutation happens only through
// administrative calls.
type MemoryRegistry struct {
	mu         sync.RWMutex
	rules      map[string]MergeRule
	strategies map[string]Reduction
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		rules:      make(map[string]MergeRule),
		strategies: make(map[string]Reduction),
	}
}

// NewDefaultRegistry creates a registry preloaded with the default
// rule table: primary dimensions run the bucket pipeline, percentage
// style derived dimensions reduce by sum with their fallback bounds
// as clamp defaults.
func NewDefaultRegistry() *MemoryRegistry {
	r := NewMemoryRegistry()
	for _, dim := range types.PrimaryDimensions() {
		rule := MergeRule{UsePipeline: true}
		if caps, ok := types.FallbackBounds(dim); ok {
			c := caps
			rule.ClampDefault = &c
		}
		r.rules[dim] = rule
	}
	for _, dim := range types.DerivedDimensions() {
		rule := MergeRule{Operator: types.OperatorSum}
		if caps, ok := types.FallbackBounds(dim); ok {
			c := caps
			rule.ClampDefault = &c
		}
		r.rules[dim] = rule
	}
	return r
}

// GetRule implements Registry.
func (r *MemoryRegistry) GetRule(dimension string) (MergeRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[dimension]
	return rule, ok
}

// SetRule installs or replaces the rule for a dimension.
func (r *MemoryRegistry) SetRule(dimension string, rule MergeRule) error {
	if dimension == "" {
		return fmt.Errorf("%w: empty dimension", ErrInvalidRule)
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("dimension %q: %w", dimension, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[dimension] = rule
	return nil
}

// DeleteRule removes the rule for a dimension, returning the
// dimension to pipeline fallback.
func (r *MemoryRegistry) DeleteRule(dimension string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, dimension)
}

// RegisterStrategy installs a named custom reduction. Registering an
// existing name replaces it.
func (r *MemoryRegistry) RegisterStrategy(name string, fn Reduction) error {
	if name == "" {
		return fmt.Errorf("%w: empty strategy name", ErrInvalidRule)
	}
	if fn == nil {
		return fmt.Errorf("%w: nil reduction for strategy %q", ErrInvalidRule, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[name] = fn
	return nil
}

// Strategy resolves a registered custom reduction by name.
func (r *MemoryRegistry) Strategy(name string) (Reduction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.strategies[name]
	return fn, ok
}

// Validate implements Registry. Custom rules must resolve against the
// strategy table.
func (r *MemoryRegistry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for dim, rule := range r.rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("dimension %q: %w", dim, err)
		}
		if !rule.UsePipeline && rule.Operator == types.OperatorCustom {
			if _, ok := r.strategies[rule.Strategy]; !ok {
				return fmt.Errorf("%w: %q for dimension %q", ErrUnknownStrategy, rule.Strategy, dim)
			}
		}
	}
	return nil
}

// Rules returns a copy of the rule table, for config persistence.
func (r *MemoryRegistry) Rules() map[string]MergeRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]MergeRule, len(r.rules))
	for dim, rule := range r.rules {
		out[dim] = rule
	}
	return out
}

// Reduce applies a rule's operator to a dimension's merged values.
// The strategies table is consulted for custom operators; pass the
// registry itself for lookup. Reducing an empty slice yields 0.
func (r *MemoryRegistry) Reduce(rule MergeRule, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	switch rule.Operator {
	case types.OperatorSum:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case types.OperatorMax:
		best := values[0]
		for _, v := range values[1:] {
			if v > best {
				best = v
			}
		}
		return best, nil
	case types.OperatorMin:
		best := values[0]
		for _, v := range values[1:] {
			if v < best {
				best = v
			}
		}
		return best, nil
	case types.OperatorAverage:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil
	case types.OperatorMultiply:
		product := 1.0
		for _, v := range values {
			product *= v
		}
		return product, nil
	case types.OperatorCustom:
		fn, ok := r.Strategy(rule.Strategy)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, rule.Strategy)
		}
		return fn(values), nil
	default:
		return 0, fmt.Errorf("%w: operator %s", ErrInvalidRule, rule.Operator)
	}
}
