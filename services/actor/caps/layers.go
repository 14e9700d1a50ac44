// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package caps computes effective min/max constraints for dimensions:
// first a conservative intersection of declared bounds within each
// configured layer, then a fold across layers under a configurable
// policy (intersect, union, or prioritized override).
package caps

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Sentinel errors for the caps package.
var (
	// ErrNoLayers indicates a registry configured with no layers.
	ErrNoLayers = errors.New("no cap layers configured")

	// ErrDuplicateLayer indicates a layer name appearing twice in the
	// configured order.
	ErrDuplicateLayer = errors.New("duplicate cap layer")
)

// LayerRegistry supplies the configured layer order and across-layer
// policy. Read-mostly; mutation happens only through administrative
// calls and readers always see a consistent rule set.
type LayerRegistry interface {
	// LayerOrder returns the processing order, first to last. The last
	// layer wins under the prioritized-override policy.
	LayerOrder() []string

	// AcrossLayerPolicy returns how per-layer caps fold together.
	AcrossLayerPolicy() types.AcrossLayerPolicy

	// Validate checks the configuration.
	Validate() error
}

// MemoryLayerRegistry is the in-process LayerRegistry.
type MemoryLayerRegistry struct {
	mu     sync.RWMutex
	order  []string
	policy types.AcrossLayerPolicy
}

// NewMemoryLayerRegistry creates a registry with the default layer
// order (realm, world, event, guild, total) and intersect policy.
func NewMemoryLayerRegistry() *MemoryLayerRegistry {
	return &MemoryLayerRegistry{
		order:  []string{"realm", "world", "event", "guild", "total"},
		policy: types.PolicyIntersect,
	}
}

// LayerOrder implements LayerRegistry. The returned slice is a copy.
func (r *MemoryLayerRegistry) LayerOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// AcrossLayerPolicy implements LayerRegistry.
func (r *MemoryLayerRegistry) AcrossLayerPolicy() types.AcrossLayerPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// SetLayerOrder replaces the layer order after validating it.
func (r *MemoryLayerRegistry) SetLayerOrder(order []string) error {
	if len(order) == 0 {
		return ErrNoLayers
	}
	seen := make(map[string]struct{}, len(order))
	for _, layer := range order {
		if layer == "" {
			return fmt.Errorf("%w: empty layer name", types.ErrInvalidInput)
		}
		if _, dup := seen[layer]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateLayer, layer)
		}
		seen[layer] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append([]string(nil), order...)
	return nil
}

// SetAcrossLayerPolicy replaces the fold policy.
func (r *MemoryLayerRegistry) SetAcrossLayerPolicy(policy types.AcrossLayerPolicy) error {
	if !policy.Valid() {
		return fmt.Errorf("%w: policy out of range", types.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
	return nil
}

// Validate implements LayerRegistry.
func (r *MemoryLayerRegistry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return ErrNoLayers
	}
	seen := make(map[string]struct{}, len(r.order))
	for _, layer := range r.order {
		if layer == "" {
			return fmt.Errorf("%w: empty layer name", types.ErrInvalidInput)
		}
		if _, dup := seen[layer]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateLayer, layer)
		}
		seen[layer] = struct{}{}
	}
	if !r.policy.Valid() {
		return fmt.Errorf("%w: policy out of range", types.ErrInvalidInput)
	}
	return nil
}
