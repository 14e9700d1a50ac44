// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package caps

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Statistics counts provider activity since construction.
type Statistics struct {
	LayersProcessed     int64 `json:"layers_processed"`
	DimensionsProcessed int64 `json:"dimensions_processed"`
	ValidationFailures  int64 `json:"validation_failures"`
}

// Provider computes effective caps from the cap contributions carried
// in subsystem outputs.
type Provider struct {
	layers LayerRegistry

	mu    sync.Mutex
	stats Statistics
}

// NewProvider creates a Provider backed by the given layer registry.
func NewProvider(layers LayerRegistry) *Provider {
	return &Provider{layers: layers}
}

// EffectiveCapsWithinLayer filters the cap contributions scoped to one
// layer, groups them by dimension, and folds each group into a Caps.
//
// The fold starts from (0, +Inf) and applies contributions in priority
// order, highest first. HardMin raises the floor to the largest
// declared minimum and HardMax lowers the ceiling to the smallest
// declared maximum, the conservative intersection of declared bounds.
// Baseline and Override pin the matching bound outright, Additive
// shifts it, and SoftMax folds like HardMax. Dimensions with no
// contribution in the layer are absent from the result.
func (p *Provider) EffectiveCapsWithinLayer(actor *types.Actor, outputs []types.SubsystemOutput, layer string) (map[string]types.Caps, error) {
	byDimension := make(map[string][]types.CapContribution)
	for _, out := range outputs {
		for _, cap := range out.Caps {
			if cap.Scope != layer {
				continue
			}
			if err := cap.Validate(); err != nil {
				p.recordValidationFailure()
				return nil, err
			}
			byDimension[cap.Dimension] = append(byDimension[cap.Dimension], cap)
		}
	}

	effective := make(map[string]types.Caps, len(byDimension))
	for dimension, contribs := range byDimension {
		sortByPriority(contribs)

		min, max := 0.0, math.Inf(1)
		for _, c := range contribs {
			switch c.Mode {
			case types.CapModeBaseline, types.CapModeOverride:
				if c.Kind == types.CapMin {
					min = c.Value
				} else {
					max = c.Value
				}
			case types.CapModeAdditive:
				if c.Kind == types.CapMin {
					min += c.Value
				} else {
					max += c.Value
				}
			case types.CapModeHardMin:
				if c.Kind == types.CapMin {
					min = math.Max(min, c.Value)
				}
			case types.CapModeHardMax, types.CapModeSoftMax:
				if c.Kind == types.CapMax {
					max = math.Min(max, c.Value)
				}
			}
		}
		effective[dimension] = types.NewCaps(min, max)
	}

	p.recordLayer(int64(len(effective)))
	return effective, nil
}

// EffectiveCapsAcrossLayers computes the within-layer caps for every
// configured layer in order and folds them under the registry's
// policy. Intersect narrows monotonically, Union widens, and
// PrioritizedOverride lets the last layer that mentions a dimension
// replace the accumulated caps for it.
func (p *Provider) EffectiveCapsAcrossLayers(actor *types.Actor, outputs []types.SubsystemOutput) (map[string]types.Caps, error) {
	policy := p.layers.AcrossLayerPolicy()
	all := make(map[string]types.Caps)

	for _, layer := range p.layers.LayerOrder() {
		layerCaps, err := p.EffectiveCapsWithinLayer(actor, outputs, layer)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", layer, err)
		}
		for dimension, caps := range layerCaps {
			existing, ok := all[dimension]
			if !ok {
				all[dimension] = caps
				continue
			}
			switch policy {
			case types.PolicyIntersect:
				all[dimension] = existing.Intersection(caps)
			case types.PolicyUnion:
				all[dimension] = existing.Union(caps)
			case types.PolicyPrioritizedOverride:
				all[dimension] = caps
			}
		}
	}
	return all, nil
}

// ValidateCaps rejects caps that are structurally inverted or that
// violate the game-domain rule that bounds never go negative.
func (p *Provider) ValidateCaps(dimension string, caps types.Caps) error {
	if err := caps.Validate(); err != nil {
		p.recordValidationFailure()
		return fmt.Errorf("dimension %q: %w", dimension, err)
	}
	if caps.Min < 0 {
		p.recordValidationFailure()
		return fmt.Errorf("%w: negative min %v for dimension %q",
			types.ErrInvalidCap, caps.Min, dimension)
	}
	return nil
}

// CapsForDimension folds the across-layer result down to one
// dimension, returning false when no layer bounds it.
func (p *Provider) CapsForDimension(actor *types.Actor, outputs []types.SubsystemOutput, dimension string) (types.Caps, bool, error) {
	all, err := p.EffectiveCapsAcrossLayers(actor, outputs)
	if err != nil {
		return types.Caps{}, false, err
	}
	caps, ok := all[dimension]
	return caps, ok, nil
}

// SupportedDimensions lists every dimension the fallback bound table
// knows about.
func (p *Provider) SupportedDimensions() []string {
	return append(types.PrimaryDimensions(), types.DerivedDimensions()...)
}

// Stats returns a copy of the provider's counters.
func (p *Provider) Stats() Statistics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Validate checks the underlying layer registry.
func (p *Provider) Validate() error {
	return p.layers.Validate()
}

func (p *Provider) recordLayer(dimensions int64) {
	p.mu.Lock()
	p.stats.LayersProcessed++
	p.stats.DimensionsProcessed += dimensions
	p.mu.Unlock()
}

func (p *Provider) recordValidationFailure() {
	p.mu.Lock()
	p.stats.ValidationFailures++
	p.mu.Unlock()
}

// sortByPriority orders cap contributions highest priority first, then
// system ascending so the fold is deterministic.
func sortByPriority(contribs []types.CapContribution) {
	sort.SliceStable(contribs, func(i, j int) bool {
		if contribs[i].Priority != contribs[j].Priority {
			return contribs[i].Priority > contribs[j].Priority
		}
		return contribs[i].System < contribs[j].System
	})
}
