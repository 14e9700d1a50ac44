// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry holds the ordered collection of subsystems that
// contribute to actor resolutions. Registration order is irrelevant;
// invocation order during fan-out is priority descending.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Sentinel errors for the registry package.
var (
	// ErrDuplicateSystem indicates a registration reusing an existing
	// system id.
	ErrDuplicateSystem = errors.New("duplicate system id")

	// ErrSystemNotFound indicates a lookup for an unregistered system.
	ErrSystemNotFound = errors.New("system not found")

	// ErrNilSubsystem indicates an attempt to register nil.
	ErrNilSubsystem = errors.New("nil subsystem")
)

// Subsystem is one external contributor to actor stats. Implementations
// must be safe for concurrent Contribute calls; fan-out may invoke
// several subsystems at once.
type Subsystem interface {
	// SystemID returns the unique identifier for this contributor.
	SystemID() string

	// Priority orders fan-out, higher first.
	Priority() int64

	// Contribute produces this subsystem's output for one actor. The
	// context carries the resolution deadline.
	Contribute(ctx context.Context, actor *types.Actor) (*types.SubsystemOutput, error)
}

// Registry is the subsystem collection consumed by the aggregator.
type Registry interface {
	// Register adds a subsystem. Duplicate system ids are rejected.
	Register(sub Subsystem) error

	// ByPriority returns all subsystems, highest priority first.
	ByPriority() []Subsystem

	// Validate checks the registered set.
	Validate() error
}

// MemoryRegistry is the in-process Registry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	systems map[string]Subsystem
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{systems: make(map[string]Subsystem)}
}

// Register implements Registry.
func (r *MemoryRegistry) Register(sub Subsystem) error {
	if sub == nil {
		return ErrNilSubsystem
	}
	id := sub.SystemID()
	if id == "" {
		return fmt.Errorf("%w: empty system id", types.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.systems[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSystem, id)
	}
	r.systems[id] = sub
	return nil
}

// Unregister removes a subsystem by id.
func (r *MemoryRegistry) Unregister(systemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.systems[systemID]; !exists {
		return fmt.Errorf("%w: %q", ErrSystemNotFound, systemID)
	}
	delete(r.systems, systemID)
	return nil
}

// ByID looks up a subsystem by its system id.
func (r *MemoryRegistry) ByID(systemID string) (Subsystem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.systems[systemID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSystemNotFound, systemID)
	}
	return sub, nil
}

// ByPriority implements Registry. Equal priorities break ties by
// system id ascending so the order is stable across calls.
func (r *MemoryRegistry) ByPriority() []Subsystem {
	r.mu.RLock()
	out := make([]Subsystem, 0, len(r.systems))
	for _, sub := range r.systems {
		out = append(out, sub)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() > out[j].Priority()
		}
		return out[i].SystemID() < out[j].SystemID()
	})
	return out
}

// Count returns the number of registered subsystems.
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.systems)
}

// Validate implements Registry. The map key is the registration id, so
// a mismatch means the subsystem changed its reported id after
// registration.
func (r *MemoryRegistry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, sub := range r.systems {
		if sub.SystemID() != id {
			return fmt.Errorf("%w: subsystem registered as %q now reports id %q",
				types.ErrInvalidInput, id, sub.SystemID())
		}
	}
	return nil
}
