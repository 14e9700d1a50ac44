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
	"time"

	"github.com/google/uuid"
)

// Snapshot is the immutable result of one full resolution for one
// actor. It is identified by actor id + actor version for cache
// keying and is superseded, never mutated, when the version advances.
type Snapshot struct {
	// ActorID is the actor this snapshot belongs to.
	ActorID uuid.UUID `json:"actor_id" yaml:"actor_id"`

	// Version is the actor version the snapshot was computed at.
	Version int64 `json:"version" yaml:"version"`

	// Primary maps primary dimensions to their final values.
	Primary map[string]float64 `json:"primary" yaml:"primary"`

	// Derived maps derived dimensions to their final values.
	Derived map[string]float64 `json:"derived" yaml:"derived"`

	// CapsUsed records the effective caps applied per dimension.
	CapsUsed map[string]Caps `json:"caps_used,omitempty" yaml:"caps_used,omitempty"`

	// SubsystemsProcessed lists the systems that contributed, in the
	// priority order they were invoked.
	SubsystemsProcessed []string `json:"subsystems_processed,omitempty" yaml:"subsystems_processed,omitempty"`

	// CreatedAt is when the snapshot was assembled.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// ProcessingTime is how long the resolution took, excluding the
	// cache fast path.
	ProcessingTime time.Duration `json:"processing_time,omitempty" yaml:"processing_time,omitempty"`
}

// NewSnapshot creates an empty snapshot for an actor at a version.
func NewSnapshot(actorID uuid.UUID, version int64) *Snapshot {
	return &Snapshot{
		ActorID:   actorID,
		Version:   version,
		Primary:   make(map[string]float64),
		Derived:   make(map[string]float64),
		CapsUsed:  make(map[string]Caps),
		CreatedAt: time.Now().UTC(),
	}
}

// GetPrimary looks up a primary dimension value.
func (s *Snapshot) GetPrimary(dimension string) (float64, bool) {
	v, ok := s.Primary[dimension]
	return v, ok
}

// GetDerived looks up a derived dimension value.
func (s *Snapshot) GetDerived(dimension string) (float64, bool) {
	v, ok := s.Derived[dimension]
	return v, ok
}

// GetCaps looks up the effective caps applied to a dimension.
func (s *Snapshot) GetCaps(dimension string) (Caps, bool) {
	c, ok := s.CapsUsed[dimension]
	return c, ok
}

// CacheKey derives the cache key for an actor id + version pair.
// Snapshots for superseded versions simply stop being looked up; they
// age out through the cache's TTL.
func CacheKey(actorID uuid.UUID, version int64) string {
	return fmt.Sprintf("actor_snapshot:%s:%d", actorID, version)
}
