// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package types defines the data model for actor stat aggregation:
// actors, contributions, caps, subsystem outputs, and snapshots.
//
// The aggregation core only reads actors; they are created by the
// owning application and mutated by subsystem logic. Every type here
// carries its own structural validation, run before any subsystem is
// invoked during a resolution.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubsystemRef is an actor's attachment to a contributing subsystem.
// It records the binding only; the live contributor handle is held by
// the registry.
type SubsystemRef struct {
	// SystemID is the unique identifier of the subsystem.
	SystemID string `json:"system_id" yaml:"system_id"`

	// Priority orders invocation during fan-out (higher first).
	Priority int64 `json:"priority" yaml:"priority"`

	// Enabled gates whether the subsystem contributes for this actor.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Actor is the entity whose stats are being computed.
//
// Thread Safety:
//
//	Actor is a plain value owned by the caller. The aggregation core
//	treats it as read-only; concurrent mutation during a resolution is
//	the caller's responsibility to avoid.
type Actor struct {
	// ID uniquely identifies the actor.
	ID uuid.UUID `json:"id" yaml:"id"`

	// Name is the display name.
	Name string `json:"name" yaml:"name"`

	// Race is the actor's race; some subsystems key contributions on it.
	Race string `json:"race" yaml:"race"`

	// Version is the optimistic concurrency counter. It advances on
	// every mutation and, together with ID, keys cached snapshots.
	Version int64 `json:"version" yaml:"version"`

	// Subsystems is the unordered set of attached subsystem references.
	Subsystems []SubsystemRef `json:"subsystems" yaml:"subsystems"`

	// Data is a free-form bag read by subsystem logic (combat flags,
	// guild membership, active buffs).
	Data map[string]any `json:"data" yaml:"data"`

	// CreatedAt is when the actor was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is when the actor last changed.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewActor creates an actor with a fresh ID and version 1.
func NewActor(name, race string) *Actor {
	now := time.Now().UTC()
	return &Actor{
		ID:        uuid.New(),
		Name:      name,
		Race:      race,
		Version:   1,
		Data:      make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the actor's structural invariants.
func (a *Actor) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil actor", ErrInvalidActor)
	}
	if a.ID == uuid.Nil {
		return fmt.Errorf("%w: zero id", ErrInvalidActor)
	}
	if a.Version <= 0 {
		return fmt.Errorf("%w: version must be positive, got %d", ErrInvalidActor, a.Version)
	}
	seen := make(map[string]struct{}, len(a.Subsystems))
	for _, ref := range a.Subsystems {
		if ref.SystemID == "" {
			return fmt.Errorf("%w: subsystem reference with empty system id", ErrInvalidActor)
		}
		if _, dup := seen[ref.SystemID]; dup {
			return fmt.Errorf("%w: duplicate subsystem reference %q", ErrInvalidActor, ref.SystemID)
		}
		seen[ref.SystemID] = struct{}{}
	}
	return nil
}

// Touch advances the version and refreshes the update timestamp.
// Cached snapshots keyed on the old version become stale.
func (a *Actor) Touch() {
	a.Version++
	a.UpdatedAt = time.Now().UTC()
}

// AttachSubsystem records a subsystem binding and bumps the version.
// Attaching an already-attached system id replaces the old reference.
func (a *Actor) AttachSubsystem(ref SubsystemRef) {
	for i, existing := range a.Subsystems {
		if existing.SystemID == ref.SystemID {
			a.Subsystems[i] = ref
			a.Touch()
			return
		}
	}
	a.Subsystems = append(a.Subsystems, ref)
	a.Touch()
}

// DetachSubsystem removes a subsystem binding. Returns false when the
// system id was not attached.
func (a *Actor) DetachSubsystem(systemID string) bool {
	for i, ref := range a.Subsystems {
		if ref.SystemID == systemID {
			a.Subsystems = append(a.Subsystems[:i], a.Subsystems[i+1:]...)
			a.Touch()
			return true
		}
	}
	return false
}

// HasSubsystem reports whether the actor references the system id.
func (a *Actor) HasSubsystem(systemID string) bool {
	for _, ref := range a.Subsystems {
		if ref.SystemID == systemID {
			return true
		}
	}
	return false
}

// BoolData reads a boolean from the data bag, defaulting when absent
// or mistyped.
func (a *Actor) BoolData(key string, def bool) bool {
	if v, ok := a.Data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StringData reads a string from the data bag.
func (a *Actor) StringData(key string) (string, bool) {
	if v, ok := a.Data[key]; ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// InCombat reports the conventional "in_combat" flag.
func (a *Actor) InCombat() bool {
	return a.BoolData("in_combat", false)
}

// GuildID returns the conventional "guild_id" entry.
func (a *Actor) GuildID() (string, bool) {
	return a.StringData("guild_id")
}
