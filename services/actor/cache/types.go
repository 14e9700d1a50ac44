// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache stores resolved snapshots in a tiered layout: a
// capacity-bounded near tier in process memory, optionally backed by a
// far tier on BadgerDB. Reads fall through near → far; far hits are
// promoted into the near tier.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Default configuration values.
const (
	// DefaultMaxEntries bounds the near tier.
	DefaultMaxEntries = 10_000

	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL = 5 * time.Minute
)

// Sentinel errors for the cache package.
var (
	// ErrClosed indicates an operation on a closed cache.
	ErrClosed = errors.New("cache closed")

	// ErrNilSnapshot indicates an attempt to store nil.
	ErrNilSnapshot = errors.New("nil snapshot")

	// ErrCodec indicates a snapshot failed to encode or decode for the
	// far tier.
	ErrCodec = errors.New("snapshot codec failure")
)

// Cache is the snapshot store consumed by the aggregator. All
// implementations are safe for concurrent use; reads do not block
// behind writes beyond short critical sections.
type Cache interface {
	// Get returns the snapshot for a key, or false on miss. Expired
	// entries count as misses.
	Get(ctx context.Context, key string) (*types.Snapshot, bool, error)

	// Set stores a snapshot under a key. Zero TTL means the cache's
	// default; negative TTL is rejected.
	Set(ctx context.Context, key string, snap *types.Snapshot, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// GetMany returns the snapshots present for the given keys. Missing
	// keys are simply absent from the result.
	GetMany(ctx context.Context, keys []string) (map[string]*types.Snapshot, error)

	// SetMany stores a batch of snapshots with one TTL.
	SetMany(ctx context.Context, entries map[string]*types.Snapshot, ttl time.Duration) error

	// Stats returns hit/miss counters and sizing.
	Stats() Stats
}

// Stats describes cache effectiveness and occupancy.
type Stats struct {
	// Size is the current entry count.
	Size int `json:"size"`

	// MaxSize is the configured capacity (0 = unbounded).
	MaxSize int `json:"max_size"`

	// Hits is the number of successful lookups.
	Hits int64 `json:"hits"`

	// Misses is the number of failed lookups, including expiries.
	Misses int64 `json:"misses"`

	// Evictions is the number of entries removed for capacity.
	Evictions int64 `json:"evictions"`

	// Expirations is the number of entries dropped at their TTL.
	Expirations int64 `json:"expirations"`
}

// HitRate returns hits / (hits + misses), 0 when no lookups happened.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// EvictionPolicy selects the near tier's victim strategy.
type EvictionPolicy uint8

const (
	// EvictLRU removes the least recently accessed entry. Default.
	EvictLRU EvictionPolicy = iota

	// EvictLFU removes the least frequently accessed entry.
	EvictLFU

	// EvictFIFO removes the oldest entry by insertion order.
	EvictFIFO

	// EvictRandom removes a uniformly random entry.
	EvictRandom
)

var policyNames = [...]string{"lru", "lfu", "fifo", "random"}

func (p EvictionPolicy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("eviction_policy(%d)", uint8(p))
}

// Valid reports whether the policy is a known value.
func (p EvictionPolicy) Valid() bool {
	return int(p) < len(policyNames)
}

// ParseEvictionPolicy converts a config name into an EvictionPolicy.
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	for i, name := range policyNames {
		if name == s {
			return EvictionPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown eviction policy %q", types.ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p EvictionPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: eviction policy out of range", types.ErrInvalidInput)
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *EvictionPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseEvictionPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Options configures the near tier.
type Options struct {
	// MaxEntries bounds the near tier. Must be positive.
	MaxEntries int

	// DefaultTTL applies to Set calls with a zero TTL.
	DefaultTTL time.Duration

	// Policy selects the eviction strategy.
	Policy EvictionPolicy
}

// DefaultOptions returns sensible near-tier defaults.
func DefaultOptions() Options {
	return Options{
		MaxEntries: DefaultMaxEntries,
		DefaultTTL: DefaultTTL,
		Policy:     EvictLRU,
	}
}

// Option is a functional option for the near tier.
type Option func(*Options)

// WithMaxEntries sets the near tier capacity.
func WithMaxEntries(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxEntries = n
		}
	}
}

// WithDefaultTTL sets the TTL used when Set receives zero.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.DefaultTTL = d
		}
	}
}

// WithPolicy selects the eviction strategy.
func WithPolicy(p EvictionPolicy) Option {
	return func(o *Options) {
		if p.Valid() {
			o.Policy = p
		}
	}
}
