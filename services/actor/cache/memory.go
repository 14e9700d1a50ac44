// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

// slotMeta is the per-entry eviction bookkeeping. Metadata lives in one
// fixed-size array allocated at construction, indexed alongside the
// value table, so eviction accounting adds no per-entry heap
// allocations. Per-entry overhead is the struct below plus the key
// string header: about 64 bytes.
type slotMeta struct {
	key         string
	insertedSeq int64
	lastAccess  int64 // monotonic sequence, not wall time
	accessCount int64
	expiresAt   int64 // unix nanos, 0 = no expiry
	used        bool
}

// MemoryCache is the near tier: a capacity-bounded in-process snapshot
// store with a pluggable eviction policy.
//
// Thread safety: safe for concurrent use. Lookups take the read lock;
// metadata touches and mutations take the write lock briefly.
type MemoryCache struct {
	opts Options

	mu     sync.RWMutex
	index  map[string]int // key → slot
	values []*types.Snapshot
	meta   []slotMeta
	free   []int
	seq    int64
	rng    *rand.Rand
	closed bool

	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

// NewMemoryCache creates a near tier with the given options.
func NewMemoryCache(opts ...Option) *MemoryCache {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	c := &MemoryCache{
		opts:   options,
		index:  make(map[string]int, options.MaxEntries),
		values: make([]*types.Snapshot, options.MaxEntries),
		meta:   make([]slotMeta, options.MaxEntries),
		free:   make([]int, 0, options.MaxEntries),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for i := options.MaxEntries - 1; i >= 0; i-- {
		c.free = append(c.free, i)
	}
	return c
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, key string) (*types.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, false, ErrClosed
	}
	slot, ok := c.index[key]
	if !ok {
		c.mu.RUnlock()
		atomic.AddInt64(&c.misses, 1)
		recordMiss(ctx, "near")
		return nil, false, nil
	}
	expired := c.isExpired(slot, time.Now())
	snap := c.values[slot]
	c.mu.RUnlock()

	if expired {
		c.removeExpired(key, slot)
		atomic.AddInt64(&c.misses, 1)
		recordMiss(ctx, "near")
		return nil, false, nil
	}

	c.touch(key, slot)
	atomic.AddInt64(&c.hits, 1)
	recordHit(ctx, "near")
	return snap, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(ctx context.Context, key string, snap *types.Snapshot, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return ErrNilSnapshot
	}
	if key == "" {
		return types.ErrInvalidInput
	}
	if ttl < 0 {
		return types.ErrInvalidInput
	}
	if ttl == 0 {
		ttl = c.opts.DefaultTTL
	}

	expiresAt := time.Now().Add(ttl).UnixNano()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.seq++
	if slot, ok := c.index[key]; ok {
		c.values[slot] = snap
		c.meta[slot].expiresAt = expiresAt
		c.meta[slot].insertedSeq = c.seq
		c.meta[slot].lastAccess = c.seq
		c.meta[slot].accessCount = 0
		return nil
	}

	slot, ok := c.takeSlotLocked()
	if !ok {
		// Capacity reached and nothing evictable; shouldn't happen
		// since every entry is evictable, but guard anyway.
		return types.ErrInvalidInput
	}

	c.values[slot] = snap
	c.meta[slot] = slotMeta{
		key:         key,
		insertedSeq: c.seq,
		lastAccess:  c.seq,
		expiresAt:   expiresAt,
		used:        true,
	}
	c.index[key] = slot
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if slot, ok := c.index[key]; ok {
		c.releaseSlotLocked(key, slot)
	}
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for key, slot := range c.index {
		c.releaseSlotLocked(key, slot)
	}
	return nil
}

// GetMany implements Cache.
func (c *MemoryCache) GetMany(ctx context.Context, keys []string) (map[string]*types.Snapshot, error) {
	out := make(map[string]*types.Snapshot, len(keys))
	for _, key := range keys {
		snap, ok, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = snap
		}
	}
	return out, nil
}

// SetMany implements Cache.
func (c *MemoryCache) SetMany(ctx context.Context, entries map[string]*types.Snapshot, ttl time.Duration) error {
	for key, snap := range entries {
		if err := c.Set(ctx, key, snap, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Stats implements Cache.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.index)
	c.mu.RUnlock()

	return Stats{
		Size:        size,
		MaxSize:     c.opts.MaxEntries,
		Hits:        atomic.LoadInt64(&c.hits),
		Misses:      atomic.LoadInt64(&c.misses),
		Evictions:   atomic.LoadInt64(&c.evictions),
		Expirations: atomic.LoadInt64(&c.expirations),
	}
}

// Policy returns the configured eviction policy.
func (c *MemoryCache) Policy() EvictionPolicy {
	return c.opts.Policy
}

// Close marks the cache closed; subsequent operations fail with
// ErrClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// isExpired reports TTL expiry. Caller holds at least the read lock.
func (c *MemoryCache) isExpired(slot int, now time.Time) bool {
	exp := c.meta[slot].expiresAt
	return exp != 0 && now.UnixNano() > exp
}

// touch bumps the access metadata after a hit.
func (c *MemoryCache) touch(key string, slot int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Entry may have been replaced between RUnlock and Lock.
	if cur, ok := c.index[key]; !ok || cur != slot {
		return
	}
	c.seq++
	c.meta[slot].lastAccess = c.seq
	c.meta[slot].accessCount++
}

// removeExpired drops an entry found expired during Get.
func (c *MemoryCache) removeExpired(key string, slot int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.index[key]; !ok || cur != slot {
		return
	}
	if !c.isExpired(slot, time.Now()) {
		return
	}
	c.releaseSlotLocked(key, slot)
	atomic.AddInt64(&c.expirations, 1)
}

// takeSlotLocked returns a free slot, evicting if necessary. Caller
// holds the write lock.
func (c *MemoryCache) takeSlotLocked() (int, bool) {
	if n := len(c.free); n > 0 {
		slot := c.free[n-1]
		c.free = c.free[:n-1]
		return slot, true
	}
	victim, ok := c.victimLocked()
	if !ok {
		return 0, false
	}
	key := c.meta[victim].key
	c.releaseSlotLocked(key, victim)
	atomic.AddInt64(&c.evictions, 1)

	slot := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	return slot, true
}

// victimLocked picks the slot to evict under the configured policy.
// Expired entries are preferred over live ones regardless of policy.
func (c *MemoryCache) victimLocked() (int, bool) {
	now := time.Now()
	best := -1
	var bestScore int64

	switch c.opts.Policy {
	case EvictRandom:
		nth := c.rng.Intn(len(c.index))
		for i := range c.meta {
			if !c.meta[i].used {
				continue
			}
			if c.isExpired(i, now) {
				return i, true
			}
			if nth == 0 && best < 0 {
				best = i
			}
			nth--
		}
		return best, best >= 0
	default:
		for i := range c.meta {
			if !c.meta[i].used {
				continue
			}
			if c.isExpired(i, now) {
				return i, true
			}
			var score int64
			switch c.opts.Policy {
			case EvictLFU:
				score = c.meta[i].accessCount
			case EvictFIFO:
				score = c.meta[i].insertedSeq
			default: // EvictLRU
				score = c.meta[i].lastAccess
			}
			if best < 0 || score < bestScore {
				best, bestScore = i, score
			}
		}
		return best, best >= 0
	}
}

// releaseSlotLocked returns a slot to the free list.
func (c *MemoryCache) releaseSlotLocked(key string, slot int) {
	delete(c.index, key)
	c.values[slot] = nil
	c.meta[slot] = slotMeta{}
	c.free = append(c.free, slot)
}
