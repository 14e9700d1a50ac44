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
	"log/slog"
	"time"

	"github.com/AleutianAI/actor-core/pkg/logging"
	"github.com/AleutianAI/actor-core/services/actor/types"
)

// TieredCache layers the near tier over an optional far tier. Near
// misses fall through to the far tier; far hits are promoted into the
// near tier with the promotion TTL.
type TieredCache struct {
	near         *MemoryCache
	far          Cache // nil when running near-only
	promotionTTL time.Duration
	logger       *slog.Logger
}

// TieredOption configures a TieredCache.
type TieredOption func(*TieredCache)

// WithFarTier attaches a far tier.
func WithFarTier(far Cache) TieredOption {
	return func(t *TieredCache) { t.far = far }
}

// WithPromotionTTL sets the near-tier TTL applied when a far hit is
// promoted. Zero uses the near tier's default.
func WithPromotionTTL(d time.Duration) TieredOption {
	return func(t *TieredCache) {
		if d > 0 {
			t.promotionTTL = d
		}
	}
}

// WithLogger attaches a logger for far-tier write failures.
func WithLogger(logger *slog.Logger) TieredOption {
	return func(t *TieredCache) { t.logger = logger }
}

// NewTieredCache creates a tiered cache over a near tier.
func NewTieredCache(near *MemoryCache, opts ...TieredOption) *TieredCache {
	t := &TieredCache{near: near, logger: logging.Default().Slog()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get implements Cache.
func (t *TieredCache) Get(ctx context.Context, key string) (*types.Snapshot, bool, error) {
	snap, ok, err := t.near.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return snap, true, nil
	}
	if t.far == nil {
		return nil, false, nil
	}

	snap, ok, err = t.far.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	// Promote; a failed promotion does not fail the read.
	if err := t.near.Set(ctx, key, snap, t.promotionTTL); err != nil {
		t.logger.Warn("near tier promotion failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return snap, true, nil
}

// Set implements Cache. The write lands in both tiers; a far-tier
// failure is surfaced after the near tier has been updated.
func (t *TieredCache) Set(ctx context.Context, key string, snap *types.Snapshot, ttl time.Duration) error {
	if err := t.near.Set(ctx, key, snap, ttl); err != nil {
		return err
	}
	if t.far == nil {
		return nil
	}
	return t.far.Set(ctx, key, snap, ttl)
}

// Delete implements Cache, removing the key from both tiers.
func (t *TieredCache) Delete(ctx context.Context, key string) error {
	if err := t.near.Delete(ctx, key); err != nil {
		return err
	}
	if t.far == nil {
		return nil
	}
	return t.far.Delete(ctx, key)
}

// Clear implements Cache, clearing both tiers.
func (t *TieredCache) Clear(ctx context.Context) error {
	if err := t.near.Clear(ctx); err != nil {
		return err
	}
	if t.far == nil {
		return nil
	}
	return t.far.Clear(ctx)
}

// GetMany implements Cache: near lookups first, then one far-tier
// batch for the remainder, promoting far hits.
func (t *TieredCache) GetMany(ctx context.Context, keys []string) (map[string]*types.Snapshot, error) {
	out, err := t.near.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	if t.far == nil || len(out) == len(keys) {
		return out, nil
	}

	missing := make([]string, 0, len(keys)-len(out))
	for _, key := range keys {
		if _, ok := out[key]; !ok {
			missing = append(missing, key)
		}
	}

	farHits, err := t.far.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for key, snap := range farHits {
		out[key] = snap
		if err := t.near.Set(ctx, key, snap, t.promotionTTL); err != nil {
			t.logger.Warn("near tier promotion failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
	return out, nil
}

// SetMany implements Cache.
func (t *TieredCache) SetMany(ctx context.Context, entries map[string]*types.Snapshot, ttl time.Duration) error {
	if err := t.near.SetMany(ctx, entries, ttl); err != nil {
		return err
	}
	if t.far == nil {
		return nil
	}
	return t.far.SetMany(ctx, entries, ttl)
}

// Stats implements Cache. Counters are summed across tiers; size and
// capacity report the near tier, the bound that actually constrains
// memory.
func (t *TieredCache) Stats() Stats {
	stats := t.near.Stats()
	if t.far != nil {
		farStats := t.far.Stats()
		stats.Hits += farStats.Hits
		stats.Misses += farStats.Misses
		stats.Expirations += farStats.Expirations
	}
	return stats
}
