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

	"golang.org/x/time/rate"

	"github.com/AleutianAI/actor-core/pkg/logging"
	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Source loads snapshots for cache warming, typically backed by the
// aggregator or a bulk store.
type Source interface {
	// Load produces the snapshot for a cache key, or (nil, nil) when
	// the key has nothing to warm.
	Load(ctx context.Context, key string) (*types.Snapshot, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, key string) (*types.Snapshot, error)

// Load implements Source.
func (f SourceFunc) Load(ctx context.Context, key string) (*types.Snapshot, error) {
	return f(ctx, key)
}

// Warmer pre-populates a cache from a Source to cut cold-start misses.
// Loads are rate limited so warming never starves live traffic.
type Warmer struct {
	cache   Cache
	source  Source
	limiter *rate.Limiter
	ttl     time.Duration
	logger  *slog.Logger
}

// WarmerOption configures a Warmer.
type WarmerOption func(*Warmer)

// WithWarmRate caps warming loads per second.
func WithWarmRate(perSecond float64, burst int) WarmerOption {
	return func(w *Warmer) {
		if perSecond > 0 && burst > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithWarmTTL sets the TTL for warmed entries. Zero uses the cache's
// default.
func WithWarmTTL(d time.Duration) WarmerOption {
	return func(w *Warmer) {
		if d > 0 {
			w.ttl = d
		}
	}
}

// WithWarmLogger attaches a logger for per-key warming failures.
func WithWarmLogger(logger *slog.Logger) WarmerOption {
	return func(w *Warmer) { w.logger = logger }
}

// NewWarmer creates a Warmer with a default limit of 100 loads/s.
func NewWarmer(c Cache, source Source, opts ...WarmerOption) *Warmer {
	w := &Warmer{
		cache:   c,
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(100), 10),
		logger:  logging.Default().Slog(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Warm loads a predefined key list into the cache. Per-key failures
// are logged and skipped; the returned count is the number of entries
// actually stored. Context cancellation stops the run.
func (w *Warmer) Warm(ctx context.Context, keys []string) (int, error) {
	warmed := 0
	for _, key := range keys {
		if err := w.limiter.Wait(ctx); err != nil {
			return warmed, err
		}

		snap, err := w.source.Load(ctx, key)
		if err != nil {
			w.logger.Warn("cache warm load failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		if snap == nil {
			continue
		}
		if err := w.cache.Set(ctx, key, snap, w.ttl); err != nil {
			w.logger.Warn("cache warm store failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		warmed++
	}
	return warmed, nil
}

// WarmEvery re-warms the key list on a fixed interval until the
// context is cancelled. Runs in the calling goroutine; start it with
// go when background warming is wanted.
func (w *Warmer) WarmEvery(ctx context.Context, interval time.Duration, keys func() []string) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Warm(ctx, keys()); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Warn("scheduled cache warm failed", slog.String("error", err.Error()))
			}
		}
	}
}
