// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregator orchestrates one actor resolution: cache lookup,
// subsystem fan-out, cross-subsystem merge, combiner and caps
// application, snapshot store.
//
// A resolution walks a fixed state sequence (CacheLookup → Fanout →
// Merge → Clamp → Store). Any subsystem failure aborts the whole
// resolution; partial snapshots are never surfaced or cached. Cache
// read failures degrade to recomputation and cache write failures are
// logged without failing the resolution.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/actor-core/pkg/logging"
	"github.com/AleutianAI/actor-core/services/actor/bucket"
	"github.com/AleutianAI/actor-core/services/actor/cache"
	"github.com/AleutianAI/actor-core/services/actor/combiner"
	"github.com/AleutianAI/actor-core/services/actor/registry"
	"github.com/AleutianAI/actor-core/services/actor/types"
)

// Sentinel errors for the aggregator package.
var (
	// ErrAggregation indicates a resolution aborted before Store.
	ErrAggregation = errors.New("aggregation failed")

	// ErrSubsystem wraps a contributor failure during fan-out.
	ErrSubsystem = errors.New("subsystem failure")
)

// CombinerRegistry is the combiner surface the aggregator consumes.
type CombinerRegistry interface {
	GetRule(dimension string) (combiner.MergeRule, bool)
	Reduce(rule combiner.MergeRule, values []float64) (float64, error)
	Validate() error
}

// CapsProvider is the caps surface the aggregator consumes.
type CapsProvider interface {
	EffectiveCapsAcrossLayers(actor *types.Actor, outputs []types.SubsystemOutput) (map[string]types.Caps, error)
	ValidateCaps(dimension string, caps types.Caps) error
	Validate() error
}

// resolutionState tracks where a resolution is in its lifecycle, for
// error context and logging.
type resolutionState uint8

const (
	stateCacheLookup resolutionState = iota
	stateFanout
	stateMerge
	stateClamp
	stateStore
	stateDone
	stateAborted
)

var stateNames = [...]string{
	"cache_lookup", "fanout", "merge", "clamp", "store", "done", "aborted",
}

func (s resolutionState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Options tunes aggregator behavior.
type Options struct {
	// SnapshotTTL is the cache TTL for stored snapshots. Zero uses the
	// cache default.
	SnapshotTTL time.Duration

	// FanoutConcurrency bounds concurrent subsystem calls. Zero or
	// negative means unbounded.
	FanoutConcurrency int

	// DisableDedup turns off single-flight deduplication of concurrent
	// resolutions for the same actor version.
	DisableDedup bool

	// BatchConcurrency bounds concurrent resolutions in ResolveBatch.
	BatchConcurrency int

	// Logger receives resolution diagnostics. Nil uses the default
	// logger from pkg/logging.
	Logger *slog.Logger
}

// Aggregator computes snapshots for actors. Safe for concurrent use.
type Aggregator struct {
	subsystems registry.Registry
	combiner   CombinerRegistry
	caps       CapsProvider
	store      cache.Cache
	pipeline   *bucket.Processor
	opts       Options
	logger     *slog.Logger

	flight singleflight.Group
}

// New creates an Aggregator.
func New(subsystems registry.Registry, comb CombinerRegistry, capsProvider CapsProvider, store cache.Cache, pipeline *bucket.Processor, opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default().Slog()
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	return &Aggregator{
		subsystems: subsystems,
		combiner:   comb,
		caps:       capsProvider,
		store:      store,
		pipeline:   pipeline,
		opts:       opts,
		logger:     logger,
	}
}

// Resolve produces the snapshot for one actor, consulting the cache
// first. Concurrent resolutions for the same actor id and version are
// collapsed into one computation unless dedup is disabled.
func (a *Aggregator) Resolve(ctx context.Context, actor *types.Actor) (*types.Snapshot, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: nil actor", types.ErrInvalidActor)
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	key := types.CacheKey(actor.ID, actor.Version)

	if a.opts.DisableDedup {
		return a.resolve(ctx, actor, key)
	}

	result, err, _ := a.flight.Do(key, func() (interface{}, error) {
		return a.resolve(ctx, actor, key)
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.Snapshot), nil
}

// resolve runs the full state sequence for one actor.
func (a *Aggregator) resolve(ctx context.Context, actor *types.Actor, key string) (*types.Snapshot, error) {
	started := time.Now()
	state := stateCacheLookup

	// CacheLookup: read failures degrade to a miss.
	snap, hit, err := a.store.Get(ctx, key)
	if err != nil {
		a.logger.Warn("snapshot cache read failed, recomputing",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	if hit {
		recordResolution(ctx, time.Since(started), true)
		return snap, nil
	}

	// Fanout.
	state = stateFanout
	outputs, err := a.fanout(ctx, actor)
	if err != nil {
		recordAbort(ctx, state.String())
		return nil, fmt.Errorf("%w: %s: %v", ErrAggregation, state, err)
	}

	// Merge.
	state = stateMerge
	merged := mergeOutputs(outputs)

	// Clamp.
	state = stateClamp
	snap, err = a.clamp(actor, outputs, merged)
	if err != nil {
		recordAbort(ctx, state.String())
		return nil, fmt.Errorf("%w: %s: %v", ErrAggregation, state, err)
	}
	snap.SubsystemsProcessed = systemIDs(outputs)
	snap.ProcessingTime = time.Since(started)

	// Store: write failures do not fail the resolution.
	state = stateStore
	if err := a.store.Set(ctx, key, snap, a.opts.SnapshotTTL); err != nil {
		a.logger.Warn("snapshot cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	recordResolution(ctx, time.Since(started), false)
	return snap, nil
}

// fanout invokes every registered subsystem for the actor. Calls run
// concurrently; results keep priority order. Any failure cancels the
// remaining calls and aborts.
func (a *Aggregator) fanout(ctx context.Context, actor *types.Actor) ([]types.SubsystemOutput, error) {
	subs := a.subsystems.ByPriority()
	outputs := make([]types.SubsystemOutput, len(subs))

	g, ctx := errgroup.WithContext(ctx)
	if a.opts.FanoutConcurrency > 0 {
		g.SetLimit(a.opts.FanoutConcurrency)
	}

	for i, sub := range subs {
		g.Go(func() error {
			out, err := sub.Contribute(ctx, actor)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSubsystem, sub.SystemID(), err)
			}
			if out == nil {
				return fmt.Errorf("%w: %s returned nil output", ErrSubsystem, sub.SystemID())
			}
			if err := out.Validate(); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSubsystem, sub.SystemID(), err)
			}
			outputs[i] = *out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// mergedContributions is the per-dimension union of contributions
// across all subsystem outputs.
type mergedContributions struct {
	primary map[string][]types.Contribution
	derived map[string][]types.Contribution
}

// mergeOutputs unions contributions across outputs, grouped by
// dimension.
func mergeOutputs(outputs []types.SubsystemOutput) mergedContributions {
	m := mergedContributions{
		primary: make(map[string][]types.Contribution),
		derived: make(map[string][]types.Contribution),
	}
	for _, out := range outputs {
		for _, c := range out.Primary {
			m.primary[c.Dimension] = append(m.primary[c.Dimension], c)
		}
		for _, c := range out.Derived {
			m.derived[c.Dimension] = append(m.derived[c.Dimension], c)
		}
	}
	return m
}

// clamp computes each dimension's final value and assembles the
// snapshot.
func (a *Aggregator) clamp(actor *types.Actor, outputs []types.SubsystemOutput, merged mergedContributions) (*types.Snapshot, error) {
	effectiveCaps, err := a.caps.EffectiveCapsAcrossLayers(actor, outputs)
	if err != nil {
		return nil, err
	}

	snap := types.NewSnapshot(actor.ID, actor.Version)

	for dimension, contribs := range merged.primary {
		value, capsUsed, err := a.resolveDimension(dimension, contribs, effectiveCaps)
		if err != nil {
			return nil, err
		}
		snap.Primary[dimension] = value
		if capsUsed != nil {
			snap.CapsUsed[dimension] = *capsUsed
		}
	}
	for dimension, contribs := range merged.derived {
		value, capsUsed, err := a.resolveDimension(dimension, contribs, effectiveCaps)
		if err != nil {
			return nil, err
		}
		snap.Derived[dimension] = value
		if capsUsed != nil {
			snap.CapsUsed[dimension] = *capsUsed
		}
	}
	return snap, nil
}

// resolveDimension computes one dimension's value: the combiner rule
// selects pipeline or operator reduction, and the clamp bound falls
// back caps provider → rule clamp default → system-wide bound table.
func (a *Aggregator) resolveDimension(dimension string, contribs []types.Contribution, effectiveCaps map[string]types.Caps) (float64, *types.Caps, error) {
	rule, hasRule := a.combiner.GetRule(dimension)

	var capsUsed *types.Caps
	if c, ok := effectiveCaps[dimension]; ok {
		if err := a.caps.ValidateCaps(dimension, c); err != nil {
			return 0, nil, err
		}
		capsUsed = &c
	} else if hasRule && rule.ClampDefault != nil {
		c := *rule.ClampDefault
		capsUsed = &c
	} else if c, ok := types.FallbackBounds(dimension); ok {
		capsUsed = &c
	}

	if hasRule && !rule.UsePipeline {
		values := make([]float64, len(contribs))
		for i, c := range contribs {
			if err := c.Validate(); err != nil {
				return 0, nil, err
			}
			values[i] = c.Value
		}
		value, err := a.combiner.Reduce(rule, values)
		if err != nil {
			return 0, nil, fmt.Errorf("dimension %q: %w", dimension, err)
		}
		if capsUsed != nil {
			value = capsUsed.Clamp(value)
		}
		return value, capsUsed, nil
	}

	value, err := a.pipeline.Process(contribs, 0, capsUsed)
	if err != nil {
		return 0, nil, fmt.Errorf("dimension %q: %w", dimension, err)
	}
	return value, capsUsed, nil
}

// ResolveBatch resolves several actors with no cross-actor ordering
// guarantee. The result slice is index-aligned with the input; the
// first failure cancels the remainder.
func (a *Aggregator) ResolveBatch(ctx context.Context, actors []*types.Actor) ([]*types.Snapshot, error) {
	snapshots := make([]*types.Snapshot, len(actors))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.BatchConcurrency)

	for i, actor := range actors {
		g.Go(func() error {
			snap, err := a.Resolve(ctx, actor)
			if err != nil {
				return err
			}
			snapshots[i] = snap
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// InvalidateCache drops the cached snapshot for an actor's current
// version.
func (a *Aggregator) InvalidateCache(ctx context.Context, actor *types.Actor) error {
	if actor == nil {
		return fmt.Errorf("%w: nil actor", types.ErrInvalidActor)
	}
	return a.store.Delete(ctx, types.CacheKey(actor.ID, actor.Version))
}

// ClearCache drops every cached snapshot.
func (a *Aggregator) ClearCache(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// CacheStats exposes the underlying cache counters.
func (a *Aggregator) CacheStats() cache.Stats {
	return a.store.Stats()
}

// systemIDs lists the contributing system ids in fan-out order.
func systemIDs(outputs []types.SubsystemOutput) []string {
	ids := make([]string, len(outputs))
	for i, out := range outputs {
		ids[i] = out.Meta.System
	}
	return ids
}
