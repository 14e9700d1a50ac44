// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/actor-core/services/actor/caps"
	"github.com/AleutianAI/actor-core/services/actor/combiner"
	"github.com/AleutianAI/actor-core/services/actor/types"
)

const sampleConfig = `
merge_rules:
  critical_hit_chance:
    operator: sum
    clamp_default:
      min: 0
      max: 100
  attack_power:
    operator: max
cap_layers:
  order: [base, buffs, total]
  policy: union
cache:
  max_entries: 500
  default_ttl: 2m
  policy: lfu
aggregator:
  snapshot_ttl: 10m
  fanout_concurrency: 4
`

func TestParseSampleConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	rule, ok := cfg.MergeRules["critical_hit_chance"]
	require.True(t, ok)
	assert.Equal(t, types.OperatorSum, rule.Operator)
	require.NotNil(t, rule.ClampDefault)
	assert.Equal(t, types.NewCaps(0, 100), *rule.ClampDefault)

	assert.Equal(t, []string{"base", "buffs", "total"}, cfg.CapLayers.Order)
	assert.Equal(t, "union", cfg.CapLayers.Policy)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL.Std())
	assert.Equal(t, "lfu", cfg.Cache.Policy)
	assert.Equal(t, 10*time.Minute, cfg.Aggregator.SnapshotTTL.Std())
	assert.Equal(t, 4, cfg.Aggregator.FanoutConcurrency)
}

func TestParseRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown policy", "cap_layers:\n  policy: reverse\n"},
		{"duplicate layer", "cap_layers:\n  order: [base, base]\n"},
		{"unknown eviction policy", "cache:\n  policy: mru\n"},
		{"negative ttl", "cache:\n  default_ttl: -5s\n"},
		{"custom rule without strategy", "merge_rules:\n  x:\n    operator: custom\n"},
		{"inverted clamp", "merge_rules:\n  x:\n    operator: sum\n    clamp_default:\n      min: 10\n      max: 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestApplyMergeRules(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	r := combiner.NewMemoryRegistry()
	require.NoError(t, cfg.ApplyMergeRules(r))

	rule, ok := r.GetRule("attack_power")
	require.True(t, ok)
	assert.Equal(t, types.OperatorMax, rule.Operator)
}

func TestApplyCapLayers(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	r := caps.NewMemoryLayerRegistry()
	require.NoError(t, cfg.ApplyCapLayers(r))

	assert.Equal(t, []string{"base", "buffs", "total"}, r.LayerOrder())
	assert.Equal(t, types.PolicyUnion, r.AcrossLayerPolicy())
}

func TestApplyCapLayersKeepsDefaults(t *testing.T) {
	cfg := Default()
	r := caps.NewMemoryLayerRegistry()
	require.NoError(t, cfg.ApplyCapLayers(r))
	assert.Equal(t, []string{"realm", "world", "event", "guild", "total"}, r.LayerOrder())
	assert.Equal(t, types.PolicyIntersect, r.AcrossLayerPolicy())
}

func TestNearCacheOptions(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	opts, err := cfg.NearCacheOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	// Give the watcher a moment to register, then rewrite the file.
	time.Sleep(100 * time.Millisecond)
	updated := sampleConfig + "\n# touched\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 500, cfg.Cache.MaxEntries)
	case <-ctx.Done():
		t.Fatal("config reload not observed")
	}
}

func TestWatcherKeepsPreviousOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	reloads := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloads <- cfg }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("cap_layers:\n  policy: reverse\n"), 0o644))

	// The invalid write must not reach the callback.
	select {
	case <-reloads:
		t.Fatal("invalid config was applied")
	case <-time.After(500 * time.Millisecond):
	}
}
