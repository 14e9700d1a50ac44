// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the aggregation core's external configuration:
// merge rules, cap layers, and cache tuning. Files are YAML; enum
// fields accept their lowercase wire names.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/actor-core/services/actor/cache"
	"github.com/AleutianAI/actor-core/services/actor/caps"
	"github.com/AleutianAI/actor-core/services/actor/combiner"
	"github.com/AleutianAI/actor-core/services/actor/types"
)

// ErrConfiguration indicates a config file that parsed but failed
// validation.
var ErrConfiguration = errors.New("invalid configuration")

var validate = validator.New()

// Duration is a time.Duration that accepts "5m" style strings in YAML
// alongside raw nanosecond integers.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		*d = Duration(asInt)
		return nil
	}
	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrConfiguration, value.Value)
	}
	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("%w: bad duration %q: %v", ErrConfiguration, asString, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the full external configuration document.
type Config struct {
	MergeRules map[string]combiner.MergeRule `yaml:"merge_rules" json:"merge_rules" validate:"dive"`
	CapLayers  CapLayersConfig               `yaml:"cap_layers" json:"cap_layers"`
	Cache      CacheConfig                   `yaml:"cache" json:"cache"`
	Aggregator AggregatorConfig              `yaml:"aggregator" json:"aggregator"`
}

// CapLayersConfig configures the cap layer registry.
type CapLayersConfig struct {
	// Order lists layers first to last. Empty keeps the registry's
	// defaults.
	Order []string `yaml:"order" json:"order" validate:"omitempty,min=1,unique,dive,required"`

	// Policy folds per-layer caps: intersect, union, or
	// prioritized_override. Empty keeps the default.
	Policy string `yaml:"policy" json:"policy" validate:"omitempty,oneof=intersect union prioritized_override"`
}

// CacheConfig tunes the snapshot cache tiers.
type CacheConfig struct {
	MaxEntries int      `yaml:"max_entries" json:"max_entries" validate:"gte=0"`
	DefaultTTL Duration `yaml:"default_ttl" json:"default_ttl" validate:"gte=0"`
	Policy     string   `yaml:"policy" json:"policy" validate:"omitempty,oneof=lru lfu fifo random"`

	// FarPath enables the BadgerDB far tier when non-empty.
	FarPath string `yaml:"far_path" json:"far_path"`
}

// AggregatorConfig tunes resolution behavior.
type AggregatorConfig struct {
	SnapshotTTL       Duration `yaml:"snapshot_ttl" json:"snapshot_ttl" validate:"gte=0"`
	FanoutConcurrency int      `yaml:"fanout_concurrency" json:"fanout_concurrency" validate:"gte=0"`
	BatchConcurrency  int      `yaml:"batch_concurrency" json:"batch_concurrency" validate:"gte=0"`
	DisableDedup      bool     `yaml:"disable_dedup" json:"disable_dedup"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxEntries: cache.DefaultMaxEntries,
			DefaultTTL: Duration(cache.DefaultTTL),
			Policy:     cache.EvictLRU.String(),
		},
		Aggregator: AggregatorConfig{
			SnapshotTTL:      Duration(cache.DefaultTTL),
			BatchConcurrency: 8,
		},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	for dim, rule := range c.MergeRules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("%w: merge rule %q: %v", ErrConfiguration, dim, err)
		}
	}
	return nil
}

// ApplyMergeRules installs the configured rules into a combiner
// registry.
func (c *Config) ApplyMergeRules(r *combiner.MemoryRegistry) error {
	for dim, rule := range c.MergeRules {
		if err := r.SetRule(dim, rule); err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}
	return nil
}

// ApplyCapLayers installs the configured layer order and policy into a
// layer registry.
func (c *Config) ApplyCapLayers(r *caps.MemoryLayerRegistry) error {
	if len(c.CapLayers.Order) > 0 {
		if err := r.SetLayerOrder(c.CapLayers.Order); err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}
	if c.CapLayers.Policy != "" {
		policy, err := types.ParseAcrossLayerPolicy(c.CapLayers.Policy)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		if err := r.SetAcrossLayerPolicy(policy); err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}
	return nil
}

// NearCacheOptions converts the cache section into near-tier options.
func (c *Config) NearCacheOptions() ([]cache.Option, error) {
	opts := []cache.Option{}
	if c.Cache.MaxEntries > 0 {
		opts = append(opts, cache.WithMaxEntries(c.Cache.MaxEntries))
	}
	if c.Cache.DefaultTTL > 0 {
		opts = append(opts, cache.WithDefaultTTL(c.Cache.DefaultTTL.Std()))
	}
	if c.Cache.Policy != "" {
		policy, err := cache.ParseEvictionPolicy(c.Cache.Policy)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		opts = append(opts, cache.WithPolicy(policy))
	}
	return opts, nil
}
