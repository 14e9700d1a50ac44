// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bucket

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

const tolerance = 1e-9

func contrib(dim string, b types.Bucket, v float64, system string) types.Contribution {
	return types.NewContribution(dim, b, v, system)
}

func TestProcessOrder(t *testing.T) {
	p := NewProcessor()

	// Flat +10 → Mult ×1.2 → PostAdd +5: 0+10=10, 10*1.2=12, 12+5=17.
	contribs := []types.Contribution{
		contrib("strength", types.BucketFlat, 10, "equipment"),
		contrib("strength", types.BucketMult, 1.2, "buff"),
		contrib("strength", types.BucketPostAdd, 5, "talent"),
	}

	got, err := p.Process(contribs, 0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 17.0, got, tolerance)
}

func TestProcessOverrideWins(t *testing.T) {
	p := NewProcessor()

	contribs := []types.Contribution{
		contrib("strength", types.BucketFlat, 10, "equipment"),
		contrib("strength", types.BucketMult, 2, "buff"),
		contrib("strength", types.BucketOverride, 100, "admin"),
	}

	got, err := p.Process(contribs, 0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, tolerance)
}

func TestProcessOverrideHighestPriority(t *testing.T) {
	p := NewProcessor()

	low := contrib("strength", types.BucketOverride, 50, "event")
	low.Priority = 1
	high := contrib("strength", types.BucketOverride, 200, "admin")
	high.Priority = 10

	got, err := p.Process([]types.Contribution{low, high}, 0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, got, tolerance)

	// Same result regardless of input order.
	got, err = p.Process([]types.Contribution{high, low}, 0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, got, tolerance)
}

func TestProcessOrderingInvariance(t *testing.T) {
	p := NewProcessor()
	rng := rand.New(rand.NewSource(42))

	contribs := []types.Contribution{
		contrib("health", types.BucketFlat, 120, "vitality"),
		contrib("health", types.BucketFlat, 30, "equipment"),
		contrib("health", types.BucketMult, 1.15, "buff"),
		contrib("health", types.BucketMult, 0.9, "curse"),
		contrib("health", types.BucketPostAdd, 25, "talent"),
		contrib("health", types.BucketPostAdd, -5, "exhaustion"),
	}

	want, err := p.Process(contribs, 0, nil)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		shuffled := append([]types.Contribution(nil), contribs...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got, err := p.Process(shuffled, 0, nil)
		require.NoError(t, err)
		assert.InDelta(t, want, got, tolerance)
	}
}

func TestProcessClampInvariant(t *testing.T) {
	p := NewProcessor()
	caps := types.NewCaps(0, 100)

	t.Run("clamps above max", func(t *testing.T) {
		contribs := []types.Contribution{
			contrib("mana", types.BucketFlat, 50, "a"),
			contrib("mana", types.BucketMult, 2, "b"),
			contrib("mana", types.BucketPostAdd, 10, "c"),
		}
		// 50*2+10 = 110, clamped to 100.
		got, err := p.Process(contribs, 0, &caps)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, got, tolerance)
	})

	t.Run("clamps below min", func(t *testing.T) {
		contribs := []types.Contribution{
			contrib("mana", types.BucketFlat, -40, "a"),
		}
		got, err := p.Process(contribs, 0, &caps)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, got, tolerance)
	})

	t.Run("result always within caps", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 100; i++ {
			contribs := []types.Contribution{
				contrib("mana", types.BucketFlat, rng.Float64()*400-200, "a"),
				contrib("mana", types.BucketMult, rng.Float64()*4, "b"),
			}
			got, err := p.Process(contribs, 0, &caps)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, caps.Min)
			assert.LessOrEqual(t, got, caps.Max)
		}
	})
}

func TestProcessRejectsNonFinite(t *testing.T) {
	p := NewProcessor()

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := p.Process([]types.Contribution{
			contrib("strength", types.BucketFlat, bad, "a"),
		}, 0, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvalidContribution))
	}
}

func TestProcessExtendedBuckets(t *testing.T) {
	t.Run("rejected without opt-in", func(t *testing.T) {
		p := NewProcessor()
		_, err := p.Process([]types.Contribution{
			contrib("strength", types.BucketExponential, 2, "a"),
		}, 3, nil)
		require.Error(t, err)
	})

	t.Run("exponential after core buckets", func(t *testing.T) {
		p := NewProcessor(WithExtendedBuckets())
		contribs := []types.Contribution{
			contrib("strength", types.BucketFlat, 3, "a"),
			contrib("strength", types.BucketExponential, 2, "b"),
		}
		// (0+3)^2 = 9.
		got, err := p.Process(contribs, 0, nil)
		require.NoError(t, err)
		assert.InDelta(t, 9.0, got, tolerance)
	})

	t.Run("logarithmic rejects bad base", func(t *testing.T) {
		p := NewProcessor(WithExtendedBuckets())
		_, err := p.Process([]types.Contribution{
			contrib("strength", types.BucketLogarithmic, 1, "a"),
		}, 10, nil)
		require.Error(t, err)
	})

	t.Run("conditional adds", func(t *testing.T) {
		p := NewProcessor(WithExtendedBuckets())
		got, err := p.Process([]types.Contribution{
			contrib("strength", types.BucketConditional, 5, "a"),
		}, 10, nil)
		require.NoError(t, err)
		assert.InDelta(t, 15.0, got, tolerance)
	})
}

func TestProcessEmptyContributions(t *testing.T) {
	p := NewProcessor()
	got, err := p.Process(nil, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
}

func TestProcessorOrderListing(t *testing.T) {
	core := NewProcessor().Order()
	require.Len(t, core, 4)
	assert.Equal(t, types.BucketFlat, core[0])
	assert.Equal(t, types.BucketOverride, core[3])

	ext := NewProcessor(WithExtendedBuckets()).Order()
	require.Len(t, ext, 7)
	assert.Equal(t, types.BucketConditional, ext[6])
}

func TestSortDeterministicTiebreaks(t *testing.T) {
	a := contrib("x", types.BucketFlat, 2, "beta")
	b := contrib("x", types.BucketFlat, 1, "alpha")
	c := contrib("x", types.BucketFlat, 3, "alpha")
	d := contrib("x", types.BucketFlat, 0, "gamma")
	d.Priority = 5

	contribs := []types.Contribution{a, b, c, d}
	sortDeterministic(contribs)

	// Priority 5 first, then system asc, then value asc within system.
	assert.Equal(t, "gamma", contribs[0].System)
	assert.Equal(t, 1.0, contribs[1].Value)
	assert.Equal(t, 3.0, contribs[2].Value)
	assert.Equal(t, "beta", contribs[3].System)
}
