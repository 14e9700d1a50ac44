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
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorValidate(t *testing.T) {
	t.Run("new actor is valid", func(t *testing.T) {
		a := NewActor("Kara", "human")
		require.NoError(t, a.Validate())
	})

	t.Run("rejects zero version", func(t *testing.T) {
		a := NewActor("Kara", "human")
		a.Version = 0
		err := a.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidActor))
	})

	t.Run("rejects duplicate subsystem refs", func(t *testing.T) {
		a := NewActor("Kara", "human")
		a.Subsystems = []SubsystemRef{
			{SystemID: "equipment", Priority: 10, Enabled: true},
			{SystemID: "equipment", Priority: 5, Enabled: true},
		}
		err := a.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidActor))
	})
}

func TestActorTouch(t *testing.T) {
	a := NewActor("Kara", "human")
	v := a.Version
	a.Touch()
	assert.Equal(t, v+1, a.Version)
}

func TestActorSubsystemAttachment(t *testing.T) {
	a := NewActor("Kara", "human")

	a.AttachSubsystem(SubsystemRef{SystemID: "magic", Priority: 10, Enabled: true})
	assert.True(t, a.HasSubsystem("magic"))

	// Re-attach replaces, does not duplicate.
	a.AttachSubsystem(SubsystemRef{SystemID: "magic", Priority: 20, Enabled: true})
	require.Len(t, a.Subsystems, 1)
	assert.Equal(t, int64(20), a.Subsystems[0].Priority)

	assert.True(t, a.DetachSubsystem("magic"))
	assert.False(t, a.HasSubsystem("magic"))
	assert.False(t, a.DetachSubsystem("magic"))
}

func TestContributionValidate(t *testing.T) {
	valid := NewContribution(DimStrength, BucketFlat, 10, "equipment")
	require.NoError(t, valid.Validate())

	cases := []struct {
		name string
		mut  func(*Contribution)
	}{
		{"empty dimension", func(c *Contribution) { c.Dimension = "" }},
		{"empty system", func(c *Contribution) { c.System = "" }},
		{"NaN value", func(c *Contribution) { c.Value = math.NaN() }},
		{"positive infinity", func(c *Contribution) { c.Value = math.Inf(1) }},
		{"negative infinity", func(c *Contribution) { c.Value = math.Inf(-1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid
			tc.mut(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidContribution))
		})
	}
}

func TestCapContributionValidate(t *testing.T) {
	valid := NewCapContribution("equipment", DimStrength, CapMax, CapModeHardMax, 100, "equipment")
	require.NoError(t, valid.Validate())

	t.Run("rejects missing scope", func(t *testing.T) {
		c := valid
		c.Scope = ""
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCap))
	})

	t.Run("rejects non-finite value", func(t *testing.T) {
		c := valid
		c.Value = math.Inf(1)
		assert.Error(t, c.Validate())
	})
}

func TestCapsClamp(t *testing.T) {
	c := NewCaps(0, 50)
	assert.Equal(t, 50.0, c.Clamp(100))
	assert.Equal(t, 0.0, c.Clamp(-10))
	assert.Equal(t, 25.0, c.Clamp(25))
}

func TestCapsSetOperations(t *testing.T) {
	a := NewCaps(0, 50)
	b := NewCaps(25, 75)

	inter := a.Intersection(b)
	assert.Equal(t, NewCaps(25, 50), inter)

	uni := a.Union(b)
	assert.Equal(t, NewCaps(0, 75), uni)

	assert.True(t, a.Contains(25))
	assert.False(t, a.Contains(75))
}

func TestCapsIdentities(t *testing.T) {
	layer := NewCaps(20, 80)

	// Unbounded is the identity for intersection.
	assert.Equal(t, layer, UnboundedCaps().Intersection(layer))

	// Empty is the identity for union.
	assert.Equal(t, layer, EmptyCaps().Union(layer))
}

func TestCapsValidate(t *testing.T) {
	assert.NoError(t, NewCaps(0, 100).Validate())

	err := NewCaps(10, 5).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCap))

	assert.Error(t, NewCaps(math.NaN(), 5).Validate())
}

func TestCapsExpandShrink(t *testing.T) {
	c := NewCaps(10, 90).Expand(10)
	assert.Equal(t, NewCaps(0, 100), c)

	c = c.Shrink(20)
	assert.Equal(t, NewCaps(20, 80), c)

	// Shrinking past the midpoint collapses to the center.
	collapsed := NewCaps(0, 10).Shrink(20)
	assert.Equal(t, collapsed.Min, collapsed.Max)
}

func TestEnumRoundTrips(t *testing.T) {
	t.Run("bucket", func(t *testing.T) {
		for b := BucketFlat; b.Valid(); b++ {
			parsed, err := ParseBucket(b.String())
			require.NoError(t, err)
			assert.Equal(t, b, parsed)
		}
		_, err := ParseBucket("bogus")
		assert.Error(t, err)
	})

	t.Run("operator", func(t *testing.T) {
		for o := OperatorSum; o.Valid(); o++ {
			parsed, err := ParseOperator(o.String())
			require.NoError(t, err)
			assert.Equal(t, o, parsed)
		}
	})

	t.Run("across layer policy", func(t *testing.T) {
		for p := PolicyIntersect; p.Valid(); p++ {
			parsed, err := ParseAcrossLayerPolicy(p.String())
			require.NoError(t, err)
			assert.Equal(t, p, parsed)
		}
	})
}

func TestFallbackBounds(t *testing.T) {
	c, ok := FallbackBounds(DimStrength)
	require.True(t, ok)
	assert.Equal(t, NewCaps(0, 10_000), c)

	_, ok = FallbackBounds("unmapped_dimension")
	assert.False(t, ok)
}

func TestSnapshotLookups(t *testing.T) {
	a := NewActor("Kara", "human")
	s := NewSnapshot(a.ID, a.Version)
	s.Primary[DimStrength] = 17

	v, ok := s.GetPrimary(DimStrength)
	require.True(t, ok)
	assert.Equal(t, 17.0, v)

	_, ok = s.GetDerived(DimAttackPower)
	assert.False(t, ok)
}

func TestCacheKeyStability(t *testing.T) {
	a := NewActor("Kara", "human")
	k1 := CacheKey(a.ID, a.Version)
	k2 := CacheKey(a.ID, a.Version)
	assert.Equal(t, k1, k2)

	a.Touch()
	assert.NotEqual(t, k1, CacheKey(a.ID, a.Version))
}
