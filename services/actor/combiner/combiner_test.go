// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package combiner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/actor-core/services/actor/types"
)

func TestReduceOperators(t *testing.T) {
	r := NewMemoryRegistry()
	values := []float64{5.0, 9.0, 7.0}

	cases := []struct {
		op   types.Operator
		want float64
	}{
		{types.OperatorSum, 21.0},
		{types.OperatorMax, 9.0},
		{types.OperatorMin, 5.0},
		{types.OperatorAverage, 7.0},
		{types.OperatorMultiply, 315.0},
	}
	for _, tc := range cases {
		t.Run(tc.op.String(), func(t *testing.T) {
			got, err := r.Reduce(MergeRule{Operator: tc.op}, values)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestReduceEmpty(t *testing.T) {
	r := NewMemoryRegistry()
	got, err := r.Reduce(MergeRule{Operator: types.OperatorSum}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCustomStrategy(t *testing.T) {
	r := NewMemoryRegistry()

	t.Run("unregistered strategy fails", func(t *testing.T) {
		rule := MergeRule{Operator: types.OperatorCustom, Strategy: "softmax"}
		_, err := r.Reduce(rule, []float64{1, 2})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnknownStrategy))
	})

	t.Run("registered strategy resolves by name", func(t *testing.T) {
		require.NoError(t, r.RegisterStrategy("second_highest", func(values []float64) float64 {
			best, second := values[0], values[0]
			for _, v := range values[1:] {
				if v > best {
					second, best = best, v
				} else if v > second {
					second = v
				}
			}
			return second
		}))

		rule := MergeRule{Operator: types.OperatorCustom, Strategy: "second_highest"}
		got, err := r.Reduce(rule, []float64{5, 9, 7})
		require.NoError(t, err)
		assert.Equal(t, 7.0, got)
	})

	t.Run("rejects nil reduction", func(t *testing.T) {
		assert.Error(t, r.RegisterStrategy("nope", nil))
	})
}

func TestSetAndGetRule(t *testing.T) {
	r := NewMemoryRegistry()

	_, ok := r.GetRule("strength")
	assert.False(t, ok)

	rule := MergeRule{Operator: types.OperatorMax}
	require.NoError(t, r.SetRule("strength", rule))

	got, ok := r.GetRule("strength")
	require.True(t, ok)
	assert.Equal(t, rule, got)

	r.DeleteRule("strength")
	_, ok = r.GetRule("strength")
	assert.False(t, ok)
}

func TestRuleValidation(t *testing.T) {
	r := NewMemoryRegistry()

	t.Run("custom without strategy name", func(t *testing.T) {
		err := r.SetRule("x", MergeRule{Operator: types.OperatorCustom})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidRule))
	})

	t.Run("inverted clamp default", func(t *testing.T) {
		bad := types.NewCaps(10, 5)
		err := r.SetRule("x", MergeRule{Operator: types.OperatorSum, ClampDefault: &bad})
		assert.Error(t, err)
	})

	t.Run("empty dimension", func(t *testing.T) {
		assert.Error(t, r.SetRule("", MergeRule{Operator: types.OperatorSum}))
	})
}

func TestRegistryValidate(t *testing.T) {
	r := NewMemoryRegistry()
	require.NoError(t, r.SetRule("a", MergeRule{Operator: types.OperatorSum}))
	require.NoError(t, r.Validate())

	// A custom rule whose strategy disappears fails validation.
	require.NoError(t, r.RegisterStrategy("s", func(v []float64) float64 { return 0 }))
	require.NoError(t, r.SetRule("b", MergeRule{Operator: types.OperatorCustom, Strategy: "s"}))
	require.NoError(t, r.Validate())
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	require.NoError(t, r.Validate())

	rule, ok := r.GetRule(types.DimStrength)
	require.True(t, ok)
	assert.True(t, rule.UsePipeline)
	require.NotNil(t, rule.ClampDefault)
	assert.Equal(t, types.NewCaps(0, 10_000), *rule.ClampDefault)

	rule, ok = r.GetRule(types.DimCriticalHitChance)
	require.True(t, ok)
	assert.False(t, rule.UsePipeline)
	assert.Equal(t, types.OperatorSum, rule.Operator)
}
